package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// pkgIndex is what proxygen knows about the target's package, read from
// source with go/ast. Generated files are skipped so outputs never feed back
// into discovery.
type pkgIndex struct {
	dir     string
	name    string
	structs map[string]*ast.StructType
	ifaces  map[string]*ast.InterfaceType
	generic map[string]bool
	methods map[string][]*ast.FuncDecl // receiver type name -> methods
	funcs   map[string]*ast.FuncDecl
	imports map[string]GoImport // qualifier -> import
}

func isGeneratedFile(name string) bool {
	return strings.HasSuffix(name, ".gen.go") || strings.Contains(name, ".gen.") || strings.HasSuffix(name, "_gen.go")
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") && !isGeneratedFile(name)
}

func loadPackage(dir string) (*pkgIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	ix := &pkgIndex{
		dir:     dir,
		structs: map[string]*ast.StructType{},
		ifaces:  map[string]*ast.InterfaceType{},
		generic: map[string]bool{},
		methods: map[string][]*ast.FuncDecl{},
		funcs:   map[string]*ast.FuncDecl{},
		imports: map[string]GoImport{},
	}
	fset := token.NewFileSet()

	for _, e := range entries {
		if e.IsDir() || !isSourceFile(e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		f, err := parser.ParseFile(fset, full, nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.ToSlash(full), err)
		}
		if ix.name == "" {
			ix.name = f.Name.Name
		}
		ix.addFile(f)
	}
	if ix.name == "" {
		return nil, fmt.Errorf("no Go source files in %s", filepath.ToSlash(dir))
	}
	return ix, nil
}

func (ix *pkgIndex) addFile(f *ast.File) {
	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		gi := GoImport{Path: path}
		qual := importName(path)
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				continue
			}
			gi.Name = imp.Name.Name
			qual = gi.Name
		}
		if _, ok := ix.imports[qual]; !ok {
			ix.imports[qual] = gi
		}
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
					ix.generic[ts.Name.Name] = true
				}
				switch t := ts.Type.(type) {
				case *ast.StructType:
					ix.structs[ts.Name.Name] = t
				case *ast.InterfaceType:
					ix.ifaces[ts.Name.Name] = t
				}
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) == 0 {
				ix.funcs[d.Name.Name] = d
				continue
			}
			if name, _ := receiverName(d.Recv.List[0].Type); name != "" {
				ix.methods[name] = append(ix.methods[name], d)
			}
		}
	}
}

// receiverName returns the base type name of a receiver expression and
// whether the receiver is a pointer.
func receiverName(expr ast.Expr) (string, bool) {
	ptr := false
	if star, ok := expr.(*ast.StarExpr); ok {
		ptr = true
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, ptr
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name, ptr
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name, ptr
		}
	}
	return "", ptr
}

// importName guesses the package name of an import path: the last element,
// skipping a /vN major version suffix, a gopkg.in .vN suffix and a go- prefix
// or -go suffix. Aliased imports never reach here.
func importName(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && isMajorVersion(name) {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, "go-"), "-go")
	return strings.ReplaceAll(name, "-", "_")
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func (ix *pkgIndex) isInterface(name string) bool {
	_, ok := ix.ifaces[name]
	return ok
}

// methodSet returns the exported methods of name (or *name when pointer is
// set), including methods promoted from embedded types declared in the same
// package. A shallower method wins over a promoted one. Result is sorted.
func (ix *pkgIndex) methodSet(name string, pointer bool) ([]MethodSpec, error) {
	if ix.generic[name] {
		return nil, fmt.Errorf("type %s is generic; generic targets are not supported", name)
	}
	_, isStruct := ix.structs[name]
	if !isStruct && !ix.isInterface(name) && len(ix.methods[name]) == 0 {
		return nil, fmt.Errorf("type %s not found in package %s", name, ix.name)
	}

	found := map[string]MethodSpec{}
	ix.collect(name, pointer, found, map[string]bool{})

	out := make([]MethodSpec, 0, len(found))
	for _, m := range found {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (ix *pkgIndex) collect(name string, pointer bool, found map[string]MethodSpec, visiting map[string]bool) {
	if visiting[name] {
		return
	}
	visiting[name] = true
	defer delete(visiting, name)

	if it, ok := ix.ifaces[name]; ok {
		for _, f := range it.Methods.List {
			switch t := f.Type.(type) {
			case *ast.FuncType:
				for _, n := range f.Names {
					if n.IsExported() {
						addMethod(found, methodFromFunc(n.Name, t))
					}
				}
			case *ast.Ident:
				ix.collect(t.Name, false, found, visiting)
			}
		}
		return
	}

	for _, fd := range ix.methods[name] {
		if !fd.Name.IsExported() {
			continue
		}
		if _, ptrRecv := receiverName(fd.Recv.List[0].Type); ptrRecv && !pointer {
			continue
		}
		addMethod(found, methodFromFunc(fd.Name.Name, fd.Type))
	}

	st, ok := ix.structs[name]
	if !ok || st.Fields == nil {
		return
	}
	for _, field := range st.Fields.List {
		if len(field.Names) > 0 {
			continue
		}
		embedded, ptrEmbed := receiverName(field.Type)
		if embedded == "" {
			continue
		}
		promoted := map[string]MethodSpec{}
		ix.collect(embedded, pointer || ptrEmbed, promoted, visiting)
		for _, m := range promoted {
			addMethod(found, m)
		}
	}
}

func addMethod(found map[string]MethodSpec, m MethodSpec) {
	if _, ok := found[m.Name]; !ok {
		found[m.Name] = m
	}
}

func methodFromFunc(name string, ft *ast.FuncType) MethodSpec {
	m := MethodSpec{Name: name}
	if ft.Params != nil {
		for _, f := range ft.Params.List {
			typ := types.ExprString(f.Type)
			if len(f.Names) == 0 {
				m.Params = append(m.Params, MethodParam{Type: typ})
				continue
			}
			for _, n := range f.Names {
				m.Params = append(m.Params, MethodParam{Name: n.Name, Type: typ})
			}
		}
	}
	if ft.Results != nil {
		for _, f := range ft.Results.List {
			typ := types.ExprString(f.Type)
			for range max(1, len(f.Names)) {
				m.Returns = append(m.Returns, MethodReturn{Type: typ})
			}
		}
	}
	return m
}

// constructor looks up a package-level constructor for the target and checks
// its shape: func(...) T or func(...) (T, error).
func (ix *pkgIndex) constructor(name, targetType string) (ctor MethodSpec, returnsError bool, err error) {
	fd, ok := ix.funcs[name]
	if !ok {
		return MethodSpec{}, false, fmt.Errorf("constructor %s not found in package %s", name, ix.name)
	}
	if fd.Type.TypeParams != nil && len(fd.Type.TypeParams.List) > 0 {
		return MethodSpec{}, false, fmt.Errorf("constructor %s is generic", name)
	}
	m := methodFromFunc(name, fd.Type)
	switch {
	case len(m.Returns) == 1:
	case len(m.Returns) == 2 && m.Returns[1].Type == "error":
		returnsError = true
	default:
		return MethodSpec{}, false, fmt.Errorf("constructor %s must return %s or (%s, error)", name, targetType, targetType)
	}
	if m.Returns[0].Type != targetType {
		return MethodSpec{}, false, fmt.Errorf("constructor %s returns %s, want %s", name, m.Returns[0].Type, targetType)
	}
	return m, returnsError, nil
}

// qualifiers returns the package qualifiers referenced by a type expression
// such as "map[string]*time.Timer" or "...context.Context".
func qualifiers(typ string) ([]string, error) {
	expr, err := parser.ParseExpr(strings.TrimPrefix(typ, "..."))
	if err != nil {
		return nil, fmt.Errorf("invalid type %q: %w", typ, err)
	}
	var out []string
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if id, ok := sel.X.(*ast.Ident); ok {
			out = append(out, id.Name)
		}
		return false
	})
	return out, nil
}

// formatSignature renders a method the way `proxygen methods` lists it.
func formatSignature(m MethodSpec) string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Name != "" {
			sb.WriteString(p.Name + " ")
		}
		sb.WriteString(p.Type)
	}
	sb.WriteByte(')')
	switch len(m.Returns) {
	case 0:
	case 1:
		sb.WriteString(" " + m.Returns[0].Type)
	default:
		rets := make([]string, len(m.Returns))
		for i, r := range m.Returns {
			rets[i] = r.Type
		}
		sb.WriteString(" (" + strings.Join(rets, ", ") + ")")
	}
	return sb.String()
}

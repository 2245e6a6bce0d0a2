package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

type generateOptions struct {
	SpecPath string
	OutPath  string
}

type generateResult struct {
	Out     string
	Source  string // directory discovery read from
	Methods int
}

type paramData struct {
	Name     string
	Type     string
	Variadic bool
}

type methodData struct {
	Name         string
	Params       []paramData
	Values       []string // non-error result types
	ReturnsError bool
}

type ctorData struct {
	Name         string
	Params       []paramData
	ReturnsError bool
}

type genData struct {
	SpecPath   string
	SpecHash   string
	Package    string
	Facade     string
	TargetType string
	Interface  string
	Aspects    []string
	Ctor       *ctorData
	Methods    []methodData
	Imports    []GoImport
}

// generate loads the spec, resolves the target's methods and writes the
// formatted facade to opts.OutPath.
func generate(opts generateOptions) (generateResult, error) {
	spec, raw, err := loadSpec(opts.SpecPath)
	if err != nil {
		return generateResult{}, err
	}
	data, err := buildData(spec, opts.SpecPath, raw)
	if err != nil {
		return generateResult{}, err
	}

	out := opts.OutPath
	if out == "" {
		out = defaultOutPath(opts.SpecPath, spec.Target)
	}

	src, err := execTemplate(facadeTpl, data)
	if err != nil {
		return generateResult{}, err
	}
	if err := writeFormatted(out, src); err != nil {
		return generateResult{}, err
	}
	return generateResult{
		Out:     out,
		Source:  filepath.Join(filepath.Dir(opts.SpecPath), spec.Source),
		Methods: len(data.Methods),
	}, nil
}

// embeddedNames are the field and methods every facade gets from its embedded
// *proxy.Proxy[T]. A target method with one of these names would shadow them.
var embeddedNames = map[string]bool{
	"Proxy":   true,
	"Call":    true,
	"Config":  true,
	"Extend":  true,
	"Has":     true,
	"Invoke":  true,
	"Methods": true,
	"Target":  true,
}

func buildData(spec *Spec, specPath string, raw []byte) (*genData, error) {
	srcDir := filepath.Join(filepath.Dir(specPath), spec.Source)
	ix, ixErr := loadPackage(srcDir)

	// Declared methods make the source optional; everything else needs it.
	if ixErr != nil && (len(spec.Methods) == 0 || spec.Constructor != nil) {
		return nil, ixErr
	}
	if ix != nil && ix.name != spec.Package {
		return nil, fmt.Errorf("spec package %q does not match source package %q", spec.Package, ix.name)
	}

	isIface := ix != nil && ix.isInterface(spec.Target)
	targetType := spec.Target
	if spec.pointer(isIface) {
		targetType = "*" + spec.Target
	}

	methods := spec.Methods
	if len(methods) == 0 {
		var err error
		if methods, err = ix.methodSet(spec.Target, spec.pointer(isIface)); err != nil {
			return nil, err
		}
	}
	methods, err := excludeMethods(methods, spec.Exclude)
	if err != nil {
		return nil, err
	}

	d := &genData{
		SpecPath:   filepath.ToSlash(specPath),
		SpecHash:   sha256Hex(raw),
		Package:    spec.Package,
		Facade:     spec.FacadeName,
		TargetType: targetType,
		Interface:  spec.Interface,
		Aspects:    spec.Aspects,
	}

	var quals []string
	for _, m := range methods {
		if embeddedNames[m.Name] {
			return nil, fmt.Errorf("method %s collides with the embedded proxy field or its methods; add it to exclude", m.Name)
		}
		q, err := methodQualifiers(m.Params, m.Returns)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		quals = append(quals, q...)
	}

	var ctor MethodSpec
	var ctorErr bool
	if spec.Constructor != nil {
		ctor, ctorErr, err = ix.constructor(spec.Constructor.Name, targetType)
		if err != nil {
			return nil, err
		}
		q, err := methodQualifiers(ctor.Params, nil)
		if err != nil {
			return nil, fmt.Errorf("constructor %s: %w", ctor.Name, err)
		}
		quals = append(quals, q...)
	}

	imports, err := resolveImports(spec, ix, quals)
	if err != nil {
		return nil, err
	}
	d.Imports = imports

	for _, m := range methods {
		d.Methods = append(d.Methods, prepareMethod(m, quals))
	}
	if spec.Constructor != nil {
		reserved := reservedNames(quals, "cfg", "target", "err")
		d.Ctor = &ctorData{Name: ctor.Name, Params: prepareParams(ctor.Params, reserved), ReturnsError: ctorErr}
	}
	return d, nil
}

func methodQualifiers(params []MethodParam, returns []MethodReturn) ([]string, error) {
	var out []string
	for _, p := range params {
		q, err := qualifiers(p.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, q...)
	}
	for _, r := range returns {
		q, err := qualifiers(r.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, q...)
	}
	return out, nil
}

func excludeMethods(methods []MethodSpec, exclude []string) ([]MethodSpec, error) {
	if len(exclude) == 0 {
		return methods, nil
	}
	known := map[string]bool{}
	for _, m := range methods {
		known[m.Name] = true
	}
	drop := map[string]bool{}
	for _, name := range exclude {
		if !known[name] {
			return nil, fmt.Errorf("exclude: unknown method %q", name)
		}
		drop[name] = true
	}
	out := make([]MethodSpec, 0, len(methods))
	for _, m := range methods {
		if !drop[m.Name] {
			out = append(out, m)
		}
	}
	return out, nil
}

// resolveImports maps every qualifier used in a signature to an import, from
// imports.extra first and then from the source package's own files.
func resolveImports(spec *Spec, ix *pkgIndex, quals []string) ([]GoImport, error) {
	imports := []GoImport{{Name: "", Path: spec.Imports.Proxy}}
	if importName(spec.Imports.Proxy) != "proxy" {
		imports[0].Name = "proxy"
	}

	byQual := map[string]GoImport{}
	for _, gi := range spec.Imports.Extra {
		q := gi.Name
		if q == "" {
			q = importName(gi.Path)
		}
		byQual[q] = gi
	}

	seen := map[string]bool{"proxy": true}
	for _, q := range quals {
		if seen[q] {
			continue
		}
		seen[q] = true
		gi, ok := byQual[q]
		if !ok && ix != nil {
			gi, ok = ix.imports[q]
		}
		if !ok {
			return nil, fmt.Errorf("cannot infer import for qualifier %q; add it under imports.extra", q)
		}
		imports = append(imports, gi)
	}
	return dedupeAndSortImports(imports), nil
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// reservedNames are identifiers a generated body uses itself, plus every
// package qualifier, which a parameter of the same name would shadow.
func reservedNames(quals []string, extra ...string) map[string]bool {
	r := map[string]bool{"proxy": true}
	for _, q := range quals {
		r[q] = true
	}
	for _, e := range extra {
		r[e] = true
	}
	return r
}

func prepareMethod(m MethodSpec, quals []string) methodData {
	md := methodData{Name: m.Name}

	returns := m.Returns
	if n := len(returns); n > 0 && returns[n-1].Type == "error" {
		md.ReturnsError = true
		returns = returns[:n-1]
	}
	for _, r := range returns {
		md.Values = append(md.Values, r.Type)
	}

	extra := []string{"p", "t", "results", "err"}
	for i := range md.Values {
		extra = append(extra, "r"+strconv.Itoa(i))
	}
	md.Params = prepareParams(m.Params, reservedNames(quals, extra...))
	return md
}

// prepareParams names unnamed and blank parameters argN and renames those
// that collide with reserved identifiers.
func prepareParams(params []MethodParam, reserved map[string]bool) []paramData {
	used := map[string]bool{}
	for _, p := range params {
		used[p.Name] = true
	}
	out := make([]paramData, len(params))
	for i, p := range params {
		name := p.Name
		if name == "" || name == "_" {
			name = "arg" + strconv.Itoa(i)
		}
		for base, n := name, 1; reserved[name] || (name != p.Name && used[name]); n++ {
			name = base + "Arg"
			if n > 1 {
				name += strconv.Itoa(n)
			}
		}
		used[name] = true
		out[i] = paramData{Name: name, Type: p.Type, Variadic: strings.HasPrefix(p.Type, "...")}
	}
	return out
}

// -------------------------
// Template helpers
// -------------------------

func paramDecls(ps []paramData) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}

func callArgs(ps []paramData) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name
		if p.Variadic {
			parts[i] += "..."
		}
	}
	return strings.Join(parts, ", ")
}

func paramNames(ps []paramData) string {
	if len(ps) == 0 {
		return "nil"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strconv.Quote(p.Name)
	}
	return "[]string{" + strings.Join(parts, ", ") + "}"
}

func argList(ps []paramData) string {
	if len(ps) == 0 {
		return "nil"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name
	}
	return "[]any{" + strings.Join(parts, ", ") + "}"
}

func resultVars(values []string) string {
	parts := make([]string, len(values))
	for i := range values {
		parts[i] = "r" + strconv.Itoa(i)
	}
	return strings.Join(parts, ", ")
}

func resultAts(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("proxy.ResultAt[%s](results, %d)", v, i)
	}
	return strings.Join(parts, ", ")
}

func returnList(m methodData) string {
	types := append([]string{}, m.Values...)
	if m.ReturnsError {
		types = append(types, "error")
	}
	switch len(types) {
	case 0:
		return ""
	case 1:
		return " " + types[0]
	default:
		return " (" + strings.Join(types, ", ") + ")"
	}
}

// -------------------------
// Output
// -------------------------

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func execTemplate(tpl *template.Template, data any) ([]byte, error) {
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return []byte(sb.String()), nil
}

// writeFormatted gofmts src and writes it atomically. On a format failure the
// unformatted source is kept next to out for inspection.
func writeFormatted(out string, src []byte) error {
	fmtSrc, err := format.Source(src)
	if err != nil {
		_ = os.WriteFile(out+".broken", src, 0o644)
		return fmt.Errorf("format generated code: %w", err)
	}
	if err := writeFileAtomic(out, fmtSrc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.ToSlash(out), err)
	}
	return nil
}

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeFileAtomic writes to a temporary file in the target's directory and
// renames it over the target, so readers never observe partial writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	tmpFile, err := createTempFile(filepath.Dir(targetPath), filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}

// -------------------------
// Template
// -------------------------

var facadeTpl = template.Must(
	template.New("facade").
		Funcs(template.FuncMap{
			"paramDecls": paramDecls,
			"callArgs":   callArgs,
			"paramNames": paramNames,
			"argList":    argList,
			"resultVars": resultVars,
			"resultAts":  resultAts,
			"returnList": returnList,
		}).
		Parse(`// Code generated by proxygen; DO NOT EDIT.
// Spec: {{.SpecPath}}
// Spec-SHA256: {{.SpecHash}}

package {{.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.Facade}} routes every method of {{.TargetType}} through proxy hooks.
type {{.Facade}} struct {
	*proxy.Proxy[{{.TargetType}}]
}
{{- if .Interface }}

var _ {{.Interface}} = (*{{.Facade}})(nil)
{{- end }}

// New{{.Facade}} wraps target with cfg.
func New{{.Facade}}(target {{.TargetType}}, cfg proxy.Config) *{{.Facade}} {
	return &{{.Facade}}{Proxy: proxy.New(target, cfg)}
}
{{- if .Aspects }}

// {{.Facade}}Aspects are the catalog names composed by New{{.Facade}}FromCatalog, outermost first.
var {{.Facade}}Aspects = []string{
{{- range .Aspects }}
	"{{ . }}",
{{- end }}
}

// New{{.Facade}}FromCatalog wraps target with the aspects named in {{.Facade}}Aspects.
func New{{.Facade}}FromCatalog(target {{.TargetType}}, cat proxy.Catalog) (*{{.Facade}}, error) {
	cfg, err := proxy.Compose(cat, {{.Facade}}Aspects...)
	if err != nil {
		return nil, err
	}
	return New{{.Facade}}(target, cfg), nil
}
{{- end }}
{{- with .Ctor }}

// Construct{{$.Facade}} builds the target with {{.Name}} and wraps it with cfg.
{{- if .ReturnsError }}
func Construct{{$.Facade}}(cfg proxy.Config{{ if .Params }}, {{ paramDecls .Params }}{{ end }}) (*{{$.Facade}}, error) {
	target, err := {{.Name}}({{ callArgs .Params }})
	if err != nil {
		return nil, err
	}
	return New{{$.Facade}}(target, cfg), nil
}
{{- else }}
func Construct{{$.Facade}}(cfg proxy.Config{{ if .Params }}, {{ paramDecls .Params }}{{ end }}) *{{$.Facade}} {
	return New{{$.Facade}}({{.Name}}({{ callArgs .Params }}), cfg)
}
{{- end }}
{{- end }}
{{ range .Methods }}
func (p *{{$.Facade}}) {{.Name}}({{ paramDecls .Params }}){{ returnList . }} {
{{- if .Values }}
	results, err := p.Proxy.Invoke("{{.Name}}", {{ paramNames .Params }}, {{ argList .Params }}, func(t {{$.TargetType}}) ([]any, error) {
{{- if .ReturnsError }}
		{{ resultVars .Values }}, err := t.{{.Name}}({{ callArgs .Params }})
		return []any{ {{- resultVars .Values -}} }, err
{{- else }}
		{{ resultVars .Values }} := t.{{.Name}}({{ callArgs .Params }})
		return []any{ {{- resultVars .Values -}} }, nil
{{- end }}
	})
{{- if .ReturnsError }}
	return {{ resultAts .Values }}, err
{{- else }}
	if err != nil {
		panic(err)
	}
	return {{ resultAts .Values }}
{{- end }}
{{- else }}
	_, err := p.Proxy.Invoke("{{.Name}}", {{ paramNames .Params }}, {{ argList .Params }}, func(t {{$.TargetType}}) ([]any, error) {
{{- if .ReturnsError }}
		return nil, t.{{.Name}}({{ callArgs .Params }})
{{- else }}
		t.{{.Name}}({{ callArgs .Params }})
		return nil, nil
{{- end }}
	})
{{- if .ReturnsError }}
	return err
{{- else }}
	if err != nil {
		panic(err)
	}
{{- end }}
{{- end }}
}
{{ end }}`),
)

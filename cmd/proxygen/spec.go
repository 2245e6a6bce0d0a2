package main

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultProxyImport = "github.com/sghaida/oproxy/proxy"

// GoImport is one import line of the generated file.
type GoImport struct {
	Name string `yaml:"name"` // optional alias
	Path string `yaml:"path"`
}

type Imports struct {
	// Proxy overrides the import path of the proxy runtime package.
	Proxy string `yaml:"proxy"`

	// Extra imports for qualifiers that cannot be inferred from the source
	// package, e.g. when methods are declared in the spec.
	Extra []GoImport `yaml:"extra"`
}

type ConstructorSpec struct {
	// Name of a package-level func returning the target, optionally with an
	// error: func(...) T or func(...) (T, error).
	Name string `yaml:"name"`
}

type MethodParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "...T" for a variadic final parameter
}

type MethodReturn struct {
	Type string `yaml:"type"`
}

type MethodSpec struct {
	Name    string         `yaml:"name"`
	Params  []MethodParam  `yaml:"params"`
	Returns []MethodReturn `yaml:"returns"`
}

// Spec describes one generated proxy facade. YAML is a superset of JSON, so
// *.proxy.json files load through the same path.
type Spec struct {
	Package string `yaml:"package"`
	Target  string `yaml:"target"`

	// Pointer wraps *Target instead of Target. Defaults to true for struct
	// targets and false for interface targets.
	Pointer *bool `yaml:"pointer"`

	// FacadeName defaults to <Target>Proxy.
	FacadeName string `yaml:"facadeName"`

	// Interface, when set, emits a compile-time assertion that the facade
	// implements it.
	Interface string `yaml:"interface"`

	// Source is the directory holding the target's package, relative to the
	// spec file. Defaults to the spec's directory.
	Source string `yaml:"source"`

	Constructor *ConstructorSpec `yaml:"constructor"`

	// Aspects are catalog names composed by New<Facade>FromCatalog, outermost
	// first.
	Aspects []string `yaml:"aspects"`

	// Methods replaces source discovery when set.
	Methods []MethodSpec `yaml:"methods"`
	Exclude []string     `yaml:"exclude"`

	Imports Imports `yaml:"imports"`
}

// loadSpec reads and decodes a spec file. Unknown keys are rejected so that
// typos surface instead of silently falling back to defaults.
func loadSpec(path string) (*Spec, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read spec: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var s Spec
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("spec %s is empty", filepath.ToSlash(path))
		}
		return nil, nil, fmt.Errorf("parse spec %s: %w", filepath.ToSlash(path), err)
	}
	if err := s.validate(); err != nil {
		return nil, nil, fmt.Errorf("spec %s: %w", filepath.ToSlash(path), err)
	}
	s.applyDefaults()
	return &s, raw, nil
}

func (s *Spec) applyDefaults() {
	if s.FacadeName == "" {
		s.FacadeName = s.Target + "Proxy"
	}
	if s.Imports.Proxy == "" {
		s.Imports.Proxy = defaultProxyImport
	}
	if s.Source == "" {
		s.Source = "."
	}
}

func (s *Spec) validate() error {
	if s.Package == "" {
		return errors.New("package is required")
	}
	if s.Target == "" {
		return errors.New("target is required")
	}
	for field, v := range map[string]string{
		"package":    s.Package,
		"target":     s.Target,
		"facadeName": s.FacadeName,
		"interface":  s.Interface,
	} {
		if v != "" && !token.IsIdentifier(v) {
			return fmt.Errorf("%s %q is not a valid identifier", field, v)
		}
	}
	if s.Constructor != nil && !token.IsIdentifier(s.Constructor.Name) {
		return fmt.Errorf("constructor.name %q is not a valid identifier", s.Constructor.Name)
	}

	seen := map[string]bool{}
	for _, a := range s.Aspects {
		if a == "" {
			return errors.New("aspects must not contain empty names")
		}
		if seen[a] {
			return fmt.Errorf("aspect %q listed twice", a)
		}
		seen[a] = true
	}

	for _, m := range s.Methods {
		if !token.IsExported(m.Name) || !token.IsIdentifier(m.Name) {
			return fmt.Errorf("method %q must be an exported identifier", m.Name)
		}
		for _, p := range m.Params {
			if p.Type == "" {
				return fmt.Errorf("method %s: parameter %q has no type", m.Name, p.Name)
			}
		}
		for _, r := range m.Returns {
			if r.Type == "" {
				return fmt.Errorf("method %s: return without type", m.Name)
			}
		}
	}
	for _, gi := range s.Imports.Extra {
		if gi.Path == "" {
			return errors.New("imports.extra entries need a path")
		}
	}
	return nil
}

// pointer resolves the Pointer default once the target's kind is known.
func (s *Spec) pointer(isInterface bool) bool {
	if s.Pointer != nil {
		return *s.Pointer
	}
	return !isInterface
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func (p *pkgHarness) path(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	b, err := os.ReadFile(filepath.Join(p.dir, rel))
	if err != nil {
		p.t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

// calcSource exercises value and pointer receivers, promotion from an
// embedded type, variadics, unnamed and colliding parameter names, and an
// aliased import.
const calcSource = `package calc

import (
	"context"
	"errors"
	tm "time"
)

type Base struct{}

func (Base) Version() string { return "v1" }

func (*Base) reset() {}

type Calc struct {
	Base
	total int
}

type Adder interface {
	Add(a, b int) int
}

func NewCalc(start int) (*Calc, error) {
	if start < 0 {
		return nil, errors.New("negative start")
	}
	return &Calc{total: start}, nil
}

func MakeCalc() *Calc { return &Calc{} }

func (c *Calc) Add(a, b int) int { return a + b }

func (c *Calc) Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func (c *Calc) Sum(nums ...int) int {
	s := 0
	for _, n := range nums {
		s += n
	}
	return s
}

func (c *Calc) Wait(ctx context.Context, d tm.Duration) error { return nil }

func (c *Calc) Reset() { c.total = 0 }

func (c Calc) Total() int { return c.total }

func (c *Calc) Swap(p, t int) (int, int) { return t, p }

func (c *Calc) Ignore(string, int) bool { return true }

func (c *Calc) helper() {}
`

const calcSpec = `package: calc
target: Calc
interface: Adder
constructor:
  name: NewCalc
aspects: [timer, logging]
`

// newCalcPkg writes the calc fixture plus a spec and returns the harness.
func newCalcPkg(t *testing.T, spec string) *pkgHarness {
	t.Helper()
	p := newPkg(t)
	p.write("calc.go", calcSource)
	p.write("calc.proxy.yaml", spec)
	return p
}

func assertContainsInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, part := range parts {
		i := strings.Index(s[pos:], part)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d in:\n%s", part, pos, s)
		}
		pos += i + len(part)
	}
}

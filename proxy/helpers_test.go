package proxy_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ErrDivideByZero = errors.New("divide by zero")

// Calculator is the target used across the proxy tests. It counts every
// method call so tests can assert exactly-once forwarding.
type Calculator struct {
	Name  string
	calls atomic.Int64
}

func NewCalculator() *Calculator { return &Calculator{Name: "default"} }

func NewNamedCalculator(name string) (*Calculator, error) {
	if name == "" {
		return nil, errors.New("calculator name is required")
	}
	return &Calculator{Name: name}, nil
}

func (c *Calculator) Add(a, b int) int {
	c.calls.Add(1)
	return a + b
}

func (c *Calculator) Divide(a, b float64) (float64, error) {
	c.calls.Add(1)
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

func (c *Calculator) Sum(nums ...int) int {
	c.calls.Add(1)
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func (c *Calculator) Explode() {
	c.calls.Add(1)
	panic("boom")
}

func (c *Calculator) Calls() int64 { return c.calls.Load() }

func (c *Calculator) reset() { c.calls.Store(0) }

// Adder is a narrow view of Calculator.
type Adder interface {
	Add(a, b int) int
}

// recorder collects hook events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	var coder goerrors.ErrorCoder
	require.True(t, errors.As(err, &coder), "expected coded error, got %T: %v", err, err)
	assert.Equal(t, code, string(coder.ErrorCode()))
}

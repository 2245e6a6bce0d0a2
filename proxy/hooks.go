package proxy

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Kind names one of the four hook stages.
type Kind string

const (
	KindBefore      Kind = "before"
	KindAfter       Kind = "after"
	KindAround      Kind = "around"
	KindOnException Kind = "on_exception"
)

// Call describes a single intercepted invocation. A new Call is built for
// every invocation and shared by all hooks of that invocation only.
type Call struct {
	// Target is the value whose method is being called.
	Target any

	// Method is the exported method name.
	Method string

	// Args are the positional arguments. For variadic methods the trailing
	// element is the variadic slice itself.
	Args []any

	// Params holds parameter names when they are known (generated adapters
	// always fill it). It is nil for reflective calls.
	Params []string

	idOnce sync.Once
	id     string
}

// ID returns a per-call identifier, allocated on first use. It is safe to
// call from hooks running on other goroutines, such as behind Timeout.
func (c *Call) ID() string {
	c.idOnce.Do(func() { c.id = uuid.NewString() })
	return c.id
}

// Kwargs returns arguments keyed by parameter name. It is empty when
// parameter names are unknown.
func (c *Call) Kwargs() map[string]any {
	if len(c.Params) == 0 || len(c.Params) != len(c.Args) {
		return map[string]any{}
	}
	out := make(map[string]any, len(c.Params))
	for i, name := range c.Params {
		out[name] = c.Args[i]
	}
	return out
}

// Context returns the first context.Context argument of the call, or
// context.Background when the method takes none.
func (c *Call) Context() context.Context {
	for _, a := range c.Args {
		if ctx, ok := a.(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// Proceed invokes the original method once with the original arguments.
type Proceed func() ([]any, error)

// BeforeFunc runs ahead of the call. A non-nil error aborts the call.
type BeforeFunc func(c *Call) error

// AfterFunc observes the results of a successful call.
type AfterFunc func(c *Call, results []any) error

// AroundFunc owns the call. It decides how many times proceed runs and its
// return value becomes the call's result.
type AroundFunc func(c *Call, proceed Proceed) ([]any, error)

// OnExceptionFunc observes a failed call. It cannot replace the error.
type OnExceptionFunc func(c *Call, err error)

// Config maps hook kinds to callbacks. Unset fields mean no interception for
// that stage.
type Config struct {
	Before      BeforeFunc
	After       AfterFunc
	Around      AroundFunc
	OnException OnExceptionFunc
}

// IsEmpty reports whether no hook is set.
func (c Config) IsEmpty() bool {
	return c.Before == nil && c.After == nil && c.Around == nil && c.OnException == nil
}

// Kinds lists the kinds that are set, in protocol order.
func (c Config) Kinds() []Kind {
	kinds := make([]Kind, 0, 4)
	if c.Before != nil {
		kinds = append(kinds, KindBefore)
	}
	if c.Around != nil {
		kinds = append(kinds, KindAround)
	}
	if c.After != nil {
		kinds = append(kinds, KindAfter)
	}
	if c.OnException != nil {
		kinds = append(kinds, KindOnException)
	}
	return kinds
}

// Has reports whether the hook of the given kind is set.
func (c Config) Has(k Kind) bool {
	switch k {
	case KindBefore:
		return c.Before != nil
	case KindAfter:
		return c.After != nil
	case KindAround:
		return c.Around != nil
	case KindOnException:
		return c.OnException != nil
	default:
		return false
	}
}

// Merge returns c with every kind set in other overwriting the same kind in c.
// Kinds that other leaves unset keep their value from c.
func (c Config) Merge(other Config) Config {
	if other.Before != nil {
		c.Before = other.Before
	}
	if other.After != nil {
		c.After = other.After
	}
	if other.Around != nil {
		c.Around = other.Around
	}
	if other.OnException != nil {
		c.OnException = other.OnException
	}
	return c
}

// HookOption sets one hook on a Config.
type HookOption func(*Config)

// Before sets the before hook.
func Before(fn BeforeFunc) HookOption { return func(c *Config) { c.Before = fn } }

// After sets the after hook.
func After(fn AfterFunc) HookOption { return func(c *Config) { c.After = fn } }

// Around sets the around hook.
func Around(fn AroundFunc) HookOption { return func(c *Config) { c.Around = fn } }

// OnException sets the on-exception hook.
func OnException(fn OnExceptionFunc) HookOption { return func(c *Config) { c.OnException = fn } }

// Hooks builds a Config from options. Later options win for the same kind.
func Hooks(opts ...HookOption) Config {
	var cfg Config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

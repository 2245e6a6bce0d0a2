package proxy

import (
	"reflect"
	"sync/atomic"
)

// Proxy wraps a target of type T and routes its methods through a Config.
//
// The method surface is fixed at construction: every exported method of the
// target's dynamic type is forwarded, nothing is added or removed.
//
// The Config is swapped atomically when aspects are added, so a call in flight
// keeps the Config it started with.
type Proxy[T any] struct {
	target  T
	config  atomic.Pointer[Config]
	methods *methodSet
}

// New wraps an existing value (instance strategy).
func New[T any](target T, cfg Config) *Proxy[T] {
	p := &Proxy[T]{
		target:  target,
		methods: methodsOf(reflect.TypeOf(any(target))),
	}
	p.config.Store(&cfg)
	return p
}

// CreateAspect wraps target with the given hooks. It is a convenience over New.
func CreateAspect[T any](target T, hooks ...HookOption) *Proxy[T] {
	return New(target, Hooks(hooks...))
}

// Target returns the wrapped value.
func (p *Proxy[T]) Target() T { return p.target }

// Config returns a copy of the current hook configuration.
func (p *Proxy[T]) Config() Config { return *p.config.Load() }

// Methods lists the forwarded method names, sorted.
func (p *Proxy[T]) Methods() []string {
	out := make([]string, len(p.methods.names))
	copy(out, p.methods.names)
	return out
}

// Has reports whether name is a forwarded method.
func (p *Proxy[T]) Has(name string) bool { return p.methods.has(name) }

// Extend merges cfg into the proxy's Config in place and returns p.
func (p *Proxy[T]) Extend(cfg Config) *Proxy[T] {
	p.extend(cfg)
	return p
}

// Invoke runs fn through the hook protocol as the named method. fn receives the
// target explicitly and performs the real call; generated adapters use this so
// that arguments and results keep their static types.
//
// params may be nil when parameter names are unknown.
func (p *Proxy[T]) Invoke(method string, params []string, args []any, fn func(target T) ([]any, error)) ([]any, error) {
	call := &Call{Target: p.target, Method: method, Args: args, Params: params}
	return Dispatch(*p.config.Load(), call, func() ([]any, error) {
		return fn(p.target)
	})
}

// Call forwards the named method reflectively through the hook protocol.
// Unknown method names and arguments that do not fit the signature are
// reported without running any hook.
func (p *Proxy[T]) Call(method string, args ...any) ([]any, error) {
	run, err := p.methods.prepare(p.target, method, args)
	if err != nil {
		return nil, err
	}
	call := &Call{Target: p.target, Method: method, Args: args}
	return Dispatch(*p.config.Load(), call, run)
}

func (p *Proxy[T]) bound() bool { return p != nil && p.config.Load() != nil }
func (p *Proxy[T]) unwrap() any { return p.target }
func (p *Proxy[T]) hooks() Config { return p.Config() }
func (p *Proxy[T]) extend(cfg Config) {
	for {
		cur := p.config.Load()
		next := cur.Merge(cfg)
		if p.config.CompareAndSwap(cur, &next) {
			return
		}
	}
}

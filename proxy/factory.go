package proxy

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/agilira/go-errors"
)

// Constructor builds a target from constructor arguments.
type Constructor[T any] func(args ...any) (T, error)

// Factory is the class strategy: it wraps a constructor instead of a value.
// Every New call constructs a fresh target with the given arguments and
// returns a proxy around it that starts from the factory's Config.
type Factory[T any] struct {
	ctor   Constructor[T]
	config atomic.Pointer[Config]
}

// NewFactory wraps ctor so that every constructed target is proxied with cfg.
func NewFactory[T any](ctor Constructor[T], cfg Config) *Factory[T] {
	f := &Factory[T]{ctor: ctor}
	f.config.Store(&cfg)
	return f
}

// New constructs the underlying target with args and returns its proxy. A
// constructor error is returned unchanged.
func (f *Factory[T]) New(args ...any) (*Proxy[T], error) {
	if f.ctor == nil {
		return nil, invalidArgument("factory has no constructor")
	}
	target, err := f.ctor(args...)
	if err != nil {
		return nil, err
	}
	return New(target, f.Config()), nil
}

// MustNew is New that panics on error.
func (f *Factory[T]) MustNew(args ...any) *Proxy[T] {
	p, err := f.New(args...)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns a copy of the Config given to future proxies.
func (f *Factory[T]) Config() Config { return *f.config.Load() }

// Constructor returns the wrapped constructor.
func (f *Factory[T]) Constructor() Constructor[T] { return f.ctor }

// Methods lists the exported methods of T. Proxies built from interface types
// forward the full method set of the constructed value's dynamic type.
func (f *Factory[T]) Methods() []string { return Methods(reflect.TypeFor[T]()) }

func (f *Factory[T]) bound() bool { return f != nil && f.config.Load() != nil }
func (f *Factory[T]) unwrap() any { return f.ctor }
func (f *Factory[T]) hooks() Config { return f.Config() }
func (f *Factory[T]) extend(cfg Config) {
	for {
		cur := f.config.Load()
		next := cur.Merge(cfg)
		if f.config.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// ClassOf adapts a Go constructor func to a Constructor. fn must return T (or a
// type assignable to T), optionally followed by an error.
//
//	ctor, err := proxy.ClassOf[*Calculator](NewCalculator)
func ClassOf[T any](fn any) (Constructor[T], error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.New(ErrCodeNotConstructor, fmt.Sprintf("proxy: %T is not a constructor func", fn))
	}
	ft := fv.Type()
	if !isConstructorType(ft) {
		return nil, errors.New(ErrCodeNotConstructor, fmt.Sprintf("proxy: %s must return T or (T, error)", ft))
	}
	want := reflect.TypeFor[T]()
	if !ft.Out(0).AssignableTo(want) {
		return nil, errors.New(ErrCodeNotConstructor, fmt.Sprintf("proxy: %s returns %s, not assignable to %s", ft, ft.Out(0), want))
	}

	name := ft.String()
	return func(args ...any) (T, error) {
		var zero T
		in, err := convertArgs(name, ft, 0, args)
		if err != nil {
			return zero, err
		}
		var out []reflect.Value
		if ft.IsVariadic() {
			out = fv.CallSlice(in)
		} else {
			out = fv.Call(in)
		}
		if len(out) == 2 && !out[1].IsNil() {
			return zero, out[1].Interface().(error)
		}
		if v, ok := out[0].Interface().(T); ok {
			return v, nil
		}
		return zero, nil
	}, nil
}

// MustClassOf is ClassOf that panics on error.
func MustClassOf[T any](fn any) Constructor[T] {
	ctor, err := ClassOf[T](fn)
	if err != nil {
		panic(err)
	}
	return ctor
}

// typeConstructor constructs a pointer to a new zero value of t.
func typeConstructor(t reflect.Type) Constructor[any] {
	return func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, invalidArgument(fmt.Sprintf("%s takes no constructor arguments, got %d", t, len(args)))
		}
		return reflect.New(t).Interface(), nil
	}
}

// isConstructorType reports whether ft has the shape func(...) T or
// func(...) (T, error) with T not itself an error.
func isConstructorType(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return ft.Out(0) != errorType
	case 2:
		return ft.Out(0) != errorType && ft.Out(1) == errorType
	default:
		return false
	}
}

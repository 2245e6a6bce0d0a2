package proxy

import "reflect"

// Strategy selects how Create builds a proxy.
type Strategy int

const (
	// StrategyInstance wraps an existing value.
	StrategyInstance Strategy = iota

	// StrategyClass wraps a constructor; each construction yields a new proxy.
	StrategyClass
)

func (s Strategy) String() string {
	switch s {
	case StrategyInstance:
		return "instance"
	case StrategyClass:
		return "class"
	default:
		return "unknown"
	}
}

// Resolve decides the construction strategy for v. A reflect.Type or a
// constructor-shaped func (returning T or (T, error)) is a class; everything
// else, including funcs of other shapes, is an instance.
func Resolve(v any) Strategy {
	if _, ok := v.(reflect.Type); ok {
		return StrategyClass
	}
	fv := reflect.ValueOf(v)
	if fv.Kind() == reflect.Func && !fv.IsNil() && isConstructorType(fv.Type()) {
		return StrategyClass
	}
	return StrategyInstance
}

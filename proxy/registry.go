package proxy

import "reflect"

// Proxied is implemented by every proxy this package builds: *Proxy[T],
// *Factory[T] and any type embedding one of them, such as a generated adapter.
// Its methods are unexported, so other packages cannot forge a proxy.
type Proxied interface {
	unwrap() any
	hooks() Config
	extend(cfg Config)
	bound() bool
}

// asProxied returns v as a usable proxy. Nil pointers and adapters whose
// embedded proxy is nil (for example a zero-value generated facade) are not
// proxies.
func asProxied(v any) (Proxied, bool) {
	p, ok := v.(Proxied)
	if !ok {
		return nil, false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	if !p.bound() {
		return nil, false
	}
	return p, true
}

// IsProxy reports whether v is a proxy.
func IsProxy(v any) bool {
	_, ok := asProxied(v)
	return ok
}

// GetTarget returns the value wrapped by v, or v itself when v is not a
// proxy. For a Factory it returns the constructor.
func GetTarget(v any) any {
	if p, ok := asProxied(v); ok {
		return p.unwrap()
	}
	return v
}

// TargetAs returns the unwrapped target of v converted to T.
func TargetAs[T any](v any) (T, bool) {
	t, ok := GetTarget(v).(T)
	return t, ok
}

// GetProxyConfig returns a copy of v's Config, or an empty Config when v is
// not a proxy.
func GetProxyConfig(v any) Config {
	if p, ok := asProxied(v); ok {
		return p.hooks()
	}
	return Config{}
}

// AddAspect merges cfg into v. If v is already a proxy its Config is updated
// in place, kind by kind, and v is returned; kinds cfg leaves unset keep their
// current hooks. Otherwise a new proxy is created with Create.
func AddAspect(v any, cfg Config) Proxied {
	if p, ok := asProxied(v); ok {
		p.extend(cfg)
		return p
	}
	return Create(v, cfg)
}

// RemoveAspect strips the proxy and returns the underlying target.
func RemoveAspect(v any) any { return GetTarget(v) }

// Create resolves the strategy for target and builds the matching proxy:
// a *Factory[any] for a reflect.Type or constructor func, a *Proxy[any]
// otherwise. A reflect.Type constructs a pointer to a new zero value.
func Create(target any, cfg Config) Proxied {
	if Resolve(target) == StrategyInstance {
		return New[any](target, cfg)
	}
	if t, ok := target.(reflect.Type); ok {
		return NewFactory(typeConstructor(t), cfg)
	}
	return NewFactory(MustClassOf[any](target), cfg)
}

// Command proxygen generates typed proxy facades.
//
// A facade embeds *proxy.Proxy[T] and re-declares every exported method of T
// with its real signature. Each method routes the call through the proxy's
// hook configuration, so callers keep static types while before, after,
// around and on_exception hooks still see every call.
//
// The embedded proxy also promotes Target, Config, Methods, Has, Extend,
// Invoke and Call onto the facade. A target method with one of those names
// (or named Proxy) is rejected; list it under exclude to generate the rest.
//
// What proxygen generates
//
// For a spec such as
//
//	package: calculator
//	target: Calculator
//	constructor:
//	  name: NewCalculator
//	aspects: [timer, logging]
//	interface: Arithmetic
//
// the output contains
//
//   - type CalculatorProxy struct{ *proxy.Proxy[*Calculator] }
//   - NewCalculatorProxy(target, cfg) to wrap an existing value
//   - ConstructCalculatorProxy(cfg, ...) to build the target with its
//     constructor first
//   - NewCalculatorProxyFromCatalog(target, cat) composing the named aspects
//   - one forwarding method per exported method of *Calculator
//   - var _ Arithmetic = (*CalculatorProxy)(nil)
//
// Methods are discovered from the target package's source with go/ast,
// including methods promoted from embedded types of the same package. A spec
// may instead declare them under methods, and may drop some with exclude.
//
// Methods without an error result have no way to report a hook failure, so
// their generated forwarders panic with it.
//
// Spec fields
//
//	package      package of the generated file (must match the source)
//	target       type to wrap
//	pointer      wrap *target (default true for structs, false for interfaces)
//	facadeName   default <target>Proxy
//	interface    optional compile-time assertion
//	source       source directory, relative to the spec (default ".")
//	constructor  {name: NewX}; func(...) T or func(...) (T, error)
//	aspects      catalog names for New<Facade>FromCatalog
//	methods      declared methods, replacing discovery
//	exclude      method names not to forward
//	imports      {proxy: <path>, extra: [{name, path}]}
//
// Typical go:generate usage
//
//	//go:generate go run ../../cmd/proxygen generate --spec calculator.proxy.yaml --out calculator_proxy.gen.go
//
// With --watch the generator keeps running and regenerates whenever the spec
// or a source file of the target package changes.
//
// The methods subcommand prints the signatures a facade would forward:
//
//	proxygen methods --dir ./examples/calculator --type Calculator
package main

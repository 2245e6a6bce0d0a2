// Package oproxy intercepts method calls on ordinary Go values.
//
// A proxy wraps a value (or a constructor that produces one) so that every
// exported method call runs through four optional hooks: before, around,
// after and on_exception. The wrapped type is never modified and knows
// nothing about the hooks.
//
// Subpackages:
//   - proxy: the engine (Proxy[T], Factory[T], Dispatch, the registry
//     functions and the named aspect Catalog)
//   - aspect: ready-made hooks for timing, logging, transactions, metrics,
//     tracing, timeouts, caching, rate limiting, authorization and auditing
//   - aspect/grpcaspect: run a hook Config around gRPC unary calls
//   - cmd/proxygen: generates typed facades from a small YAML spec
//   - examples/*: runnable end-to-end wiring
//
// Reflection is only used by Proxy.Call and Factory; generated facades call
// the target directly.
package oproxy

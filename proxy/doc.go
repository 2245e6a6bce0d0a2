// Package proxy wraps values so that every exported method call runs through a
// set of interception hooks, without changing the wrapped type.
//
// A proxy owns two things: an explicit reference to its target and a single
// Config holding up to four hooks:
//
//   - Before runs ahead of the call and may veto it by returning an error.
//   - Around receives a Proceed continuation and decides whether, and how many
//     times, the original method runs. Its return value is the call's result.
//   - After observes the results of a successful call.
//   - OnException observes a failed call. The original error is always handed
//     back to the caller unchanged.
//
// Two construction strategies exist:
//
//   - Instance: New wraps a value that already exists.
//   - Class: NewFactory (or Create with a constructor func / reflect.Type) wraps a
//     constructor; each Factory.New call constructs the target and returns a proxy
//     around it.
//
// In both cases methods are called as method(target, args...) with the target
// passed explicitly. Reflective forwarding is available through Proxy.Call;
// typed adapters with the exact method surface of a target type are produced
// by cmd/proxygen and route through Proxy.Invoke.
//
// Quick guidance
//
//	p := proxy.New(calc, proxy.Config{
//		Before: func(c *proxy.Call) error {
//			log.Println("calling", c.Method)
//			return nil
//		},
//	})
//	out, err := p.Call("Add", 1, 2) // out == []any{3}
//
// Registry helpers (IsProxy, GetTarget, GetProxyConfig, AddAspect, RemoveAspect)
// work on any value, proxy or not. Proxies are recognised through the sealed
// Proxied interface, never by probing fields.
//
// The engine is synchronous and adds no goroutines, timeouts or retries of its
// own. State shared between concurrent calls belongs to the hook author.
//
// Import
//
//	"github.com/sghaida/oproxy/proxy"
package proxy

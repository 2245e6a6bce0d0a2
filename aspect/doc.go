// Package aspect provides ready-made hook sets for the proxy package.
//
// Every preset is an ordinary proxy.Config, so presets can be applied with
// proxy.New, stacked with proxy.AddAspect (overwrite per kind) or composed with
// proxy.Chain (all run).
//
// The original three presets wrap a target directly:
//
//	calc := aspect.NewTimer(&Calculator{}, aspect.WithLogger(logger))
//	calc  = aspect.NewLogging(calc.Target())
//	svc  := aspect.NewTransaction(svc, begin, commit, rollback)
//
// The remaining presets are built from a value that owns their state:
//
//	m, _ := aspect.NewMetrics(prometheus.DefaultRegisterer, "bank")
//	cache := aspect.NewCache(time.Minute)
//	cfg := proxy.Chain(m.Config(), aspect.Tracing(nil), cache.Config())
//
// Presets never replace the error of the original method. The only errors
// they add are their own refusals (rate limited, timed out, permission
// denied), reported as coded errors.
package aspect

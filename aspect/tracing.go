package aspect

import (
	"fmt"

	"github.com/sghaida/oproxy/proxy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sghaida/oproxy/aspect"

// Tracing starts a span named "<target>.<method>" around every call. The span
// is a child of the call's context. A nil tracer uses the global provider.
//
// The original method still receives its own arguments; the span context is
// not injected into them.
func Tracing(tracer trace.Tracer, opts ...Option) proxy.Config {
	o := newOptions(opts)
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) ([]any, error) {
			target := o.target(c)
			_, span := tracer.Start(c.Context(), target+"."+c.Method,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("proxy.target", target),
					attribute.String("proxy.method", c.Method),
					attribute.String("proxy.call_id", c.ID()),
					attribute.Int("proxy.args", len(c.Args)),
				),
			)
			defer span.End()

			defer func() {
				if r := recover(); r != nil {
					span.SetStatus(codes.Error, fmt.Sprint(r))
					panic(r)
				}
			}()

			out, err := proceed()
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return out, err
			}
			span.SetStatus(codes.Ok, "")
			return out, nil
		},
	}
}

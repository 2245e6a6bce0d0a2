package aspect

import (
	"log/slog"

	"github.com/sghaida/oproxy/proxy"
)

// Logging logs the method and its arguments before the call, the results
// after a successful call and the error after a failed one.
func Logging(opts ...Option) proxy.Config {
	o := newOptions(opts)
	return proxy.Config{
		Before: func(c *proxy.Call) error {
			attrs := []slog.Attr{
				slog.String("call_id", c.ID()),
				slog.String("target", o.target(c)),
				slog.String("method", c.Method),
				slog.Any("args", c.Args),
			}
			if kw := c.Kwargs(); len(kw) > 0 {
				attrs = append(attrs, slog.Any("kwargs", kw))
			}
			o.logger.LogAttrs(c.Context(), o.level, "calling", attrs...)
			return nil
		},
		After: func(c *proxy.Call, results []any) error {
			o.logger.LogAttrs(c.Context(), o.level, "returned",
				slog.String("call_id", c.ID()),
				slog.String("target", o.target(c)),
				slog.String("method", c.Method),
				slog.Any("results", results),
			)
			return nil
		},
		OnException: func(c *proxy.Call, err error) {
			o.logger.LogAttrs(c.Context(), slog.LevelError, "raised",
				slog.String("call_id", c.ID()),
				slog.String("target", o.target(c)),
				slog.String("method", c.Method),
				slog.Any("error", err),
			)
		},
	}
}

// NewLogging wraps target with Logging.
func NewLogging[T any](target T, opts ...Option) *proxy.Proxy[T] {
	return proxy.New(target, Logging(opts...))
}

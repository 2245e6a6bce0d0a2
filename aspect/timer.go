package aspect

import (
	"fmt"
	"log/slog"

	"github.com/sghaida/oproxy/proxy"
)

// Timer measures every call with a single Around hook. The start time lives
// in the hook's own frame, so concurrent calls to the same method never share
// it.
func Timer(opts ...Option) proxy.Config {
	o := newOptions(opts)
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) ([]any, error) {
			start := o.clock()
			defer func() {
				if r := recover(); r != nil {
					o.logger.LogAttrs(c.Context(), slog.LevelError, "call panicked",
						slog.String("call_id", c.ID()),
						slog.String("target", o.target(c)),
						slog.String("method", c.Method),
						slog.Duration("elapsed", o.since(start)),
						slog.String("panic", fmt.Sprint(r)),
					)
					panic(r)
				}
			}()

			out, err := proceed()
			elapsed := o.since(start)

			if err != nil {
				o.logger.LogAttrs(c.Context(), slog.LevelError, "call failed",
					slog.String("call_id", c.ID()),
					slog.String("target", o.target(c)),
					slog.String("method", c.Method),
					slog.Duration("elapsed", elapsed),
					slog.Any("error", err),
				)
				return out, err
			}
			o.logger.LogAttrs(c.Context(), o.level, "call finished",
				slog.String("call_id", c.ID()),
				slog.String("target", o.target(c)),
				slog.String("method", c.Method),
				slog.Duration("elapsed", elapsed),
			)
			return out, nil
		},
	}
}

// NewTimer wraps target with Timer.
func NewTimer[T any](target T, opts ...Option) *proxy.Proxy[T] {
	return proxy.New(target, Timer(opts...))
}

package aspect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agilira/go-errors"
	"github.com/sghaida/oproxy/proxy"
)

// Timeout bounds each call to d. The original method runs on its own
// goroutine; when d elapses, or the call's context is done first, the caller
// gets an ASPECT_TIMEOUT error while the method finishes in the background and
// its results are dropped. A panic in the method is re-raised on the caller's
// goroutine. d <= 0 disables the bound.
func Timeout(d time.Duration, opts ...Option) proxy.Config {
	o := newOptions(opts)
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) ([]any, error) {
			if d <= 0 {
				return proceed()
			}

			type result struct {
				out   []any
				err   error
				panic any
			}
			done := make(chan result, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- result{panic: r}
					}
				}()
				out, err := proceed()
				done <- result{out: out, err: err}
			}()

			ctx, cancel := context.WithTimeout(c.Context(), d)
			defer cancel()

			select {
			case r := <-done:
				if r.panic != nil {
					panic(r.panic)
				}
				return r.out, r.err
			case <-ctx.Done():
				o.logger.LogAttrs(c.Context(), slog.LevelWarn, "call timed out",
					slog.String("call_id", c.ID()),
					slog.String("target", o.target(c)),
					slog.String("method", c.Method),
					slog.Duration("timeout", d),
				)
				return nil, errors.Wrap(ctx.Err(), ErrCodeTimeout, fmt.Sprintf("%s did not finish within %s", c.Method, d))
			}
		},
	}
}

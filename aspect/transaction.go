package aspect

import (
	"context"
	"log/slog"

	"github.com/sghaida/oproxy/proxy"
)

// Transaction brackets every call with begin and commit, or rollback on
// failure, using only an Around hook.
//
//   - begin fails: the call does not run and the begin error is returned.
//   - call succeeds: commit runs once. A commit error is returned with no
//     results.
//   - call fails: rollback runs once and the original error is returned
//     unchanged. A rollback error is logged, never returned.
//   - call panics: rollback runs once and the panic continues.
//
// The context handed to begin, commit and rollback is the call's context.
func Transaction[Tx any](
	begin func(ctx context.Context) (Tx, error),
	commit func(ctx context.Context, tx Tx) error,
	rollback func(ctx context.Context, tx Tx) error,
	opts ...Option,
) proxy.Config {
	o := newOptions(opts)
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) (out []any, err error) {
			ctx := c.Context()
			tx, err := begin(ctx)
			if err != nil {
				return nil, err
			}

			done := false
			defer func() {
				if done {
					return
				}
				if rbErr := rollback(ctx, tx); rbErr != nil {
					o.logger.LogAttrs(ctx, slog.LevelError, "rollback failed",
						slog.String("call_id", c.ID()),
						slog.String("method", c.Method),
						slog.Any("error", rbErr),
					)
				}
			}()

			out, err = proceed()
			if err != nil {
				return out, err
			}

			done = true
			if err := commit(ctx, tx); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// NewTransaction wraps target with Transaction.
func NewTransaction[T, Tx any](
	target T,
	begin func(ctx context.Context) (Tx, error),
	commit func(ctx context.Context, tx Tx) error,
	rollback func(ctx context.Context, tx Tx) error,
	opts ...Option,
) *proxy.Proxy[T] {
	return proxy.New(target, Transaction(begin, commit, rollback, opts...))
}

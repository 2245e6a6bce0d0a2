package aspect

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sghaida/oproxy/proxy"
)

// Option configures a preset.
type Option func(*options)

type options struct {
	logger *slog.Logger
	level  slog.Level
	clock  func() time.Time
	name   string
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		level:  slog.LevelInfo,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLevel sets the level for routine records. Failures are always logged at
// error level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithName sets the target name used in logs, metric labels, span names and
// audit records. The default is the target's Go type.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func (o options) target(c *proxy.Call) string {
	if o.name != "" {
		return o.name
	}
	return fmt.Sprintf("%T", c.Target)
}

func (o options) since(start time.Time) time.Duration {
	return o.clock().Sub(start)
}

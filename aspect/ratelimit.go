package aspect

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/sghaida/oproxy/proxy"
)

// RateLimiter admits at most limit calls per fixed window, across all methods
// of the proxies it is attached to. Refused calls never reach the target.
//
// The default clock is the cached clock from go-timecache, which is cheap to
// read on every call and precise to about a millisecond.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
	opts        options
}

// NewRateLimiter creates a limiter. limit <= 0 refuses every call.
func NewRateLimiter(limit int, window time.Duration, opts ...Option) *RateLimiter {
	o := newOptions(append([]Option{WithClock(timecache.CachedTime)}, opts...))
	return &RateLimiter{limit: limit, window: window, opts: o}
}

// Allow reports whether one more call fits in the current window and counts
// it if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.clock()
	if r.windowStart.IsZero() || !now.Before(r.windowStart.Add(r.window)) {
		r.windowStart = now
		r.count = 0
	}
	if r.count >= r.limit {
		return false
	}
	r.count++
	return true
}

// Config returns the Before hook enforcing the limit.
func (r *RateLimiter) Config() proxy.Config {
	return proxy.Config{
		Before: func(c *proxy.Call) error {
			if r.Allow() {
				return nil
			}
			return errors.New(ErrCodeRateLimited,
				fmt.Sprintf("%s.%s: more than %d calls per %s", r.opts.target(c), c.Method, r.limit, r.window))
		},
	}
}

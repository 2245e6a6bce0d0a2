package aspect

import (
	"context"
	"testing"
	"time"

	"github.com/sghaida/oproxy/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRateLimiter_RefusesOverLimit verifies refused calls never reach the target.
func TestRateLimiter_RefusesOverLimit(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	acct := &Account{}
	rl := NewRateLimiter(2, time.Second, WithClock(clk.Now), WithName("account"))
	p := proxy.New(acct, rl.Config())

	for i := 0; i < 2; i++ {
		_, err := p.Call("Deposit", context.Background(), 1)
		require.NoError(t, err)
	}

	_, err := p.Call("Deposit", context.Background(), 1)
	requireCode(t, err, ErrCodeRateLimited)
	assert.Contains(t, err.Error(), "account.Deposit")
	assert.Equal(t, int64(2), acct.Calls())

	clk.Advance(time.Second)
	_, err = p.Call("Deposit", context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acct.Calls())
}

// TestRateLimiter_RefusalReachesOnException verifies the refusal is observed like any before failure.
func TestRateLimiter_RefusalReachesOnException(t *testing.T) {
	t.Parallel()

	var seen error
	rl := NewRateLimiter(0, time.Second)
	cfg := rl.Config()
	cfg.OnException = func(_ *proxy.Call, err error) { seen = err }
	p := proxy.New(&Account{}, cfg)

	_, err := p.Call("Balance")
	requireCode(t, err, ErrCodeRateLimited)
	assert.True(t, seen == err)
}

// TestRateLimiter_DefaultClock verifies the cached clock admits calls.
func TestRateLimiter_DefaultClock(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, time.Hour)
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

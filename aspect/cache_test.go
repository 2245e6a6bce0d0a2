package aspect

import (
	"context"
	"testing"
	"time"

	"github.com/sghaida/oproxy/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCache_HitsSkipTarget verifies repeated calls with equal arguments are served from the cache.
func TestCache_HitsSkipTarget(t *testing.T) {
	t.Parallel()

	acct := &Account{}
	cache := NewCache(0)
	p := proxy.New(acct, cache.Config())

	out1, err := p.Call("Deposit", context.Background(), 5)
	require.NoError(t, err)
	out2, err := p.Call("Deposit", context.Background(), 5)
	require.NoError(t, err)
	out3, err := p.Call("Deposit", context.Background(), 6)
	require.NoError(t, err)

	assert.Equal(t, []any{5}, out1)
	assert.Equal(t, out1, out2)
	assert.Equal(t, []any{11}, out3)
	assert.Equal(t, int64(2), acct.Calls())
	assert.Equal(t, CacheStats{Hits: 1, Misses: 2, Entries: 2}, cache.Stats())
	assert.Equal(t, 2, cache.Len())
}

// TestCache_IgnoresContextArguments verifies calls differing only in their
// context share one entry.
func TestCache_IgnoresContextArguments(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	acct := &Account{}
	cache := NewCache(0)
	p := proxy.New(acct, cache.Config())

	deadline, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, ctx := range []context.Context{
		context.Background(),
		deadline,
		context.WithValue(context.Background(), ctxKey{}, "request-2"),
	} {
		out, err := p.Call("Deposit", ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []any{5}, out)
	}
	assert.Equal(t, int64(1), acct.Calls())
	assert.Equal(t, CacheStats{Hits: 2, Misses: 1, Entries: 1}, cache.Stats())
}

// TestCache_ErrorsNotCached verifies failed calls always reach the target.
func TestCache_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	acct := &Account{}
	cache := NewCache(time.Minute)
	p := proxy.New(acct, cache.Config())

	for i := 0; i < 3; i++ {
		_, err := p.Call("Deposit", context.Background(), -1)
		assert.True(t, err == errInvalidAmount)
	}
	assert.Equal(t, int64(3), acct.Calls())
	assert.Equal(t, 0, cache.Len())
}

// TestCache_TTLExpiry verifies entries expire after the ttl.
func TestCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	acct := &Account{}
	cache := NewCache(time.Second, WithClock(clk.Now))
	p := proxy.New(acct, cache.Config())

	_, err := p.Call("Balance")
	require.NoError(t, err)
	clk.Advance(500 * time.Millisecond)
	_, err = p.Call("Balance")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.Calls())

	clk.Advance(time.Second)
	_, err = p.Call("Balance")
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.Calls())
}

// TestCache_Invalidate verifies Invalidate drops every entry.
func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	acct := &Account{}
	cache := NewCache(0)
	p := proxy.New(acct, cache.Config())

	_, err := p.Call("Balance")
	require.NoError(t, err)
	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())

	_, err = p.Call("Balance")
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.Calls())
}

// TestCache_ResultsAreCopied verifies callers cannot corrupt cached results.
func TestCache_ResultsAreCopied(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	p := proxy.New(&Account{}, cache.Config())

	out, err := p.Call("Balance")
	require.NoError(t, err)
	out[0] = 999

	again, err := p.Call("Balance")
	require.NoError(t, err)
	assert.Equal(t, []any{0}, again)
}

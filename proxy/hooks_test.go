package proxy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sghaida/oproxy/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

//
// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// TestConfig_KindsAndHas verifies kinds are reported in protocol order.
func TestConfig_KindsAndHas(t *testing.T) {
	t.Parallel()

	var empty proxy.Config
	assert.True(t, empty.IsEmpty())
	assert.Empty(t, empty.Kinds())

	cfg := proxy.Hooks(
		proxy.OnException(func(*proxy.Call, error) {}),
		proxy.After(func(*proxy.Call, []any) error { return nil }),
		nil,
	)
	assert.False(t, cfg.IsEmpty())
	assert.Equal(t, []proxy.Kind{proxy.KindAfter, proxy.KindOnException}, cfg.Kinds())
	assert.True(t, cfg.Has(proxy.KindAfter))
	assert.False(t, cfg.Has(proxy.KindAround))
	assert.False(t, cfg.Has(proxy.Kind("never")))
}

// TestConfig_MergeKeepsUnsetKinds verifies Merge overwrites only set kinds.
func TestConfig_MergeKeepsUnsetKinds(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	base := proxy.Config{
		Before: func(*proxy.Call) error {
			rec.add("base-before")
			return nil
		},
		After: func(*proxy.Call, []any) error {
			rec.add("base-after")
			return nil
		},
	}
	merged := base.Merge(proxy.Config{
		After: func(*proxy.Call, []any) error {
			rec.add("new-after")
			return nil
		},
		Around: func(_ *proxy.Call, proceed proxy.Proceed) ([]any, error) { return proceed() },
	})

	require.NoError(t, merged.Before(nil))
	require.NoError(t, merged.After(nil, nil))
	require.NoError(t, base.After(nil, nil))
	assert.Equal(t, []string{"base-before", "new-after", "base-after"}, rec.list())
	assert.False(t, base.Has(proxy.KindAround), "merge must not mutate the receiver")
}

//
// -----------------------------------------------------------------------------
// Call
// -----------------------------------------------------------------------------

// TestCall_ContextArgument verifies Context returns the first context argument.
func TestCall_ContextArgument(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	c := &proxy.Call{Method: "Do", Args: []any{1, ctx}}
	assert.Equal(t, "v", c.Context().Value(ctxKey{}))

	assert.Equal(t, context.Background(), (&proxy.Call{}).Context())
}

// TestCall_KwargsMismatch verifies kwargs are empty when names and args disagree.
func TestCall_KwargsMismatch(t *testing.T) {
	t.Parallel()

	c := &proxy.Call{Args: []any{1, 2}, Params: []string{"a"}}
	assert.Empty(t, c.Kwargs())
}

//
// -----------------------------------------------------------------------------
// ResultAt
// -----------------------------------------------------------------------------

// TestResultAt verifies typed extraction, zero values and the wrong-type panic.
func TestResultAt(t *testing.T) {
	t.Parallel()

	results := []any{7, nil, "x"}
	assert.Equal(t, 7, proxy.ResultAt[int](results, 0))
	assert.Nil(t, proxy.ResultAt[error](results, 1))
	assert.Equal(t, "", proxy.ResultAt[string](results, 9))
	assert.Equal(t, 0, proxy.ResultAt[int](nil, 0))

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		requireCode(t, err, proxy.ErrCodeResultType)
	}()
	_ = proxy.ResultAt[int](results, 2)
	t.Fatal("ResultAt must panic on a wrong type")
}

// TestDispatch_Direct verifies Dispatch can be used without a Proxy.
func TestDispatch_Direct(t *testing.T) {
	t.Parallel()

	failure := errors.New("failure")
	var seen error
	call := &proxy.Call{Method: "Job"}
	out, err := proxy.Dispatch(proxy.Config{
		OnException: func(_ *proxy.Call, err error) { seen = err },
	}, call, func() ([]any, error) { return []any{"partial"}, failure })

	assert.Equal(t, []any{"partial"}, out)
	assert.True(t, err == failure)
	assert.True(t, seen == failure)
}

package aspect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sghaida/oproxy/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTimeout_FastCallPasses verifies calls finishing in time return normally.
func TestTimeout_FastCallPasses(t *testing.T) {
	t.Parallel()

	p := proxy.New(&Account{}, Timeout(time.Second, WithLogger(discardLogger())))

	out, err := p.Call("Slow", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []any{"done"}, out)

	_, err = p.Call("Deposit", context.Background(), 0)
	assert.True(t, err == errInvalidAmount)
}

// TestTimeout_SlowCallFails verifies an overrunning call is reported as a timeout.
func TestTimeout_SlowCallFails(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger()
	p := proxy.New(&Account{}, Timeout(10*time.Millisecond, WithLogger(logger)))

	out, err := p.Call("Slow", 500*time.Millisecond)
	assert.Nil(t, out)
	requireCode(t, err, ErrCodeTimeout)

	entries := buf.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "call timed out", entries[0]["msg"])
	assert.Equal(t, "Slow", entries[0]["method"])
}

// TestTimeout_CanceledContext verifies a canceled call context ends the wait early.
func TestTimeout_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	call := &proxy.Call{Method: "Wait", Args: []any{ctx}}
	_, err := proxy.Dispatch(Timeout(time.Minute, WithLogger(discardLogger())), call, func() ([]any, error) {
		<-release
		return nil, nil
	})
	requireCode(t, err, ErrCodeTimeout)
}

// TestTimeout_PanicReraised verifies a panic on the worker goroutine reaches the caller.
func TestTimeout_PanicReraised(t *testing.T) {
	t.Parallel()

	p := proxy.New(&Account{}, Timeout(time.Second))
	require.PanicsWithValue(t, "crash", func() { _, _ = p.Call("Crash") })
}

// TestTimeout_Disabled verifies a non-positive duration runs the call inline.
func TestTimeout_Disabled(t *testing.T) {
	t.Parallel()

	p := proxy.New(&Account{}, Timeout(0))
	out, err := p.Call("Slow", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []any{"done"}, out)
}

type memorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *memorySink) Write(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *memorySink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// TestTimeout_SharesCallIDWithInnerHooks verifies the timed-out caller and the
// hooks still running on the worker goroutine agree on one call id.
func TestTimeout_SharesCallIDWithInnerHooks(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger()
	sink := &memorySink{}
	p := proxy.New(&Account{}, proxy.Chain(
		Timeout(5*time.Millisecond, WithLogger(logger)),
		Audit(sink, WithLogger(discardLogger())),
	))

	_, err := p.Call("Slow", 50*time.Millisecond)
	requireCode(t, err, ErrCodeTimeout)

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	entries := buf.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "call timed out", entries[0]["msg"])
	assert.Equal(t, entries[0]["call_id"], sink.all()[0].CallID)
}

package aspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInvalidAmount = errors.New("invalid amount")

// Account is the target used across the aspect tests.
type Account struct {
	mu      sync.Mutex
	balance int
	calls   atomic.Int64
}

func (a *Account) Deposit(_ context.Context, amount int) (int, error) {
	a.calls.Add(1)
	if amount <= 0 {
		return 0, errInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	return a.balance, nil
}

func (a *Account) Balance() int {
	a.calls.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Account) Slow(d time.Duration) string {
	a.calls.Add(1)
	time.Sleep(d)
	return "done"
}

func (a *Account) Crash() {
	a.calls.Add(1)
	panic("crash")
}

func (a *Account) Calls() int64 { return a.calls.Load() }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// logBuffer captures JSON log lines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	var coder goerrors.ErrorCoder
	require.True(t, errors.As(err, &coder), "expected coded error, got %T: %v", err, err)
	assert.Equal(t, code, string(coder.ErrorCode()))
}

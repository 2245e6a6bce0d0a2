package aspect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sghaida/oproxy/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = `
package proxy.authz

default allow := false

allow if input.method == "Balance"

allow if {
	input.method == "Deposit"
	input.args[0] <= 100
}
`

// TestAuthorize_FuncDenies verifies a refusal is a coded error and the target is not called.
func TestAuthorize_FuncDenies(t *testing.T) {
	t.Parallel()

	var got Request
	acct := &Account{}
	p := proxy.New(acct, Authorize(AuthorizerFunc(func(_ context.Context, req Request) (bool, error) {
		got = req
		return req.Method != "Deposit", nil
	}), WithName("account")))

	_, err := p.Call("Deposit", context.Background(), 10)
	requireCode(t, err, ErrCodePermissionDenied)
	assert.Equal(t, int64(0), acct.Calls())
	assert.Equal(t, "account", got.Target)
	assert.Equal(t, []any{10}, got.Args, "context arguments are not policy input")

	_, err = p.Call("Balance")
	require.NoError(t, err)
}

// TestAuthorize_FuncError verifies a failure to decide is a coded error.
func TestAuthorize_FuncError(t *testing.T) {
	t.Parallel()

	p := proxy.New(&Account{}, Authorize(AuthorizerFunc(func(context.Context, Request) (bool, error) {
		return false, errors.New("policy backend down")
	})))

	_, err := p.Call("Balance")
	requireCode(t, err, ErrCodeAuthorizationFailed)
}

// TestRegoAuthorizer_Policy verifies decisions come from the Rego policy.
func TestRegoAuthorizer_Policy(t *testing.T) {
	t.Parallel()

	authz, err := NewRegoAuthorizer(context.Background(), testPolicy, "data.proxy.authz.allow")
	require.NoError(t, err)

	acct := &Account{}
	p := proxy.New(acct, Authorize(authz))

	out, err := p.Call("Deposit", context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []any{50}, out)

	_, err = p.Call("Deposit", context.Background(), 500)
	requireCode(t, err, ErrCodePermissionDenied)

	_, err = p.Call("Balance")
	require.NoError(t, err)

	_, err = p.Call("Slow", time.Duration(0))
	requireCode(t, err, ErrCodePermissionDenied)

	assert.Equal(t, int64(2), acct.Calls())
}

// TestRegoAuthorizer_Kwargs verifies named parameters are visible to the policy.
func TestRegoAuthorizer_Kwargs(t *testing.T) {
	t.Parallel()

	const policy = `
package proxy.authz

allow if input.kwargs.amount < 10
`
	authz, err := NewRegoAuthorizer(context.Background(), policy, "data.proxy.authz.allow")
	require.NoError(t, err)

	p := proxy.New(&Account{}, Authorize(authz))
	deposit := func(amount int) error {
		_, err := p.Invoke("Deposit", []string{"ctx", "amount"}, []any{context.Background(), amount},
			func(a *Account) ([]any, error) {
				n, err := a.Deposit(context.Background(), amount)
				return []any{n}, err
			})
		return err
	}

	require.NoError(t, deposit(5))
	requireCode(t, deposit(50), ErrCodePermissionDenied)
}

// TestNewRegoAuthorizer_BadPolicy verifies compile errors are reported.
func TestNewRegoAuthorizer_BadPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewRegoAuthorizer(context.Background(), "package x\nallow if {", "data.x.allow")
	requireCode(t, err, ErrCodeInvalidConfig)
}

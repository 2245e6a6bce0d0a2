package aspect

import (
	"context"
	"fmt"

	"github.com/agilira/go-errors"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sghaida/oproxy/proxy"
)

// Request is what an Authorizer decides on.
type Request struct {
	Target string
	Method string
	Args   []any
	Kwargs map[string]any
}

// Authorizer decides whether a call may proceed.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req Request) (bool, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// Authorize checks every call with a before hook. A refusal is an
// ASPECT_PERMISSION_DENIED error; a failure to decide is an
// ASPECT_AUTHORIZATION_FAILED error wrapping the cause. Either way the target
// is not called.
func Authorize(a Authorizer, opts ...Option) proxy.Config {
	o := newOptions(opts)
	return proxy.Config{
		Before: func(c *proxy.Call) error {
			req := Request{
				Target: o.target(c),
				Method: c.Method,
				Args:   policyArgs(c.Args),
				Kwargs: policyKwargs(c.Kwargs()),
			}
			allowed, err := a.Authorize(c.Context(), req)
			if err != nil {
				return errors.Wrap(err, ErrCodeAuthorizationFailed, fmt.Sprintf("authorize %s.%s", req.Target, req.Method))
			}
			if !allowed {
				return errors.New(ErrCodePermissionDenied, fmt.Sprintf("%s.%s: permission denied", req.Target, req.Method))
			}
			return nil
		},
	}
}

// policyArgs drops context arguments, which carry no policy data.
func policyArgs(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if _, ok := a.(context.Context); ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

func policyKwargs(kwargs map[string]any) map[string]any {
	for name, v := range kwargs {
		if _, ok := v.(context.Context); ok {
			delete(kwargs, name)
		}
	}
	return kwargs
}

// RegoAuthorizer evaluates a Rego policy. The query must produce a single
// boolean, for example "data.proxy.authz.allow". The policy sees
//
//	input.target, input.method, input.args, input.kwargs
type RegoAuthorizer struct {
	query rego.PreparedEvalQuery
}

// NewRegoAuthorizer compiles module and prepares query for evaluation.
func NewRegoAuthorizer(ctx context.Context, module, query string) (*RegoAuthorizer, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("authz.rego", module),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "prepare rego policy")
	}
	return &RegoAuthorizer{query: prepared}, nil
}

// Authorize implements Authorizer. An undefined result denies.
func (r *RegoAuthorizer) Authorize(ctx context.Context, req Request) (bool, error) {
	kwargs := req.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	input := map[string]any{
		"target": req.Target,
		"method": req.Method,
		"args":   req.Args,
		"kwargs": kwargs,
	}
	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	return rs.Allowed(), nil
}

// Package grpcaspect runs proxy hook configurations around gRPC unary calls.
//
// A server interceptor builds one proxy.Call per request with
//
//	Target = the service implementation (info.Server)
//	Method = the full method name, e.g. "/bank.Ledger/Deposit"
//	Args   = [ctx, req], Params = ["ctx", "req"]
//
// so the same presets that wrap in-process values (Timer, Logging, Metrics,
// Authorize, ...) wrap RPC handlers unchanged.
package grpcaspect

import (
	"context"
	"errors"

	goerrors "github.com/agilira/go-errors"
	"github.com/sghaida/oproxy/aspect"
	"github.com/sghaida/oproxy/proxy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	serverParams = []string{"ctx", "req"}
	clientParams = []string{"ctx", "req", "reply"}
)

// UnaryServerInterceptor dispatches every unary handler through cfg. Errors
// carrying an aspect refusal code are translated to gRPC status errors; all
// other errors, including the handler's own, pass through unchanged.
func UnaryServerInterceptor(cfg proxy.Config) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		call := &proxy.Call{Target: info.Server, Method: info.FullMethod, Args: []any{ctx, req}, Params: serverParams}

		out, err := proxy.Dispatch(cfg, call, func() ([]any, error) {
			resp, err := handler(ctx, req)
			return []any{resp}, err
		})
		return proxy.ResultAt[any](out, 0), ToStatus(err)
	}
}

// UnaryClientInterceptor dispatches every outgoing unary call through cfg,
// translating refusals the same way as the server side. The reply is filled by the invoker, so After hooks see no results and read
// the reply from Args instead.
func UnaryClientInterceptor(cfg proxy.Config) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		call := &proxy.Call{Target: cc, Method: method, Args: []any{ctx, req, reply}, Params: clientParams}
		_, err := proxy.Dispatch(cfg, call, func() ([]any, error) {
			return nil, invoker(ctx, method, req, reply, cc, opts...)
		})
		return ToStatus(err)
	}
}

// ToStatus converts preset refusals to gRPC status errors. Any other error,
// including one that already carries a status, is returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var coder goerrors.ErrorCoder
	if !errors.As(err, &coder) {
		return err
	}
	switch string(coder.ErrorCode()) {
	case aspect.ErrCodePermissionDenied:
		return status.Error(codes.PermissionDenied, err.Error())
	case aspect.ErrCodeRateLimited:
		return status.Error(codes.ResourceExhausted, err.Error())
	case aspect.ErrCodeTimeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case aspect.ErrCodeAuthorizationFailed:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return err
	}
}

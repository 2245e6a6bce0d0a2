package proxy

import (
	"fmt"
	"reflect"

	"github.com/agilira/go-errors"
)

// Error codes for misuse of the proxy API. Errors raised by targets or hooks
// are never wrapped with these codes; they reach the caller untouched.
const (
	ErrCodeMethodNotFound  = "PROXY_METHOD_NOT_FOUND"
	ErrCodeInvalidArgument = "PROXY_INVALID_ARGUMENT"
	ErrCodeResultType      = "PROXY_RESULT_TYPE"
	ErrCodeNotConstructor  = "PROXY_NOT_CONSTRUCTOR"
	ErrCodeAspectNotFound  = "PROXY_ASPECT_NOT_FOUND"
	ErrCodeCatalogPanic    = "PROXY_CATALOG_PANIC"
)

// PanicError is what OnException receives when the original method (or the
// Around hook) panics. The panic itself is re-raised with its original value
// after OnException returns; callers never see a PanicError.
type PanicError struct {
	// Method is the name of the intercepted method.
	Method string

	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("proxy: panic in %s: %v", e.Method, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func methodNotFound(t reflect.Type, name string) error {
	return errors.New(ErrCodeMethodNotFound, fmt.Sprintf("proxy: %s has no exported method %q", typeName(t), name))
}

func invalidArgument(msg string) error {
	return errors.New(ErrCodeInvalidArgument, "proxy: "+msg)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

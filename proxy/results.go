package proxy

import (
	"fmt"
	"reflect"

	"github.com/agilira/go-errors"
)

// ResultAt returns results[i] as R. A missing or nil result yields the zero
// value of R. A result of another type means an Around hook returned
// something the method cannot return; ResultAt panics with a
// PROXY_RESULT_TYPE error in that case.
func ResultAt[R any](results []any, i int) R {
	var zero R
	if i < 0 || i >= len(results) || results[i] == nil {
		return zero
	}
	r, ok := results[i].(R)
	if !ok {
		panic(errors.New(ErrCodeResultType, fmt.Sprintf("proxy: result %d is %T, want %s", i, results[i], reflect.TypeFor[R]())))
	}
	return r
}

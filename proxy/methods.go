package proxy

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// methodSet is the forwarding table for one dynamic type. It is built once
// per type and shared by every proxy of that type.
type methodSet struct {
	typ    reflect.Type
	names  []string
	byName map[string]reflect.Method
}

var methodSets sync.Map // reflect.Type -> *methodSet

// methodsOf returns the cached table for t. Only exported methods are listed;
// reflect already hides unexported ones.
func methodsOf(t reflect.Type) *methodSet {
	if t == nil {
		return &methodSet{byName: map[string]reflect.Method{}}
	}
	if cached, ok := methodSets.Load(t); ok {
		return cached.(*methodSet)
	}

	ms := &methodSet{
		typ:    t,
		names:  make([]string, 0, t.NumMethod()),
		byName: make(map[string]reflect.Method, t.NumMethod()),
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		ms.names = append(ms.names, m.Name)
		ms.byName[m.Name] = m
	}
	sort.Strings(ms.names)

	actual, _ := methodSets.LoadOrStore(t, ms)
	return actual.(*methodSet)
}

// Methods lists the exported method names of v, sorted. v may be a value or a
// reflect.Type; for interface types the interface's own methods are listed.
func Methods(v any) []string {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	ms := methodsOf(t)
	out := make([]string, len(ms.names))
	copy(out, ms.names)
	return out
}

func (ms *methodSet) has(name string) bool {
	_, ok := ms.byName[name]
	return ok
}

// prepare validates args against the named method and returns a thunk that
// performs the call. The receiver is always passed explicitly.
func (ms *methodSet) prepare(target any, name string, args []any) (Proceed, error) {
	m, ok := ms.byName[name]
	if !ok {
		return nil, methodNotFound(ms.typ, name)
	}
	in, err := buildArgs(m, target, args)
	if err != nil {
		return nil, err
	}

	return func() ([]any, error) {
		var out []reflect.Value
		if m.Type.IsVariadic() {
			out = m.Func.CallSlice(in)
		} else {
			out = m.Func.Call(in)
		}
		return splitResults(m.Type, out)
	}, nil
}

// buildArgs converts args into reflect values for m.Func, receiver first.
func buildArgs(m reflect.Method, target any, args []any) ([]reflect.Value, error) {
	params, err := convertArgs(m.Name, m.Type, 1, args)
	if err != nil {
		return nil, err
	}
	return append([]reflect.Value{reflect.ValueOf(target)}, params...), nil
}

// convertArgs converts args for the parameters of ft that follow the first
// skip inputs. For a variadic func the trailing arguments are packed into the
// variadic slice unless the caller already passed that slice as the last
// argument. The returned values are meant for CallSlice when ft is variadic.
func convertArgs(name string, ft reflect.Type, skip int, args []any) ([]reflect.Value, error) {
	numParams := ft.NumIn() - skip
	in := make([]reflect.Value, 0, numParams)

	if !ft.IsVariadic() {
		if len(args) != numParams {
			return nil, invalidArgument(fmt.Sprintf("%s takes %d arguments, got %d", name, numParams, len(args)))
		}
		for i, a := range args {
			v, err := argValue(name, i, a, ft.In(skip+i))
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
		return in, nil
	}

	fixed := numParams - 1
	if len(args) < fixed {
		return nil, invalidArgument(fmt.Sprintf("%s takes at least %d arguments, got %d", name, fixed, len(args)))
	}
	for i := 0; i < fixed; i++ {
		v, err := argValue(name, i, args[i], ft.In(skip+i))
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	sliceType := ft.In(ft.NumIn() - 1)
	rest := args[fixed:]
	if len(rest) == 1 && rest[0] != nil && reflect.TypeOf(rest[0]).AssignableTo(sliceType) {
		return append(in, reflect.ValueOf(rest[0])), nil
	}

	variadic := reflect.MakeSlice(sliceType, 0, len(rest))
	for i, a := range rest {
		v, err := argValue(name, fixed+i, a, sliceType.Elem())
		if err != nil {
			return nil, err
		}
		variadic = reflect.Append(variadic, v)
	}
	return append(in, variadic), nil
}

func argValue(method string, i int, a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		default:
			return reflect.Value{}, invalidArgument(fmt.Sprintf("%s argument %d: nil is not a valid %s", method, i, want))
		}
	}
	v := reflect.ValueOf(a)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, invalidArgument(fmt.Sprintf("%s argument %d: %s is not assignable to %s", method, i, v.Type(), want))
	}
	return v, nil
}

// splitResults separates a trailing error result from the other results.
func splitResults(ft reflect.Type, out []reflect.Value) ([]any, error) {
	n := len(out)
	var err error
	if n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1].Interface(); e != nil {
			err = e.(error)
		}
		n--
	}
	if n == 0 {
		return nil, err
	}
	results := make([]any, n)
	for i := 0; i < n; i++ {
		results[i] = out[i].Interface()
	}
	return results, err
}

package callback

import (
	"errors"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Once wraps a function that may run at most a single time.
type Once[A, R any] struct {
	mu   sync.Mutex
	fn   func(A) (R, error) // nil after the first call
	name string
}

// NewOnce wraps fn. The reference to fn is released on the first call.
func NewOnce[A, R any](fn func(A) (R, error)) *Once[A, R] {
	if fn == nil {
		panic("callback: NewOnce called with nil function")
	}
	return &Once[A, R]{fn: fn, name: funcName(fn)}
}

// Call runs the wrapped function on the first call and returns its result.
// Every later call returns an *AlreadyCalledError. The function counts as called even
// when it fails or panics.
func (o *Once[A, R]) Call(arg A) (R, error) {
	o.mu.Lock()
	fn := o.fn
	o.fn = nil
	o.mu.Unlock()

	if fn == nil {
		var zero R
		return zero, &AlreadyCalledError{Name: o.name}
	}

	result, err := fn(arg)
	if errors.Is(err, ErrAlreadyCalled) {
		var zero R
		return zero, &ReturnValueError{Name: o.name, Marker: ErrAlreadyCalled}
	}
	return result, err
}

// Called reports whether Call has already been invoked.
func (o *Once[A, R]) Called() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fn == nil
}

// Name returns the diagnostic name of the wrapped function.
func (o *Once[A, R]) Name() string {
	return o.name
}

// funcName resolves a readable name for fn, e.g. "keyboard.(*Reloader).reload".
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "<nil>"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "<unknown>"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

package callback

import (
	"errors"
	"sync"
	"weak"
)

// Weak holds a function together with a weak pointer to its owner. The function is
// called with the owner while the owner is reachable; afterwards both references are
// dropped and calls return ErrCollected.
type Weak[O, A, R any] struct {
	mu      sync.Mutex
	ref     weak.Pointer[O]
	fn      func(*O, A) (R, error) // nil once released
	name    string
	collect *Once[struct{}, bool]
}

// NewWeak binds fn to owner without keeping owner alive. fn must not capture owner
// itself, otherwise the owner stays reachable through the closure.
func NewWeak[O, A, R any](owner *O, fn func(*O, A) (R, error)) *Weak[O, A, R] {
	if owner == nil || fn == nil {
		panic("callback: NewWeak requires an owner and a function")
	}
	return newWeak(owner, fn, funcName(fn))
}

func newWeak[O, A, R any](owner *O, fn func(*O, A) (R, error), name string) *Weak[O, A, R] {
	w := &Weak[O, A, R]{
		ref:  weak.Make(owner),
		fn:   fn,
		name: name,
	}
	w.collect = NewOnce(w.release)
	return w
}

// Call invokes the function with the owner and arg. It returns ErrCollected without
// calling anything once the owner is gone, and a *ReturnValueError if the function
// itself returns ErrCollected.
func (w *Weak[O, A, R]) Call(arg A) (R, error) {
	var zero R

	owner, fn := w.deref()
	if owner == nil {
		return zero, ErrCollected
	}

	result, err := fn(owner, arg)
	if errors.Is(err, ErrCollected) {
		return zero, &ReturnValueError{Name: w.name, Marker: ErrCollected}
	}
	return result, err
}

// Invoke calls the function and discards its result.
func (w *Weak[O, A, R]) Invoke(arg A) error {
	_, err := w.Call(arg)
	return err
}

// IsCollected reports whether the owner can no longer be resolved.
func (w *Weak[O, A, R]) IsCollected() bool {
	owner, _ := w.deref()
	return owner == nil
}

// Collect releases the owner and the function. It returns true only for the call that
// actually released a still reachable owner.
func (w *Weak[O, A, R]) Collect() bool {
	released, err := w.collect.Call(struct{}{})
	return err == nil && released
}

// Name returns the diagnostic name of the wrapped function.
func (w *Weak[O, A, R]) Name() string {
	return w.name
}

// deref returns strong references to the owner and the function, dropping both when the
// owner has been garbage collected.
func (w *Weak[O, A, R]) deref() (*O, func(*O, A) (R, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fn == nil {
		return nil, nil
	}
	owner := w.ref.Value()
	if owner == nil {
		w.drop()
		return nil, nil
	}
	return owner, w.fn
}

func (w *Weak[O, A, R]) release(struct{}) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	present := w.fn != nil && w.ref.Value() != nil
	w.drop()
	return present, nil
}

// drop must be called with w.mu held.
func (w *Weak[O, A, R]) drop() {
	w.fn = nil
	w.ref = weak.Pointer[O]{}
}

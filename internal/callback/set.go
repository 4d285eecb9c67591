package callback

import (
	"errors"
	"slices"
	"sync"
	"weak"
)

// Invoker is the type-erased view of a weak callback stored in a WeakSet.
type Invoker[A any] interface {
	Invoke(arg A) error
	IsCollected() bool
	Collect() bool
	Name() string
}

// Handle is a callback inserted in a WeakSet. Besides the callback operations it can
// remove itself from the set. The set is only reachable from the handle through a weak
// pointer.
type Handle[A any] struct {
	Invoker[A]
	set weak.Pointer[WeakSet[A]]
	del *Once[struct{}, bool]
}

// Delete removes the callback from its set and releases it. Only the first call has an
// effect; it returns true if the callback was still in the set.
func (h *Handle[A]) Delete() bool {
	removed, err := h.del.Call(struct{}{})
	return err == nil && removed
}

func (h *Handle[A]) remove(struct{}) (bool, error) {
	removed := false
	if set := h.set.Value(); set != nil {
		removed = set.remove(h)
	}
	h.Collect()
	return removed, nil
}

// WeakSet is an insertion-ordered collection of weak callbacks receiving an A.
type WeakSet[A any] struct {
	mu      sync.Mutex
	entries []*Handle[A]
}

// NewWeakSet creates an empty set.
func NewWeakSet[A any]() *WeakSet[A] {
	return &WeakSet[A]{}
}

// Add wraps fn bound weakly to owner and inserts it in s.
func Add[O, A any](s *WeakSet[A], owner *O, fn func(*O, A)) *Handle[A] {
	if owner == nil || fn == nil {
		panic("callback: Add requires an owner and a function")
	}
	w := newWeak(owner, func(o *O, arg A) (struct{}, error) {
		fn(o, arg)
		return struct{}{}, nil
	}, funcName(fn))
	return s.Insert(w)
}

// Insert adds an existing callback to s.
func (s *WeakSet[A]) Insert(cb Invoker[A]) *Handle[A] {
	h := &Handle[A]{
		Invoker: cb,
		set:     weak.Make(s),
	}
	h.del = NewOnce(h.remove)

	s.mu.Lock()
	s.entries = append(s.entries, h)
	s.mu.Unlock()
	return h
}

// ForEach calls visit once per entry held when the pass starts, in insertion order.
// Entries found collected during the pass are removed after it completes.
func (s *WeakSet[A]) ForEach(visit func(Invoker[A])) {
	s.mu.Lock()
	snapshot := slices.Clone(s.entries)
	s.mu.Unlock()

	var stale []*Handle[A]
	for _, h := range snapshot {
		visit(h)
		if h.IsCollected() {
			stale = append(stale, h)
		}
	}

	for _, h := range stale {
		s.remove(h)
	}
}

// Notify invokes every live callback with arg. Errors other than ErrCollected are
// joined and returned after all callbacks ran.
func (s *WeakSet[A]) Notify(arg A) error {
	var errs []error
	s.ForEach(func(cb Invoker[A]) {
		if err := cb.Invoke(arg); err != nil && !errors.Is(err, ErrCollected) {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Clear collects and removes every callback.
func (s *WeakSet[A]) Clear() {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for _, h := range entries {
		h.Collect()
	}
}

// Len returns the number of held entries, including collected ones not yet pruned.
func (s *WeakSet[A]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *WeakSet[A]) remove(h *Handle[A]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.entries, h)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// Package callback provides callback wrappers with explicit lifecycle rules.
//
// Long-lived pollers and emitters keep listeners through these wrappers so that a
// registration never keeps its owner alive and never fires after it was released.
//
// # Wrappers
//
//   - [Weak] binds a function to an owner held through a weak pointer. Calling it after
//     the owner was released (explicitly with [Weak.Collect] or by the garbage collector)
//     returns [ErrCollected] instead of calling the function.
//   - [Once] lets a function run a single time. Later calls return an [AlreadyCalledError].
//   - [WeakSet] is an insertion-ordered collection of weak callbacks, each removable through
//     the [Handle] returned by [Add].
//
// # Results
//
// Wrappers report their own conditions through sentinel errors rather than magic return
// values. A wrapped function that returns one of those sentinels itself would be
// indistinguishable from the wrapper's condition, so the wrapper fails with a
// [ReturnValueError] instead:
//
//	w := callback.NewWeak(owner, func(o *Owner, n int) (int, error) {
//		return o.scale * n, nil
//	})
//	v, err := w.Call(2)
//	if errors.Is(err, callback.ErrCollected) {
//		// owner is gone
//	}
//
// Explicit release is the deterministic path and the one callers should rely on.
// Collection of unreachable owners by the runtime is a best-effort extra.
package callback

package callback

import (
	"errors"
	"fmt"
)

var (
	// ErrCollected is returned by a weak callback whose owner is no longer reachable.
	ErrCollected = errors.New("callback collected")

	// ErrAlreadyCalled is matched by every AlreadyCalledError.
	ErrAlreadyCalled = errors.New("callback already called")
)

// AlreadyCalledError is returned when a Once wrapper is called a second time.
type AlreadyCalledError struct {
	// Name is the diagnostic name of the released function.
	Name string
}

func (e *AlreadyCalledError) Error() string {
	return fmt.Sprintf("callback '%s' called again through a once wrapper", e.Name)
}

// Is reports whether target is ErrAlreadyCalled.
func (e *AlreadyCalledError) Is(target error) bool {
	return target == ErrAlreadyCalled
}

// ReturnValueError is returned when a wrapped function returns the sentinel its own
// wrapper uses to signal a lifecycle condition.
type ReturnValueError struct {
	// Name is the diagnostic name of the wrapped function.
	Name string
	// Marker is the sentinel the function returned.
	Marker error
}

func (e *ReturnValueError) Error() string {
	return fmt.Sprintf("callback '%s' returned reserved value: %v", e.Name, e.Marker)
}

package keyboard

import (
	"context"
	"fmt"

	"github.com/smazurov/lockkeys/internal/events"
)

// Action changes the device state of a key. It only starts the change; the result is
// observed by querying a StatusSource afterwards.
type Action func(ctx context.Context) error

// Key is a named indicator key with its on and off actions.
type Key struct {
	Name    string
	TurnOn  Action
	TurnOff Action
}

// Apply runs TurnOn or TurnOff.
func (k Key) Apply(ctx context.Context, on bool) error {
	action := k.TurnOff
	if on {
		action = k.TurnOn
	}
	if action == nil {
		return fmt.Errorf("%s has no action to turn it %s", k.Name, StateOf(on))
	}
	return action(ctx)
}

// StatusSource reports the current state of every key it knows about.
type StatusSource interface {
	Query(ctx context.Context) ([]Status, error)
}

// StatusSourceFunc adapts a function to StatusSource.
type StatusSourceFunc func(ctx context.Context) ([]Status, error)

// Query calls f.
func (f StatusSourceFunc) Query(ctx context.Context) ([]Status, error) {
	return f(ctx)
}

// Recorder receives measurements from reloaders and controllers.
type Recorder interface {
	ReloadFinished(err error, statuses int)
	ListenersChanged(key string, count int)
	DriveStarted(key string)
	DriveFinished(key string, outcome Outcome, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) ReloadFinished(error, int)          {}
func (nopRecorder) ListenersChanged(string, int)       {}
func (nopRecorder) DriveStarted(string)                {}
func (nopRecorder) DriveFinished(string, Outcome, int) {}

// Publisher publishes events, typically an *events.Bus.
type Publisher interface {
	Publish(ev events.Event)
}

package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/lockkeys/internal/events"
)

// MaxAttempts bounds the on/off actions a single Set runs.
const MaxAttempts = 10

var (
	// ErrStateNotChanged is matched by StateChangeError.
	ErrStateNotChanged = errors.New("key state could not be changed")

	// ErrKeyNotReported is returned when the status source has no record for a key.
	ErrKeyNotReported = errors.New("key not reported by status source")
)

// StateChangeError is returned by Set when a key did not reach the requested state.
type StateChangeError struct {
	Key    string
	Target bool
}

func (e *StateChangeError) Error() string {
	return fmt.Sprintf("%s could not be turned %s", e.Key, StateOf(e.Target))
}

// Is reports whether target is ErrStateNotChanged.
func (e *StateChangeError) Is(target error) bool {
	return target == ErrStateNotChanged
}

// Outcome describes how a Set settled.
type Outcome string

// Set outcomes.
const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeConverged Outcome = "converged"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "failed"
)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the recorder for drive outcomes.
func WithMetrics(m Recorder) ControllerOption {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPublisher publishes a KeyStateChangedEvent whenever a Set settles.
func WithPublisher(p Publisher) ControllerOption {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithMaxAttempts overrides MaxAttempts.
func WithMaxAttempts(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// drive is one Set call. cancelled is only ever set by a newer Set or Remove.
type drive struct {
	id        string
	target    bool
	cancelled atomic.Bool
}

// Controller drives one key toward requested states.
type Controller struct {
	key         Key
	source      StatusSource
	maxAttempts int
	logger      *slog.Logger
	metrics     Recorder
	publisher   Publisher

	mu      sync.Mutex
	current *drive
}

// NewController creates a controller for key reading state from source.
func NewController(key Key, source StatusSource, opts ...ControllerOption) *Controller {
	if source == nil {
		panic("keyboard: NewController requires a status source")
	}
	c := &Controller{
		key:         key,
		source:      source,
		maxAttempts: MaxAttempts,
		logger:      slog.Default(),
		metrics:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the controlled key.
func (c *Controller) Key() Key {
	return c.key
}

// Get queries the source and reports whether the key is on.
func (c *Controller) Get(ctx context.Context) (bool, error) {
	statuses, err := c.source.Query(ctx)
	if err != nil {
		return false, err
	}
	status, ok := Find(statuses, c.key.Name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrKeyNotReported, c.key.Name)
	}
	return status.On(), nil
}

// Result is how a Drive settled.
type Result struct {
	ID       string
	On       bool
	Outcome  Outcome
	Attempts int
}

// Cancelled reports whether a newer Set or Remove stopped the drive.
func (r Result) Cancelled() bool {
	return r.Outcome == OutcomeCancelled
}

// Set drives the key to target and returns the state observed at the end. See Drive.
func (c *Controller) Set(ctx context.Context, target bool) (bool, error) {
	r, err := c.Drive(ctx, target)
	return r.On, err
}

// Drive drives the key to target and reports how it settled.
//
// A drive still in flight on the same controller is cancelled first; it stops before
// its next attempt and settles as OutcomeCancelled with its last observed state and
// no error, even if that state happens to be the target. When the key is already at
// target no action runs. Otherwise up to MaxAttempts actions run, each followed by a
// query. A key still not at target afterwards yields *StateChangeError. Cancelling
// ctx aborts with ctx.Err().
func (c *Controller) Drive(ctx context.Context, target bool) (Result, error) {
	d := &drive{id: uuid.NewString(), target: target}

	c.mu.Lock()
	if c.current != nil {
		c.current.cancelled.Store(true)
	}
	c.current = d
	c.mu.Unlock()
	defer c.release(d)

	logger := c.logger.With("key", c.key.Name, "target", StateOf(target), "drive_id", d.id)
	c.metrics.DriveStarted(c.key.Name)

	on, err := c.Get(ctx)
	if err != nil {
		return c.settle(d, false, OutcomeFailed, 0, err)
	}
	if on == target {
		logger.Debug("Key already in requested state")
		return c.settle(d, on, OutcomeUnchanged, 0, nil)
	}

	attempts := 0
	for attempts < c.maxAttempts && !d.cancelled.Load() {
		if err := ctx.Err(); err != nil {
			return c.settle(d, on, OutcomeFailed, attempts, err)
		}
		attempts++

		if err := c.key.Apply(ctx, target); err != nil {
			logger.Warn("Key action failed", "attempt", attempts, "error", err)
			continue
		}
		now, err := c.Get(ctx)
		if err != nil {
			logger.Warn("Key status query failed", "attempt", attempts, "error", err)
			continue
		}
		if now == target {
			break
		}
		logger.Debug("Key not yet in requested state", "attempt", attempts)
	}

	final, err := c.Get(ctx)
	if err != nil {
		return c.settle(d, on, OutcomeFailed, attempts, err)
	}

	switch {
	case d.cancelled.Load():
		logger.Debug("Superseded by a newer request", "attempts", attempts)
		return c.settle(d, final, OutcomeCancelled, attempts, nil)
	case final != target:
		logger.Warn("Key did not reach requested state", "attempts", attempts)
		return c.settle(d, final, OutcomeExhausted, attempts, &StateChangeError{Key: c.key.Name, Target: target})
	default:
		logger.Info("Key state changed", "attempts", attempts)
		return c.settle(d, final, OutcomeConverged, attempts, nil)
	}
}

// Remove cancels the Set in flight, if any, without starting another. It reports
// whether something was cancelled.
func (c *Controller) Remove() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return false
	}
	c.current.cancelled.Store(true)
	c.current = nil
	return true
}

// Busy reports whether a Set is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Controller) release(d *drive) {
	c.mu.Lock()
	if c.current == d {
		c.current = nil
	}
	c.mu.Unlock()
}

func (c *Controller) settle(d *drive, on bool, outcome Outcome, attempts int, err error) (Result, error) {
	c.metrics.DriveFinished(c.key.Name, outcome, attempts)
	r := Result{ID: d.id, On: on, Outcome: outcome, Attempts: attempts}
	if c.publisher == nil {
		return r, err
	}

	ev := events.KeyStateChangedEvent{
		DriveID:   d.id,
		Key:       c.key.Name,
		Target:    d.target,
		Enabled:   on,
		Outcome:   string(outcome),
		Attempts:  attempts,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.publisher.Publish(ev)
	return r, err
}

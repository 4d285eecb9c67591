package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/lockkeys/internal/events"
	"k8s.io/utils/clock"
)

var (
	// ErrUnknownKey is returned for key names the service does not control.
	ErrUnknownKey = errors.New("unknown key")

	// ErrKeymapResetUnsupported is returned by ResetKeymap when no reset action is
	// configured.
	ErrKeymapResetUnsupported = errors.New("keymap reset not supported")

	// ErrServiceClosed is returned by operations on a closed service.
	ErrServiceClosed = errors.New("keyboard service closed")
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Keys        []Key
	Source      StatusSource
	Period      time.Duration
	Clock       clock.WithTicker
	ResetKeymap Action
	Publisher   Publisher
	Logger      *slog.Logger
	Metrics     Recorder
}

// Service owns a reloader and one controller per key, and tracks the last state
// observed for every key.
type Service struct {
	reloader    *Reloader
	controllers map[string]*Controller
	names       []string
	resetKeymap Action
	publisher   Publisher
	logger      *slog.Logger

	mu     sync.RWMutex
	subs   []*Subscription
	last   map[string]Status
	closed bool
}

// NewService starts polling and runs a first reload before returning.
func NewService(ctx context.Context, opts ServiceOptions) (*Service, error) {
	if len(opts.Keys) == 0 {
		return nil, errors.New("no keys configured")
	}
	if opts.Source == nil {
		return nil, errors.New("no status source configured")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{
		controllers: make(map[string]*Controller, len(opts.Keys)),
		resetKeymap: opts.ResetKeymap,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		last:        make(map[string]Status),
	}
	s.reloader = NewReloader(ReloaderOptions{
		Source:  opts.Source,
		Period:  opts.Period,
		Clock:   opts.Clock,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})

	for _, key := range opts.Keys {
		if _, dup := s.controllers[key.Name]; dup {
			s.Close()
			return nil, fmt.Errorf("key %q configured twice", key.Name)
		}
		s.controllers[key.Name] = NewController(key, opts.Source,
			WithLogger(opts.Logger),
			WithMetrics(opts.Metrics),
			WithPublisher(opts.Publisher),
		)
		s.names = append(s.names, key.Name)

		sub, err := AddListener(s.reloader, key.Name, s, (*Service).observe)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.subs = append(s.subs, sub)
	}

	s.reloader.Reload(ctx)
	s.logger.Info("Keyboard service started", "keys", s.names)
	return s, nil
}

func (s *Service) observe(status Status) {
	s.mu.Lock()
	prev, seen := s.last[status.Name]
	s.last[status.Name] = status
	s.mu.Unlock()

	if seen && prev.State == status.State {
		return
	}
	s.logger.Debug("Key status changed", "key", status.Name, "state", status.State)
	if s.publisher != nil {
		s.publisher.Publish(events.KeyStatusChangedEvent{
			Key:       status.Name,
			ID:        status.ID.String(),
			Enabled:   status.On(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Keys returns the controlled key names in configuration order.
func (s *Service) Keys() []string {
	return append([]string(nil), s.names...)
}

// Reload polls immediately and returns the statuses of the controlled keys.
func (s *Service) Reload(ctx context.Context) []Status {
	return s.filter(s.reloader.Reload(ctx))
}

// Snapshot returns the last observed status of every controlled key seen so far.
func (s *Service) Snapshot() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]Status, 0, len(s.names))
	for _, name := range s.names {
		if status, ok := s.last[name]; ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// Get queries the current state of key.
func (s *Service) Get(ctx context.Context, key string) (bool, error) {
	c, err := s.controller(key)
	if err != nil {
		return false, err
	}
	return c.Get(ctx)
}

// Set drives key to on. See Controller.Set.
func (s *Service) Set(ctx context.Context, key string, on bool) (bool, error) {
	r, err := s.Drive(ctx, key, on)
	return r.On, err
}

// Drive drives key to on and reports how it settled. See Controller.Drive.
func (s *Service) Drive(ctx context.Context, key string, on bool) (Result, error) {
	c, err := s.controller(key)
	if err != nil {
		return Result{}, err
	}
	r, err := c.Drive(ctx, on)
	// Listeners see the new state without waiting for the next poll.
	s.reloader.Reload(ctx)
	return r, err
}

// ResetKeymap runs the keymap preparation action again.
func (s *Service) ResetKeymap(ctx context.Context) error {
	if s.resetKeymap == nil {
		return ErrKeymapResetUnsupported
	}
	err := s.resetKeymap(ctx)
	if err != nil {
		s.logger.Warn("Keymap reset failed", "error", err)
	} else {
		s.logger.Info("Keymap reset")
	}

	if s.publisher != nil {
		ev := events.KeymapResetEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)}
		if err != nil {
			ev.Error = err.Error()
		}
		s.publisher.Publish(ev)
	}
	return err
}

// Reloader returns the underlying reloader, for registering more listeners.
func (s *Service) Reloader() *Reloader {
	return s.reloader
}

// Close cancels pending Set calls, removes the service listeners and stops polling.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, c := range s.controllers {
		c.Remove()
	}
	for _, sub := range subs {
		sub.Delete()
	}
	s.reloader.Destroy()
	s.logger.Info("Keyboard service stopped")
}

func (s *Service) controller(key string) (*Controller, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrServiceClosed
	}

	c, ok := s.controllers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return c, nil
}

func (s *Service) filter(statuses []Status) []Status {
	if statuses == nil {
		return nil
	}
	filtered := make([]Status, 0, len(s.names))
	for _, name := range s.names {
		if status, ok := Find(statuses, name); ok {
			filtered = append(filtered, status)
		}
	}
	return filtered
}

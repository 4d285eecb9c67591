package keyboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/lockkeys/internal/callback"
	"github.com/smazurov/lockkeys/internal/interval"
	"k8s.io/utils/clock"
)

// DefaultReloadPeriod is used when ReloaderOptions.Period is zero.
const DefaultReloadPeriod = 10 * time.Second

// ErrReloaderStopped is matched by AutoReloaderError.
var ErrReloaderStopped = errors.New("keyboard status reloader stopped")

// AutoReloaderError is returned when registering a listener on a reloader whose
// interval is no longer running.
type AutoReloaderError struct{}

func (e *AutoReloaderError) Error() string {
	return "Interval for auto reloading keyboard status was finished unexpectedly"
}

// Is reports whether target is ErrReloaderStopped.
func (e *AutoReloaderError) Is(target error) bool {
	return target == ErrReloaderStopped
}

// ReloaderOptions configures a Reloader.
type ReloaderOptions struct {
	Source  StatusSource
	Period  time.Duration
	Clock   clock.WithTicker
	Logger  *slog.Logger
	Metrics Recorder
}

// Reloader polls a StatusSource and delivers each Status to the listeners
// registered for its key name.
type Reloader struct {
	source  StatusSource
	period  time.Duration
	logger  *slog.Logger
	metrics Recorder

	mu        sync.Mutex
	listeners map[string]*callback.WeakSet[Status]
	destroyed bool
	started   uint64 // sequence of the latest Reload to query
	delivered uint64 // sequence of the latest Reload handed to listeners

	// deliver serializes fan-out so results of one Reload never interleave with
	// another's.
	deliver sync.Mutex

	interval *interval.Interval
}

// NewReloader starts polling opts.Source every opts.Period. The first poll happens
// after one period; call Reload for an immediate one. Polling stops on Destroy or
// once the reloader is no longer referenced.
func NewReloader(opts ReloaderOptions) *Reloader {
	if opts.Source == nil {
		panic("keyboard: NewReloader requires a status source")
	}
	if opts.Period <= 0 {
		opts.Period = DefaultReloadPeriod
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}

	r := &Reloader{
		source:    opts.Source,
		period:    opts.Period,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		listeners: make(map[string]*callback.WeakSet[Status]),
	}
	r.interval = interval.Start(opts.Clock, r, (*Reloader).tick, opts.Period, interval.WithLogger(opts.Logger))
	return r
}

func (r *Reloader) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.period)
	defer cancel()
	r.Reload(ctx)
}

// Reload queries the source once and notifies the listeners of every reported key.
// Failures are logged and yield nil; they never reach the caller. When a later
// Reload has already notified the listeners, this one returns its result without
// notifying, so listeners never go back to an older state.
func (r *Reloader) Reload(ctx context.Context) []Status {
	r.mu.Lock()
	destroyed := r.destroyed
	r.started++
	seq := r.started
	r.mu.Unlock()
	if destroyed {
		r.logger.Debug("Reload skipped, reloader destroyed")
		return nil
	}

	statuses, err := r.source.Query(ctx)
	r.metrics.ReloadFinished(err, len(statuses))
	if err != nil {
		r.logger.Warn("Failed to reload keyboard status", "error", err)
		return nil
	}

	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	stale := seq < r.delivered
	if !stale {
		r.delivered = seq
	}
	r.mu.Unlock()
	if stale {
		r.logger.Debug("Keyboard status superseded by a newer reload", "keys", len(statuses))
		return statuses
	}

	for _, status := range statuses {
		set := r.listenerSet(status.Name)
		if set == nil {
			continue
		}
		if err := set.Notify(status); err != nil {
			r.logger.Warn("Key listener failed", "key", status.Name, "error", err)
		}
	}
	r.logger.Debug("Keyboard status reloaded", "keys", len(statuses))
	return statuses
}

// Keys returns the names of keys with at least one listener.
func (r *Reloader) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.listeners))
	for name, set := range r.listeners {
		if set.Len() > 0 {
			keys = append(keys, name)
		}
	}
	return keys
}

// Finished reports whether polling has stopped.
func (r *Reloader) Finished() bool {
	return r.interval.Finished()
}

// Destroy removes every listener and stops polling. Calling it again does nothing.
func (r *Reloader) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	sets := r.listeners
	r.listeners = make(map[string]*callback.WeakSet[Status])
	r.mu.Unlock()

	for name, set := range sets {
		set.Clear()
		r.metrics.ListenersChanged(name, 0)
	}
	r.interval.Cancel()
	r.logger.Debug("Reloader destroyed")
}

func (r *Reloader) listenerSet(name string) *callback.WeakSet[Status] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listeners[name]
}

// Subscription is a listener registered on a Reloader.
type Subscription struct {
	*callback.Handle[Status]
	key      string
	reloader *Reloader
}

// Key returns the key name the subscription listens to.
func (s *Subscription) Key() string {
	return s.key
}

// Delete unregisters the listener. Only the first call has an effect.
func (s *Subscription) Delete() bool {
	deleted := s.Handle.Delete()
	if deleted {
		s.reloader.metrics.ListenersChanged(s.key, s.reloader.ListenerCount(s.key))
	}
	return deleted
}

// Reload triggers an immediate reload on the subscription's reloader.
func (s *Subscription) Reload(ctx context.Context) []Status {
	return s.reloader.Reload(ctx)
}

// AddListener registers fn to receive every Status reloaded for key. fn is bound
// weakly to owner and must not capture owner itself. fn runs while the reloader
// delivers a result and must not call Reload. It fails with
// *AutoReloaderError when r no longer polls.
func AddListener[O any](r *Reloader, key string, owner *O, fn func(*O, Status)) (*Subscription, error) {
	r.mu.Lock()
	if r.destroyed || r.interval.Finished() {
		r.mu.Unlock()
		return nil, &AutoReloaderError{}
	}
	set, ok := r.listeners[key]
	if !ok {
		set = callback.NewWeakSet[Status]()
		r.listeners[key] = set
	}
	h := callback.Add(set, owner, fn)
	r.mu.Unlock()

	r.metrics.ListenersChanged(key, set.Len())
	return &Subscription{Handle: h, key: key, reloader: r}, nil
}

// ListenerCount returns the number of live listeners registered for key.
func (r *Reloader) ListenerCount(key string) int {
	if set := r.listenerSet(key); set != nil {
		return set.Len()
	}
	return 0
}

// Package interval runs periodic work bound weakly to an owner.
//
// An Interval stops by itself once its owner is no longer reachable, so background
// polling never outlives the object it serves, and it can be cancelled explicitly.
package interval

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/lockkeys/internal/callback"
	"github.com/smazurov/lockkeys/internal/logging"
	"k8s.io/utils/clock"
)

// Interval repeats a weak callback on a fixed period.
type Interval struct {
	tick     callback.Invoker[struct{}]
	ticker   clock.Ticker
	period   time.Duration
	logger   logging.Logger
	mu       sync.Mutex
	finished bool
	stop     chan struct{}
	done     chan struct{}
}

// Option configures an Interval.
type Option func(*Interval)

// WithLogger sets the logger used for tick failures.
func WithLogger(logger logging.Logger) Option {
	return func(i *Interval) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Start calls fn with owner every period, the first call happening after one full
// period. Ticking stops when owner becomes unreachable or Cancel is called.
func Start[O any](clk clock.WithTicker, owner *O, fn func(*O), period time.Duration, opts ...Option) *Interval {
	if period <= 0 {
		panic(fmt.Sprintf("interval: non-positive period %s", period))
	}

	w := callback.NewWeak(owner, func(o *O, _ struct{}) (struct{}, error) {
		fn(o)
		return struct{}{}, nil
	})

	i := &Interval{
		tick:   w,
		ticker: clk.NewTicker(period),
		period: period,
		logger: slog.Default(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}

	go i.run()
	return i
}

// Cancel stops future ticks. It returns true only for the call that stopped the
// interval; an interval that already finished returns false.
func (i *Interval) Cancel() bool {
	i.mu.Lock()
	if i.finished {
		i.mu.Unlock()
		return false
	}
	i.finished = true
	close(i.stop)
	i.mu.Unlock()

	i.tick.Collect()
	return true
}

// Finished reports whether ticking has stopped, either through Cancel or because the
// owner is gone.
func (i *Interval) Finished() bool {
	i.mu.Lock()
	finished := i.finished
	i.mu.Unlock()
	return finished || i.tick.IsCollected()
}

// Done is closed once the ticking goroutine has exited and released its ticker.
func (i *Interval) Done() <-chan struct{} {
	return i.done
}

// Period returns the tick period.
func (i *Interval) Period() time.Duration {
	return i.period
}

func (i *Interval) run() {
	defer close(i.done)
	defer i.ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-i.ticker.C():
			if i.Finished() || !i.fire() {
				i.markFinished()
				return
			}
		}
	}
}

// fire runs one tick and reports whether the owner is still alive.
func (i *Interval) fire() (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Interval tick panicked", "callback", i.tick.Name(), "panic", r)
			alive = true
		}
	}()

	err := i.tick.Invoke(struct{}{})
	switch {
	case errors.Is(err, callback.ErrCollected) && i.tick.IsCollected():
		i.logger.Debug("Interval owner collected, stopping", "callback", i.tick.Name())
		return false
	case err != nil:
		i.logger.Warn("Interval tick failed", "callback", i.tick.Name(), "error", err)
	}
	return true
}

func (i *Interval) markFinished() {
	i.mu.Lock()
	i.finished = true
	i.mu.Unlock()
}

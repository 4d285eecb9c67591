package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smazurov/lockkeys/internal/logging"
	"k8s.io/utils/clock"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherStarted is returned by a second Start.
var ErrWatcherStarted = errors.New("config watcher already started")

// Watcher reloads a config file whenever it changes and hands every handler the same
// freshly loaded value.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	clock    clock.Clock
	loader   func(path string) (T, error)
	onError  func(error)
	logger   logging.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
	order    []int
	started  bool
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides DefaultDebounce.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler is called with every load error, in addition to logging it.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// WithClock replaces the clock used for debouncing.
func WithClock[T any](clk clock.Clock) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.clock = clk
	}
}

// NewWatcher creates a watcher for path. loader runs on every settled change.
func NewWatcher[T any](path string, loader func(path string) (T, error), logger logging.Logger, opts ...WatcherOption[T]) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		clock:    clock.RealClock{},
		loader:   loader,
		logger:   logger,
		handlers: make(map[int]func(T)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a function that removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.order = append(w.order, id)
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Start watches the directory holding the file, so editors that replace the file
// through a rename are noticed too. Watching ends when ctx is done.
func (w *Watcher[T]) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrWatcherStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.started = true

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch(ctx)
	return nil
}

// Done is closed when the watch loop has exited.
func (w *Watcher[T]) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher[T]) watch(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	var timer clock.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Config watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !(event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)) {
				continue
			}
			w.logger.Debug("Config file change detected", "op", event.Op.String())
			stopTimer()
			timer = w.clock.NewTimer(w.debounce)
			timerC = timer.C()

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	handlers := make([]func(T), 0, len(w.handlers))
	live := w.order[:0]
	for _, id := range w.order {
		if h, ok := w.handlers[id]; ok {
			handlers = append(handlers, h)
			live = append(live, id)
		}
	}
	w.order = live
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path, "handlers", len(handlers))
	for _, h := range handlers {
		h(cfg)
	}
}

// WatchLogging reloads logging levels from path until ctx is done. A non-empty level
// was set outside the file and stays the global level; module levels always follow
// the file.
func WatchLogging(ctx context.Context, path, level string, logger logging.Logger) (*Watcher[File], error) {
	w := NewWatcher(path, Load, logger)
	w.OnReload(func(f File) {
		cfg := f.Logging
		if level != "" {
			cfg.Level = level
		}
		logging.SetLevels(cfg)
	})
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

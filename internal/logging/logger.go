package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 500

// Logger is satisfied by *slog.Logger. Packages accept it so tests can pass any
// slog-compatible logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the logging settings of the [logging] config section.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu          sync.RWMutex
	current     Config
	initialized bool
	loggers     = make(map[string]*slog.Logger)
	levels      = make(map[string]*slog.LevelVar)
	rootLevel   = &slog.LevelVar{}
	history     *History
	sink        func(Entry)
)

// Initialize configures output format and levels. Loggers handed out earlier keep
// working: their levels are updated and their handlers rebuilt.
func Initialize(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	current = cfg
	initialized = true
	history = NewHistory(historySize)

	rootLevel.Set(levelOrDefault(cfg.Level, slog.LevelInfo))
	for module, lv := range levels {
		lv.Set(moduleLevel(module))
		loggers[module] = slog.New(newHandler(cfg.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(cfg.Format, rootLevel)))
}

// SetLevels applies new global and per-module levels to every existing logger
// without touching handlers. Format changes need a restart.
func SetLevels(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	current.Level = cfg.Level
	current.Modules = cfg.Modules
	rootLevel.Set(levelOrDefault(cfg.Level, slog.LevelInfo))
	for module, lv := range levels {
		lv.Set(moduleLevel(module))
	}
}

// GetLogger returns the logger of module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	logger, ok := loggers[module]
	mu.RUnlock()
	if ok {
		return logger
	}

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := loggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	lv.Set(slog.LevelInfo)
	format := "text"
	if initialized {
		lv.Set(moduleLevel(module))
		format = current.Format
	}

	logger = slog.New(newHandler(format, lv)).With("module", module)
	loggers[module] = logger
	levels[module] = lv
	return logger
}

// GetHistory returns the in-memory log history, nil before Initialize.
func GetHistory() *History {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// SetSink registers fn to receive every entry written to the history. Pass nil to
// remove it.
func SetSink(fn func(Entry)) {
	mu.Lock()
	defer mu.Unlock()
	sink = fn
}

// moduleLevel must be called with mu held.
func moduleLevel(module string) slog.Level {
	level := levelOrDefault(current.Level, slog.LevelInfo)
	if override, ok := current.Modules[module]; ok {
		level = levelOrDefault(override, level)
	}
	return level
}

// newHandler writes to stdout and the journal when they are available, and always to
// the history.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutAttached() {
		handlers = append(handlers, stdout)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, newHistoryHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutAttached reports whether stdout can be written to.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelOrDefault(s string, fallback slog.Level) slog.Level {
	if level, ok := parseLevel(s); ok {
		return level
	}
	return fallback
}

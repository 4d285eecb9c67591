package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// historyHandler records log entries in the package History and forwards them to the
// sink. It looks both up on every record so loggers created before Initialize pick
// them up later.
type historyHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newHistoryHandler(level slog.Leveler) *historyHandler {
	return &historyHandler{level: level}
}

func (h *historyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *historyHandler) Handle(_ context.Context, r slog.Record) error {
	mu.RLock()
	hist, fn := history, sink
	mu.RUnlock()
	if hist == nil && fn == nil {
		return nil
	}

	entry := Entry{
		Time:       r.Time,
		Level:      strings.ToLower(r.Level.String()),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	collect := func(a slog.Attr) bool {
		if a.Key == "module" && len(h.groups) == 0 {
			entry.Module = a.Value.String()
			return true
		}
		flatten(entry.Attributes, h.groups, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if hist != nil {
		hist.Add(entry)
	}
	if fn != nil {
		fn(entry)
	}
	return nil
}

func (h *historyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &historyHandler{
		level:  h.level,
		attrs:  append(append([]slog.Attr(nil), h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *historyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &historyHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}

// flatten stores a under a dotted key built from groups.
func flatten(dst map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		nested := append(append([]string(nil), groups...), a.Key)
		for _, ga := range a.Value.Group() {
			flatten(dst, nested, ga)
		}
	case slog.KindTime:
		dst[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = a.Value.Any()
		}
	default:
		dst[key] = a.Value.Any()
	}
}

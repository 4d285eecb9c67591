package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func reset(t *testing.T) {
	t.Helper()
	mu.Lock()
	loggers = make(map[string]*slog.Logger)
	levels = make(map[string]*slog.LevelVar)
	current = Config{}
	initialized = false
	history = nil
	sink = nil
	mu.Unlock()
	t.Cleanup(func() { SetSink(nil) })
}

func TestModuleLevelOverride(t *testing.T) {
	reset(t)
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"keyboard": "debug",
			"http":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"keyboard", true, true, true},
		{"http", false, false, true},
		{"reloader", false, true, true},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	reset(t)
	ctx := context.Background()

	before := GetLogger("keyboard")
	if before.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"keyboard": "debug"}})

	after := GetLogger("keyboard")
	if !after.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("Initialize did not apply the module level")
	}
	if !before.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("logger obtained before Initialize did not pick up the new level")
	}
}

func TestSetLevelsAtRuntime(t *testing.T) {
	reset(t)
	Initialize(Config{Level: "info"})
	ctx := context.Background()

	logger := GetLogger("reloader")
	if logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug enabled before SetLevels")
	}

	SetLevels(Config{Level: "warn", Modules: map[string]string{"reloader": "debug"}})
	if !logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("module override not applied by SetLevels")
	}
	if GetLogger("api").Handler().Enabled(ctx, slog.LevelInfo) {
		t.Error("new global level not applied to a logger created afterwards")
	}

	SetLevels(Config{Level: "error"})
	if logger.Handler().Enabled(ctx, slog.LevelWarn) {
		t.Error("dropped module override still in effect")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLevel(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMultiHandlerWritesOncePerAcceptingHandler(t *testing.T) {
	var buf bytes.Buffer
	debug := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debug, info)).With("module", "test")
	logger.Debug("only debug")
	logger.Info("both")

	out := buf.String()
	if n := strings.Count(out, "only debug"); n != 1 {
		t.Errorf("debug record written %d times, want 1", n)
	}
	if n := strings.Count(out, "both"); n != 2 {
		t.Errorf("info record written %d times, want 2", n)
	}
}

func TestHistoryKeepsMostRecent(t *testing.T) {
	h := NewHistory(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		h.Add(Entry{Message: msg})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "cde"},
		{2, "de"},
		{10, "cde"},
	}
	for _, tt := range tests {
		var got strings.Builder
		for _, e := range h.Recent(tt.n) {
			got.WriteString(e.Message)
		}
		if got.String() != tt.want {
			t.Errorf("Recent(%d) = %q, want %q", tt.n, got.String(), tt.want)
		}
	}
}

func TestHistoryHandlerRecordsEntries(t *testing.T) {
	reset(t)
	Initialize(Config{Level: "debug"})

	var sunk []Entry
	SetSink(func(e Entry) { sunk = append(sunk, e) })

	GetLogger("keyboard").With("key", "Num Lock").Warn("Key did not converge",
		"attempts", 10, "elapsed", 2*time.Second)

	entries := GetHistory().Recent(0)
	if len(entries) != 1 {
		t.Fatalf("history holds %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "keyboard" || e.Level != "warn" || e.Message != "Key did not converge" {
		t.Errorf("entry = %+v", e)
	}
	if e.Attributes["key"] != "Num Lock" {
		t.Errorf("key attribute = %v", e.Attributes["key"])
	}
	if e.Attributes["elapsed"] != "2s" {
		t.Errorf("elapsed attribute = %v, want 2s", e.Attributes["elapsed"])
	}
	if len(sunk) != 1 {
		t.Errorf("sink received %d entries, want 1", len(sunk))
	}
}

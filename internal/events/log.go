package events

import (
	"time"

	"github.com/smazurov/lockkeys/internal/logging"
)

// LogEntryFrom converts a history entry into its event form.
func LogEntryFrom(e logging.Entry) LogEntryEvent {
	return LogEntryEvent{
		Timestamp:  e.Time.UTC().Format(time.RFC3339Nano),
		Level:      e.Level,
		Module:     e.Module,
		Message:    e.Message,
		Attributes: e.Attributes,
	}
}

// LogSink returns a logging sink that publishes every entry on bus.
// Install it with logging.SetSink.
func LogSink(bus *Bus) func(logging.Entry) {
	return func(e logging.Entry) {
		bus.Publish(LogEntryFrom(e))
	}
}

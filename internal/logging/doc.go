// Package logging provides slog loggers with per-module levels.
//
// Call Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"reloader": "debug"},
//	})
//	logger := logging.GetLogger("keyboard")
//	logger.Info("Key converged", "key", "Num Lock")
//
// Records go to stdout when it is attached, to the systemd journal when journald is
// reachable (identifier "lockkeys"), and to an in-memory History served by the API.
// SetLevels changes levels at runtime; the config watcher calls it when the file
// changes.
//
// Journal queries:
//
//	journalctl -t lockkeys -f
//	journalctl -t lockkeys MODULE=keyboard KEY="Num Lock"
//
// TOML:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	keyboard = "debug"
//	http = "warn"
package logging

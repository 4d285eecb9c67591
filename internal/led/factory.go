package led

import (
	"errors"

	"github.com/smazurov/lockkeys/internal/logging"
)

// ErrNoKeyboardLEDs is returned by Detect when no keyboard LEDs are exposed.
var ErrNoKeyboardLEDs = errors.New("no keyboard LEDs found")

// Detect returns a Sysfs for root when it exposes at least one keyboard LED.
func Detect(root string, logger logging.Logger) (*Sysfs, error) {
	s := NewSysfs(root)
	available := s.Available()
	if len(available) == 0 {
		logger.Info("No keyboard LEDs found", "root", s.root)
		return nil, ErrNoKeyboardLEDs
	}
	logger.Debug("Detected keyboard LEDs", "root", s.root, "keys", available)
	return s, nil
}

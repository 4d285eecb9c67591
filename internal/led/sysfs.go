package led

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/smazurov/lockkeys/internal/keyboard"
)

// DefaultRoot is the sysfs LED class directory.
const DefaultRoot = "/sys/class/leds"

// indicator maps a keyboard key name to the LED function suffix used by the kernel
// input LEDs ("input<N>::<function>"). ids follow the X keyboard indicator order.
type indicator struct {
	name     string
	function string
	id       int64
}

var indicators = []indicator{
	{"Caps Lock", "capslock", 0},
	{"Num Lock", "numlock", 1},
	{"Scroll Lock", "scrolllock", 2},
	{"Compose", "compose", 3},
	{"Kana", "kana", 4},
}

// ErrUnknownIndicator is returned for key names without a kernel LED function.
var ErrUnknownIndicator = errors.New("no keyboard LED for key")

// Sysfs reads and writes LEDs under a sysfs LED class directory.
type Sysfs struct {
	root string
}

// NewSysfs creates a Sysfs rooted at root, DefaultRoot when empty.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = DefaultRoot
	}
	return &Sysfs{root: root}
}

// Set implements Controller by writing brightness 1 or 0.
func (s *Sysfs) Set(name string, on bool) error {
	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", name, path, err)
	}
	return writeBrightness(path, on)
}

// Query implements keyboard.StatusSource. A key is on when any keyboard reports its
// LED lit; keys without any LED are not reported.
func (s *Sysfs) Query(ctx context.Context) ([]keyboard.Status, error) {
	var statuses []keyboard.Status
	for _, ind := range indicators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paths, err := s.inputLEDs(ind.function)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			continue
		}

		on := false
		for _, path := range paths {
			lit, err := readBrightness(path)
			if err != nil {
				return nil, err
			}
			on = on || lit
		}
		statuses = append(statuses, keyboard.Status{
			Name:  ind.name,
			ID:    big.NewInt(ind.id),
			State: keyboard.StateOf(on),
		})
	}
	if statuses == nil {
		statuses = []keyboard.Status{}
	}
	return statuses, nil
}

// Key returns a key switching the LEDs of name on every keyboard.
func (s *Sysfs) Key(name string) (keyboard.Key, error) {
	i := slices.IndexFunc(indicators, func(ind indicator) bool { return ind.name == name })
	if i < 0 {
		return keyboard.Key{}, fmt.Errorf("%w: %s", ErrUnknownIndicator, name)
	}
	function := indicators[i].function

	apply := func(on bool) keyboard.Action {
		return func(context.Context) error {
			paths, err := s.inputLEDs(function)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no %s LED under %s", function, s.root)
			}
			var errs []error
			for _, path := range paths {
				errs = append(errs, writeBrightness(path, on))
			}
			return errors.Join(errs...)
		}
	}
	return keyboard.Key{Name: name, TurnOn: apply(true), TurnOff: apply(false)}, nil
}

// Available lists the key names with at least one LED present.
func (s *Sysfs) Available() []string {
	var names []string
	for _, ind := range indicators {
		if paths, err := s.inputLEDs(ind.function); err == nil && len(paths) > 0 {
			names = append(names, ind.name)
		}
	}
	return names
}

func (s *Sysfs) inputLEDs(function string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, "input*::"+function))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s LEDs: %w", function, err)
	}
	slices.Sort(paths)
	return paths, nil
}

func readBrightness(ledPath string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(ledPath, "brightness"))
	if err != nil {
		return false, fmt.Errorf("failed to read LED brightness: %w", err)
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, fmt.Errorf("invalid brightness in %s: %w", ledPath, err)
	}
	return value > 0, nil
}

func writeBrightness(ledPath string, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

// Package cmd holds the lockkeys subcommands and the keyboard backend selection they
// share with the daemon.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/smazurov/lockkeys/internal/config"
	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/smazurov/lockkeys/internal/led"
	"github.com/smazurov/lockkeys/internal/logging"
	"github.com/smazurov/lockkeys/internal/process"
	"github.com/smazurov/lockkeys/internal/xorg"
)

// Backend names accepted by KeyboardOptions.Source.
const (
	SourceAuto  = "auto"
	SourceX11   = "x11"
	SourceSysfs = "sysfs"
)

// ErrUnknownSource is returned for a backend name NewKeyboard does not know.
var ErrUnknownSource = errors.New("unknown keyboard source")

// KeyboardOptions selects and configures the keyboard backend.
type KeyboardOptions struct {
	Source      string
	SysfsRoot   string
	Keys        []string
	Definitions []config.KeyDefinition
	Exec        process.Executor
	Logger      logging.Logger
	// LookPath reports missing executables; process.LookPath when nil.
	LookPath func(names ...string) []string
}

// Keyboard is a ready status source with the keys it drives.
type Keyboard struct {
	Kind        string
	Source      keyboard.StatusSource
	Keys        []keyboard.Key
	ResetKeymap keyboard.Action
}

// Key returns the key called name.
func (k *Keyboard) Key(name string) (keyboard.Key, error) {
	for _, key := range k.Keys {
		if key.Name == name {
			return key, nil
		}
	}
	return keyboard.Key{}, fmt.Errorf("%w: %s", keyboard.ErrUnknownKey, name)
}

// NewKeyboard builds the backend named by opts.Source. "auto" picks X11 when a
// display and xset are available, sysfs LEDs otherwise. Keys from opts.Definitions
// replace built-in keys of the same name and are added when not listed in opts.Keys.
func NewKeyboard(opts KeyboardOptions) (*Keyboard, error) {
	if opts.LookPath == nil {
		opts.LookPath = process.LookPath
	}

	source := opts.Source
	if source == "" || source == SourceAuto {
		source = SourceSysfs
		if os.Getenv("DISPLAY") != "" && len(opts.LookPath("xset")) == 0 {
			source = SourceX11
		}
		opts.Logger.Debug("Keyboard source selected", "source", source)
	}

	defs := make(map[string]config.KeyDefinition, len(opts.Definitions))
	names := append([]string(nil), opts.Keys...)
	for _, def := range opts.Definitions {
		defs[def.Name] = def
		if !slices.Contains(names, def.Name) {
			names = append(names, def.Name)
		}
	}

	kb := &Keyboard{Kind: source}
	var builtin func(name string) (keyboard.Key, error)

	switch source {
	case SourceX11:
		if missing := opts.LookPath(xorg.RequiredTools()...); len(missing) > 0 {
			opts.Logger.Warn("X11 tools missing, some keys will fail", "missing", missing)
		}
		tools := xorg.New(opts.Exec)
		kb.Source = tools
		kb.ResetKeymap = tools.PrepareScrollLock
		builtin = func(name string) (keyboard.Key, error) {
			if key, ok := tools.Builtin(name); ok {
				return key, nil
			}
			return tools.Key(name), nil
		}
	case SourceSysfs:
		leds, err := led.Detect(opts.SysfsRoot, opts.Logger)
		if err != nil {
			return nil, err
		}
		kb.Source = leds
		builtin = leds.Key
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Source)
	}

	for _, name := range names {
		if def, ok := defs[name]; ok {
			kb.Keys = append(kb.Keys, def.Key(opts.Exec))
			continue
		}
		key, err := builtin(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		kb.Keys = append(kb.Keys, key)
	}
	if len(kb.Keys) == 0 {
		return nil, errors.New("no keys configured")
	}
	return kb, nil
}

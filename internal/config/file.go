package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/smazurov/lockkeys/internal/logging"
	"github.com/smazurov/lockkeys/internal/process"
)

// File holds the parts of the config file that do not map onto flat CLI options.
type File struct {
	Logging logging.Config
	Keys    []KeyDefinition
	// LEDs maps a key name to the board LED that mirrors it.
	LEDs map[string]string
}

// KeyDefinition is a `[[keys]]` entry: a key whose on and off actions are shell-free
// command lines.
type KeyDefinition struct {
	Name string `toml:"name"`
	On   string `toml:"on"`
	Off  string `toml:"off"`
}

// Validate checks that the definition names a key and both commands parse.
func (d KeyDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("key name is empty")
	}
	for label, command := range map[string]string{"on": d.On, "off": d.Off} {
		args, err := process.ParseCommand(command)
		if err != nil {
			return fmt.Errorf("key %q %s command: %w", d.Name, label, err)
		}
		if len(args) == 0 {
			return fmt.Errorf("key %q %s command: %w", d.Name, label, process.ErrEmptyCommand)
		}
	}
	return nil
}

// Key turns the definition into a keyboard.Key that runs its commands through ex.
func (d KeyDefinition) Key(ex process.Executor) keyboard.Key {
	run := func(command string) keyboard.Action {
		return func(ctx context.Context) error {
			_, err := process.RunCommand(ctx, ex, command)
			return err
		}
	}
	return keyboard.Key{Name: d.Name, TurnOn: run(d.On), TurnOff: run(d.Off)}
}

// DefaultLogging is used when the config file has no [logging] table.
func DefaultLogging() logging.Config {
	return logging.Config{Level: "info", Format: "text", Modules: map[string]string{}}
}

// Load reads the config file at path. A missing file yields defaults. Inside
// [logging], `level` and `format` are global and every other entry is a module level.
func Load(path string) (File, error) {
	f := File{Logging: DefaultLogging(), LEDs: map[string]string{}}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var raw struct {
		Logging map[string]any    `toml:"logging"`
		Keys    []KeyDefinition   `toml:"keys"`
		LEDs    map[string]string `toml:"leds"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return f, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}

	for key, value := range raw.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			f.Logging.Level = s
		case "format":
			f.Logging.Format = s
		default:
			f.Logging.Modules[key] = s
		}
	}

	seen := make(map[string]bool, len(raw.Keys))
	for i, def := range raw.Keys {
		if err := def.Validate(); err != nil {
			return f, fmt.Errorf("keys[%d]: %w", i, err)
		}
		if seen[def.Name] {
			return f, fmt.Errorf("keys[%d]: duplicate key %q", i, def.Name)
		}
		seen[def.Name] = true
	}
	f.Keys = raw.Keys

	for key, led := range raw.LEDs {
		f.LEDs[key] = led
	}
	return f, nil
}

package config

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/smazurov/lockkeys/internal/process"
)

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
[logging]
level = "debug"
format = "json"
keyboard = "warn"
exec = "error"

[[keys]]
name = "Backlight"
on = "brightnessctl -d kbd_backlight set 100%"
off = "brightnessctl -d kbd_backlight set 0"

[leds]
"Num Lock" = "numlock"
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if f.Logging.Level != "debug" || f.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", f.Logging)
	}
	if want := map[string]string{"keyboard": "warn", "exec": "error"}; !reflect.DeepEqual(f.Logging.Modules, want) {
		t.Errorf("Modules = %v, want %v", f.Logging.Modules, want)
	}
	if len(f.Keys) != 1 || f.Keys[0].Name != "Backlight" {
		t.Fatalf("Keys = %+v, want one Backlight key", f.Keys)
	}
	if f.LEDs["Num Lock"] != "numlock" {
		t.Errorf("LEDs = %v", f.LEDs)
	}
}

func TestLoadFileDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.toml")} {
		f, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", path, err)
		}
		if !reflect.DeepEqual(f.Logging, DefaultLogging()) {
			t.Errorf("Load(%q).Logging = %+v, want defaults", path, f.Logging)
		}
		if len(f.Keys) != 0 {
			t.Errorf("Load(%q).Keys = %v, want none", path, f.Keys)
		}
	}
}

func TestLoadFileInvalidKeys(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"missing name", "[[keys]]\non = \"a\"\noff = \"b\"", "key name is empty"},
		{"empty off", "[[keys]]\nname = \"K\"\non = \"a\"", "off command"},
		{"unclosed quote", "[[keys]]\nname = \"K\"\non = \"echo 'x\"\noff = \"b\"", "unclosed"},
		{"duplicate", "[[keys]]\nname = \"K\"\non = \"a\"\noff = \"b\"\n[[keys]]\nname = \"K\"\non = \"a\"\noff = \"b\"", "duplicate key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.toml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

type recordingExec struct {
	calls [][]string
	err   error
}

func (r *recordingExec) Execute(_ context.Context, name string, args ...string) (process.Output, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return process.Output{}, r.err
}

func TestKeyDefinitionKey(t *testing.T) {
	ex := &recordingExec{}
	key := KeyDefinition{Name: "Backlight", On: `light -s "kbd 0" -S 100`, Off: "light -S 0"}.Key(ex)

	if key.Name != "Backlight" {
		t.Errorf("Name = %q", key.Name)
	}
	if err := key.Apply(context.Background(), true); err != nil {
		t.Fatalf("Apply(true) error = %v", err)
	}
	if err := key.Apply(context.Background(), false); err != nil {
		t.Fatalf("Apply(false) error = %v", err)
	}

	want := [][]string{
		{"light", "-s", "kbd 0", "-S", "100"},
		{"light", "-S", "0"},
	}
	if !reflect.DeepEqual(ex.calls, want) {
		t.Errorf("calls = %v, want %v", ex.calls, want)
	}

	boom := errors.New("boom")
	ex.err = boom
	if err := key.Apply(context.Background(), true); !errors.Is(err, boom) {
		t.Errorf("Apply() error = %v, want %v", err, boom)
	}
}

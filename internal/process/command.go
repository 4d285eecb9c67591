package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned for a command line without any argument.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand splits command into arguments. Single and double quotes group words,
// and a backslash outside single quotes escapes the next character.
func ParseCommand(command string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		pending bool
	)

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			pending = true
		case quote != 0 && r == quote:
			quote = 0
		case r == '\\' && quote != '\'' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			pending = true
		case quote == 0 && (r == ' ' || r == '\t'):
			if pending {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unclosed %c quote in command %q", quote, command)
	}
	if pending {
		args = append(args, current.String())
	}
	return args, nil
}

// RunCommand parses command and executes it with ex.
func RunCommand(ctx context.Context, ex Executor, command string) (Output, error) {
	args, err := ParseCommand(command)
	if err != nil {
		return Output{}, err
	}
	if len(args) == 0 {
		return Output{}, ErrEmptyCommand
	}
	return ex.Execute(ctx, args[0], args[1:]...)
}

// LookPath reports which of names are missing from PATH.
func LookPath(names ...string) (missing []string) {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

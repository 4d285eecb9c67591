package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteCapturesOutput(t *testing.T) {
	e := NewExec(WithLogger(testLogger()))

	out, err := e.Execute(context.Background(), "sh", "-c", "echo hello; echo careful >&2")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", out.Stdout, "hello\n")
	}
	if out.Stderr != "careful\n" {
		t.Errorf("Stderr = %q, want %q", out.Stderr, "careful\n")
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := NewExec(WithLogger(testLogger()))

	_, err := e.Execute(context.Background(), "sh", "-c", "echo partial; echo broken >&2; exit 3")

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecError", err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", execErr.ExitCode)
	}
	if execErr.Stdout != "partial\n" || execErr.Stderr != "broken\n" {
		t.Errorf("Stdout = %q, Stderr = %q", execErr.Stdout, execErr.Stderr)
	}
	if !strings.HasPrefix(execErr.Command, "sh -c") {
		t.Errorf("Command = %q", execErr.Command)
	}
	if !strings.Contains(err.Error(), "exited with code 3: broken") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	e := NewExec(WithLogger(testLogger()))

	_, err := e.Execute(context.Background(), "lockkeys-no-such-binary")

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecError", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", execErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "could not be started") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestExecuteContextCancellation(t *testing.T) {
	e := NewExec(WithLogger(testLogger()), WithGracefulTimeout(100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Execute(ctx, "sh", "-c", "trap '' INT; sleep 10")
	if err == nil {
		t.Fatal("Execute() error = nil for a cancelled command")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("cancelled command took %s to return", elapsed)
	}
}

func TestExecuteObserver(t *testing.T) {
	var names []string
	var failures int
	e := NewExec(WithLogger(testLogger()), WithObserver(func(name string, _ time.Duration, err error) {
		names = append(names, name)
		if err != nil {
			failures++
		}
	}))

	_, _ = e.Execute(context.Background(), "true")
	_, _ = e.Execute(context.Background(), "false")

	if len(names) != 2 || names[0] != "true" || names[1] != "false" {
		t.Errorf("observed %v, want [true false]", names)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/lockkeys/internal/logging"
)

const defaultGracefulTimeout = 2 * time.Second

// Output is what a successful command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Executor runs a command to completion.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (Output, error)
}

// ExecError is returned when a command cannot be started or exits with a non-zero
// status.
type ExecError struct {
	Command  string
	ExitCode int // -1 when the process could not be spawned
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("command '%s' could not be started: %v", e.Command, e.Err)
	}
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("command '%s' exited with code %d: %s", e.Command, e.ExitCode, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Observer is notified after every command with its duration and result.
type Observer func(name string, elapsed time.Duration, err error)

// Option configures an Exec.
type Option func(*Exec)

// WithLogger sets the logger for command diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(e *Exec) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGracefulTimeout sets how long a cancelled command may take to exit after
// SIGINT before it is killed.
func WithGracefulTimeout(d time.Duration) Option {
	return func(e *Exec) {
		if d > 0 {
			e.gracefulTimeout = d
		}
	}
}

// WithObserver registers fn to be called after every command.
func WithObserver(fn Observer) Option {
	return func(e *Exec) {
		e.observe = fn
	}
}

// Exec is the os/exec backed Executor.
type Exec struct {
	logger          logging.Logger
	gracefulTimeout time.Duration
	observe         Observer
}

// NewExec creates an Exec.
func NewExec(opts ...Option) *Exec {
	e := &Exec{
		logger:          slog.Default(),
		gracefulTimeout: defaultGracefulTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs name with args and waits for it. Output written to stderr by a
// successful command is logged as a warning and returned.
func (e *Exec) Execute(ctx context.Context, name string, args ...string) (Output, error) {
	command := strings.Join(append([]string{name}, args...), " ")
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
	}
	cmd.WaitDelay = e.gracefulTimeout

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Running command", "command", command)
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		err = &ExecError{
			Command:  command,
			ExitCode: exitCode(err),
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			Err:      err,
		}
	} else if strings.TrimSpace(out.Stderr) != "" {
		e.logger.Warn("Command wrote to stderr", "command", command, "stderr", strings.TrimSpace(out.Stderr))
	}

	if e.observe != nil {
		e.observe(name, time.Since(start), err)
	}
	if err != nil {
		return Output{}, err
	}
	return out, nil
}

// exitCode returns the exit status of a finished process, 128+signal for a process
// killed by a signal, and -1 when nothing ran.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return exitErr.ExitCode()
}

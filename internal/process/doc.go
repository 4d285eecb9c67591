// Package process runs short-lived external commands.
//
// Exec implements Executor on os/exec: it captures stdout and stderr, reports
// non-zero exits and spawn failures as *ExecError, and stops the whole process group
// with SIGINT (then SIGKILL after a grace period) when the context is cancelled.
//
//	out, err := process.NewExec().Execute(ctx, "xset", "q")
//	var execErr *process.ExecError
//	if errors.As(err, &execErr) {
//	    log.Printf("exit %d: %s", execErr.ExitCode, execErr.Stderr)
//	}
//
// ParseCommand splits a configured command line into arguments, honouring quotes and
// backslash escapes, and RunCommand executes such a line.
package process

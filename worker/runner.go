package worker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/KarthikHK-01/queuectl"
)

// DefaultOutputLimit is how many trailing bytes of stdout and stderr a
// ShellRunner keeps per execution.
const DefaultOutputLimit = 4096

// Runner executes a job's command.
type Runner interface {
	// Run executes command and blocks until it exits or ctx is done.
	// A command that runs and fails returns an error wrapping
	// queuectl.ErrExecutionFailure, usually an *ExitError.
	Run(ctx context.Context, command string) (Result, error)
}

// Result describes a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError reports a command that could not be started or exited non-zero.
type ExitError struct {
	// ExitCode is the process exit status, or -1 when the command never
	// started or was killed by a signal.
	ExitCode int
	// Stderr is the trimmed tail of the command's standard error.
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := e.Err.Error()
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap exposes both queuectl.ErrExecutionFailure and the underlying
// exec error to errors.Is and errors.As.
func (e *ExitError) Unwrap() []error {
	return []error{queuectl.ErrExecutionFailure, e.Err}
}

// ShellRunner runs commands through "<Shell> -c".
type ShellRunner struct {
	// Shell defaults to /bin/sh.
	Shell string
	// OutputLimit caps captured output per stream. Zero means DefaultOutputLimit.
	OutputLimit int
	// WaitDelay bounds how long Run waits for output pipes after the
	// process exits or ctx is cancelled. Zero means one second.
	WaitDelay time.Duration
}

var _ Runner = (*ShellRunner)(nil)

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, command string) (Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	limit := r.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}

	stdout := &tailBuffer{limit: limit}
	stderr := &tailBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return res, &ExitError{
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(res.Stderr),
		Err:      err,
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[len(p)-b.limit:])
		b.truncated = true
		return n, nil
	}
	if over := b.buf.Len() + len(p) - b.limit; over > 0 {
		b.buf.Next(over)
		b.truncated = true
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	if b.truncated {
		return "..." + b.buf.String()
	}
	return b.buf.String()
}

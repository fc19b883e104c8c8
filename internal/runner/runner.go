// Package runner spawns external commands with streamed stdout capture.
// Arguments are always passed as a vector; no shell ever parses them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// stderrCap bounds how much stderr is retained for error reporting.
const stderrCap = 8192

// Options controls a single run.
type Options struct {
	// Timeout force-terminates the child when exceeded. 0 means none;
	// the caller owns timeout policy.
	Timeout time.Duration

	// OnOutput, when set, receives each newly arrived stdout chunk
	// (only the delta, never the cumulative buffer).
	OnOutput func(delta string)

	// Dir is the child's working directory. Empty inherits the parent's.
	Dir string
}

// ExitError reports a child that ran but exited nonzero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Run executes command with args, streaming stdout and buffering stderr.
// It returns the full stdout on exit code 0.
//
// Failure conditions are distinguishable by the caller:
//   - missing binary: errors.Is(err, exec.ErrNotFound)
//   - hard timeout: errors.Is(err, context.DeadlineExceeded)
//   - nonzero exit: errors.As(err, **ExitError), carrying code and stderr
func Run(ctx context.Context, command string, args []string, opts Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	var stderr cappedBuffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", command, exec.ErrNotFound)
		}
		return "", fmt.Errorf("start %s: %w", command, err)
	}

	var out strings.Builder
	buf := make([]byte, 32*1024)
	for {
		n, readErr := stdout.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			out.WriteString(chunk)
			if opts.OnOutput != nil {
				opts.OnOutput(chunk)
			}
		}
		if readErr != nil {
			// EOF, or the pipe broke; Wait below reports the real cause.
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s: %w", command, context.DeadlineExceeded)
		}
		var xe *exec.ExitError
		if errors.As(err, &xe) {
			return "", &ExitError{Code: xe.ExitCode(), Stderr: stderr.String()}
		}
		return "", fmt.Errorf("wait %s: %w", command, err)
	}

	return out.String(), nil
}

// cappedBuffer retains at most stderrCap bytes and drops the rest.
type cappedBuffer struct {
	b strings.Builder
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := stderrCap - c.b.Len(); remaining > 0 {
		if len(p) > remaining {
			c.b.Write(p[:remaining])
		} else {
			c.b.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	return c.b.String()
}

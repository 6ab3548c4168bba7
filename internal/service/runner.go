package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"
)

// MaxOutputBytes is the default combined stdout and stderr ceiling.
const MaxOutputBytes = 10 << 20

var (
	ErrOutputLimit = errors.New("output limit exceeded")
	ErrTimeout     = errors.New("timed out")
)

// Runner executes a Command and blocks until it ends.
type Runner struct {
	// MaxOutput caps stdout+stderr, MaxOutputBytes when zero.
	MaxOutput int64
	// WaitDelay bounds the wait for output pipes after the process was killed.
	WaitDelay time.Duration
}

type Command struct {
	Path    string
	Args    []string
	Env     []string // nil inherits the current environment
	Dir     string
	Timeout time.Duration
	// Secrets are argument values masked in logs
	Secrets []string
}

func (c Command) logArgs(args []string) []string {
	if len(c.Secrets) == 0 {
		return args
	}
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if slices.Contains(c.Secrets, arg) {
			out[i] = "***"
		}
	}
	return out
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Stderr  *bytes.Buffer
	Err     error
}

// ExitCode returns the exit code of a finished process or -1.
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Run starts proto and waits for it. The returned error equals Result.Err and
// is one of exec errors, *exec.ExitError, ErrOutputLimit or ErrTimeout.
func (r Runner) Run(ctx context.Context, proto Command) (Result, error) {
	res := Result{
		Path:   proto.Path,
		Args:   append([]string(nil), proto.Args...),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}

	if proto.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	cmd := exec.CommandContext(ctx, res.Path, res.Args...)
	cmd.Env = proto.Env
	cmd.Dir = proto.Dir
	cmd.WaitDelay = r.waitDelay()
	setProcessGroup(cmd)

	limit := r.MaxOutput
	if limit <= 0 {
		limit = MaxOutputBytes
	}
	budget := &outputBudget{
		left:     limit,
		exceeded: func() { cancel(ErrOutputLimit) },
	}
	// exec copies both streams in its own goroutines, WaitDelay bounds them
	// when an escaped grandchild keeps the pipes open
	cmd.Stdout = budget.writer(res.Stdout)
	cmd.Stderr = budget.writer(res.Stderr)

	slog.DebugContext(ctx, "starting process", "path", res.Path, "args", proto.logArgs(res.Args))
	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		res.Stopped = time.Now().UTC()
		res.Err = err
		return res, err
	}

	waitErr := cmd.Wait()
	res.Stopped = time.Now().UTC()
	res.State = cmd.ProcessState

	switch {
	case errors.Is(context.Cause(ctx), ErrOutputLimit):
		res.Err = fmt.Errorf("%w: more than %d bytes", ErrOutputLimit, limit)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%w after %s: %w", ErrTimeout, res.Stopped.Sub(res.Started).Round(time.Millisecond), context.DeadlineExceeded)
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("run canceled: %w", context.Cause(ctx))
	case waitErr != nil:
		res.Err = waitErr
	}
	return res, res.Err
}

func (r Runner) waitDelay() time.Duration {
	if r.WaitDelay <= 0 {
		return 5 * time.Second
	}
	return r.WaitDelay
}

// outputBudget is shared by stdout and stderr writers.
type outputBudget struct {
	mx       sync.Mutex
	left     int64
	exceeded func()
}

func (b *outputBudget) writer(buf *bytes.Buffer) io.Writer {
	return budgetWriter{b: b, buf: buf}
}

type budgetWriter struct {
	b   *outputBudget
	buf *bytes.Buffer
}

func (w budgetWriter) Write(p []byte) (int, error) {
	w.b.mx.Lock()
	defer w.b.mx.Unlock()
	if int64(len(p)) > w.b.left {
		n, _ := w.buf.Write(p[:w.b.left])
		w.b.left = 0
		w.b.exceeded()
		return n, ErrOutputLimit
	}
	w.b.left -= int64(len(p))
	return w.buf.Write(p)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CZERTAINLY/contribart/internal/log"
	"github.com/CZERTAINLY/contribart/internal/model"
	"github.com/CZERTAINLY/contribart/internal/script"

	"github.com/google/uuid"
)

const (
	TaskID      = "update-github-contributions"
	DailyTaskID = "update-github-contributions-daily"
	DailyCron   = "0 6 * * *"

	DefaultMaxDuration = 300 * time.Second
	DefaultInterpreter = "python3"
)

// Task is the unit of work regenerating the contribution art. It holds no
// state between executions and is safe for concurrent use.
type Task struct {
	interpreter string
	locator     script.Locator
	runner      Runner
	maxDuration time.Duration
	defaults    model.Defaults
	environ     func() model.Environ
}

func NewTask(interpreter string, locator script.Locator, defaults model.Defaults) *Task {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	return &Task{
		interpreter: interpreter,
		locator:     locator,
		runner:      Runner{MaxOutput: MaxOutputBytes},
		maxDuration: DefaultMaxDuration,
		defaults:    defaults,
		environ: func() model.Environ {
			return model.EnvironFrom(os.Environ())
		},
	}
}

// TaskFromConfig builds a Task looking for the script next to the running
// executable and below the working directory.
func TaskFromConfig(cfg model.Config) (*Task, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("getting executable path: %w", err)
	}
	maxDuration, err := cfg.Task.Duration()
	if err != nil {
		return nil, err
	}

	locator := script.NewLocator(cfg.Script.Path, filepath.Dir(exe), cwd)
	t := NewTask(cfg.Script.Interpreter, locator, model.DefaultsFor(cwd)).
		WithLimits(maxDuration, cfg.Task.MaxOutput)
	return t, nil
}

// WithLimits overrides the maximal duration and output size. Zero keeps the default.
func (t *Task) WithLimits(maxDuration time.Duration, maxOutput int64) *Task {
	if maxDuration > 0 {
		t.maxDuration = maxDuration
	}
	if maxOutput > 0 {
		t.runner.MaxOutput = maxOutput
	}
	return t
}

// WithEnviron replaces the process environment snapshot, for testing.
func (t *Task) WithEnviron(env model.Environ) *Task {
	t.environ = func() model.Environ { return env }
	return t
}

// Args builds the generator command line for a script.
func Args(scriptPath string, p model.Params) []string {
	args := []string{
		scriptPath,
		"--text", p.Text,
		"--repo-path", p.RepoPath,
		"--branch", p.Branch,
		"--quiet",
		"--json",
	}
	if p.HasRemote() {
		args = append(args, "--remote-url", p.RemoteURL)
	}
	if p.StartDate != "" {
		args = append(args, "--start-date", p.StartDate)
	}
	return args
}

// Run executes the whole pipeline for payload within the maximal duration.
// Missing script, failed process, exceeded output or duration are returned
// as errors; an unparsable summary is only logged.
func (t *Task) Run(ctx context.Context, payload model.Payload) (model.TaskResult, error) {
	ctx = log.ContextAttrs(ctx, slog.Group("task",
		slog.String("id", TaskID),
		slog.String("run_id", uuid.NewString()),
	))
	ctx, cancel := context.WithTimeout(ctx, t.maxDuration)
	defer cancel()

	params := model.Resolve(payload, t.environ(), t.defaults)

	scriptPath, err := t.locator.Locate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to locate generator", "error", err)
		return model.TaskResult{}, err
	}

	slog.InfoContext(ctx, "regenerating github contributions art",
		"params", params,
		"script", scriptPath,
	)

	cmd := Command{
		Path: t.interpreter,
		Args: Args(scriptPath, params),
	}
	if params.HasRemote() {
		cmd.Secrets = []string{params.RemoteURL}
	}
	res, err := t.runner.Run(ctx, cmd)
	if err != nil {
		attrs := []any{
			"error", err,
			"payload", payload,
			"exit_code", res.ExitCode(),
		}
		if res.Stderr != nil && res.Stderr.Len() > 0 {
			attrs = append(attrs, "stderr", res.Stderr.String())
		}
		slog.ErrorContext(ctx, "failed to regenerate github contributions art", attrs...)
		if errors.Is(err, ErrTimeout) {
			return model.TaskResult{}, fmt.Errorf("task %s exceeded %s: %w", TaskID, t.maxDuration, err)
		}
		return model.TaskResult{}, err
	}

	if stderr := res.Stderr.String(); strings.TrimSpace(stderr) != "" {
		slog.WarnContext(ctx, "github contributions art generator warnings", "stderr", stderr)
	}

	summary, lastLine, err := script.ParseSummary(res.Stdout.String())
	if err != nil {
		slog.WarnContext(ctx, "unable to parse JSON summary from generator output",
			"lastLine", lastLine,
			"error", err,
		)
	}

	slog.DebugContext(ctx, "generator finished",
		"duration", res.Stopped.Sub(res.Started).String(),
		"has_summary", summary != nil,
	)
	return model.NewTaskResult(params, summary), nil
}

// Daily is the scheduled unit, it runs the task with an empty payload.
func (t *Task) Daily(ctx context.Context) (model.TaskResult, error) {
	ctx = log.ContextAttrs(ctx, slog.String("trigger", DailyTaskID))
	return t.Run(ctx, model.Payload{})
}

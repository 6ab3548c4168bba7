package service

// Package service implements the contribution art task and its daily schedule.
//
// Overview
// A Task resolves the invocation parameters, locates the generator script,
// runs it through a Runner and turns the last stdout line into a summary.
// The Scheduler fires the daily variant of the Task on a cron expression and
// hands every result to the configured sinks.
//
// Runner is a thin, opinionated wrapper around os/exec:
//   - starts the process in its own process group (unix)
//   - inherits the environment unless Command.Env is set
//   - drains stdout and stderr concurrently into buffers
//   - enforces a combined output ceiling, the process is killed once exceeded
//   - kills the whole process group when the context ends
//
// Data flow:
//
//   Scheduler             Task                    Runner
//       |                   |                       |
//   cron -> Daily() ------->| Resolve + Locate      |
//       |                   | Run() --------------->| Start()
//       |                   |                       | drain stdout/stderr
//       |                   |<------ Result --------| Wait()
//       |                   | ParseSummary          |
//       |<-- TaskResult ----|                       |
//   sinks.Write()           |                       |
//
// Invariants:
//   - Every execution produces either a TaskResult or an error, never both.
//   - A missing script fails the execution before any process is spawned.
//   - Stderr is diagnostic only; the exit status alone decides success.
//   - An unparsable summary is logged and omitted, it is not an error.
//   - Nothing is retried here, retry policy belongs to the caller.
//   - Overlapping runs against the same repository path are not guarded.

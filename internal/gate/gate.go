// Package gate defines the core model of a quality gate: its static
// specification, the shared per-run context, and the result of one
// evaluation.
package gate

import (
	"context"
	"log/slog"
	"time"

	"qgate/internal/fileset"
)

// Status is the outcome of a single gate evaluation.
type Status string

const (
	// StatusPass means the gate ran and found nothing wrong.
	StatusPass Status = "pass"
	// StatusWarn means the gate found advisory issues; never blocks.
	StatusWarn Status = "warn"
	// StatusFail means the gate found blocking issues or could not run
	// its tool; fails the overall run for hard gates.
	StatusFail Status = "fail"
	// StatusSkip means the gate did not run. Distinct from pass: a
	// skipped check made no statement about the files.
	StatusSkip Status = "skip"
)

// Severity classifies how a gate's failure affects the run. Static per
// gate, declared in the Spec, never decided at runtime.
type Severity string

const (
	// Hard gates block the run on failure.
	Hard Severity = "hard"
	// Advisory gates report but never block; their violations surface
	// as warnings.
	Advisory Severity = "advisory"
)

// Phase places a gate in the runner's schedule.
type Phase string

const (
	// Sequential gates run one at a time in declared order. Gates with
	// side effects on the working tree must run here.
	Sequential Phase = "sequential"
	// Parallel gates are mutually independent and run concurrently;
	// their results are collected before any is evaluated.
	Parallel Phase = "parallel"
)

// Result is the outcome of one gate evaluation.
type Result struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Pass returns a passing result.
func Pass() Result {
	return Result{Status: StatusPass}
}

// Warn returns an advisory result with a diagnostic message.
func Warn(message string) Result {
	return Result{Status: StatusWarn, Message: message}
}

// Fail returns a failing result with a diagnostic message.
func Fail(message string) Result {
	return Result{Status: StatusFail, Message: message}
}

// Skip returns a skipped result with the reason the gate did not run.
func Skip(reason string) Result {
	return Result{Status: StatusSkip, Message: reason}
}

// Context carries the read-only inputs shared by every gate in a run.
type Context struct {
	RepoRoot string
	Branch   string
	Head     string
	// Files is the FileSet computed once by the selector; immutable for
	// the duration of the run.
	Files  *fileset.FileSet
	Logger *slog.Logger
	// Env carries environment toggles such as QGATE_SKIP.
	Env map[string]string
}

// Spec is the static configuration of one gate. Specs are defined at
// process start and never mutated.
type Spec struct {
	Name     string
	Phase    Phase
	Severity Severity
	// Timeout bounds one evaluation; zero means no limit. Expiry forces
	// the result to Fail with a timeout reason.
	Timeout time.Duration
	// AppliesTo decides whether the gate runs at all. Returning false
	// records the gate as skipped with the given reason.
	AppliesTo func(gc *Context) (bool, string)
	// Execute evaluates the gate. It must respect ctx cancellation when
	// waiting on subprocesses.
	Execute func(ctx context.Context, gc *Context) Result
}

// FilePatternApplicability returns an AppliesTo predicate that requires at
// least one file in the run's FileSet to match the given patterns. With no
// patterns, it requires a non-empty FileSet.
func FilePatternApplicability(patterns []string) func(*Context) (bool, string) {
	return func(gc *Context) (bool, string) {
		if gc.Files == nil || gc.Files.Empty() {
			return false, "no files selected"
		}
		if len(patterns) == 0 {
			return true, ""
		}
		if gc.Files.Filter(patterns).Empty() {
			return false, "no matching files"
		}
		return true, ""
	}
}

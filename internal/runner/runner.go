// Package runner schedules gates against the selected files and
// aggregates their results into a single report and exit code.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qgate/internal/config"
	"qgate/internal/errors"
	"qgate/internal/fileset"
	"qgate/internal/gate"
	"qgate/internal/gitio"
)

// Options are the per-invocation knobs of a run.
type Options struct {
	// Range selects files from an explicit A..B commit range instead of
	// the index.
	Range string
	// AllFiles selects every tracked file; gates needing diff context
	// skip themselves.
	AllFiles bool
	// NoParallel runs the parallel phase one gate at a time. Results
	// are still collected in full before evaluation.
	NoParallel bool
}

// Runner executes a fixed list of gate specs for one repository.
type Runner struct {
	repoRoot string
	cfg      *config.Config
	specs    []gate.Spec
	logger   *slog.Logger

	state State
}

// New creates a runner. The spec list is in declaration order; the
// report preserves it.
func New(repoRoot string, cfg *config.Config, specs []gate.Spec, logger *slog.Logger) *Runner {
	return &Runner{
		repoRoot: repoRoot,
		cfg:      cfg,
		specs:    specs,
		logger:   logger,
		state:    StateInit,
	}
}

// Run executes the gates and returns the aggregated report. An error
// return means the run could not start at all (repository state); gate
// failures are reported in the Report, not as an error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	started := time.Now()

	// Pre-flight: resolve the repository state before touching any gate.
	if !gitio.IsGitRepository(r.repoRoot) {
		return nil, errors.New(errors.RepoStateInvalid, "not a git repository", nil, nil)
	}
	repoState, err := gitio.ComputeState(r.repoRoot)
	if err != nil {
		return nil, err
	}

	// A bare ref as range is shorthand for merge-base(ref)..HEAD.
	if opts.Range != "" && !strings.Contains(opts.Range, "..") {
		base, err := gitio.MergeBase(r.repoRoot, opts.Range)
		if err != nil {
			return nil, err
		}
		opts.Range = base + "..HEAD"
	}

	r.transition(StateSelecting)
	files, err := fileset.Select(r.repoRoot, fileset.Options{
		Range:    opts.Range,
		AllFiles: opts.AllFiles,
		Include:  r.cfg.Selection.Include,
		Exclude:  r.cfg.Selection.Exclude,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("selected files", "count", files.Len(), "stateId", repoState.StateID)

	gc := &gate.Context{
		RepoRoot: r.repoRoot,
		Branch:   repoState.Branch,
		Head:     repoState.HeadCommit,
		Files:    files,
		Logger:   r.logger,
		Env:      qgateEnv(),
	}

	specs := r.specs
	results := make([]gate.Result, len(specs))

	var sequential, parallel []int
	for i, spec := range specs {
		if spec.Phase == gate.Sequential {
			sequential = append(sequential, i)
		} else {
			parallel = append(parallel, i)
		}
	}

	r.transition(StateSequential)
	hardFailed := false
	for _, i := range sequential {
		if hardFailed {
			results[i] = gate.Skip("prior hard failure")
			continue
		}
		results[i] = r.runGate(ctx, specs[i], gc)
		if results[i].Status == gate.StatusFail && specs[i].Severity == gate.Hard {
			hardFailed = true
			r.logger.Debug("sequential hard failure", "gate", specs[i].Name)
		}
	}

	r.transition(StateParallel)
	if hardFailed && !r.cfg.Policy.RunParallelAfterFailure {
		for _, i := range parallel {
			results[i] = gate.Skip("prior hard failure")
		}
	} else {
		r.runParallel(ctx, specs, parallel, gc, results, opts.NoParallel)
	}

	r.transition(StateAggregating)
	report := &Report{
		RunID:     uuid.New().String(),
		StateID:   repoState.StateID,
		Branch:    repoState.Branch,
		Head:      repoState.HeadCommit,
		StartedAt: started.UTC(),
		Files:     files.Paths(),
		Outcome:   OutcomeSuccess,
	}
	for i, spec := range specs {
		report.Gates = append(report.Gates, GateReport{
			Name:     spec.Name,
			Phase:    spec.Phase,
			Severity: spec.Severity,
			Result:   results[i],
		})
		if results[i].Status == gate.StatusFail && spec.Severity == gate.Hard {
			report.Outcome = OutcomeFailure
		}
	}
	report.Elapsed = time.Since(started)

	archiveReport(r.repoRoot, r.cfg.History, report, r.logger)

	return report, nil
}

// runParallel executes the given spec indices concurrently and fills in
// their result slots. All results are collected before the caller
// evaluates any of them; a failure never cancels siblings.
func (r *Runner) runParallel(ctx context.Context, specs []gate.Spec, indices []int, gc *gate.Context, results []gate.Result, serial bool) {
	if serial {
		for _, i := range indices {
			results[i] = r.runGate(ctx, specs[i], gc)
		}
		return
	}

	g := new(errgroup.Group)
	for _, i := range indices {
		i := i
		g.Go(func() error {
			results[i] = r.runGate(ctx, specs[i], gc)
			return nil
		})
	}
	_ = g.Wait()
}

// runGate evaluates one gate: applicability, timeout, panic recovery.
// It always returns a result; a panic inside the gate converts to Fail
// and never escapes.
func (r *Runner) runGate(ctx context.Context, spec gate.Spec, gc *gate.Context) (result gate.Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("gate panicked", "gate", spec.Name, "panic", fmt.Sprint(p))
			result = gate.Fail(fmt.Sprintf("gate panicked: %v", p))
		}
		result.Elapsed = time.Since(start)
	}()

	if skip, reason := envSkip(gc.Env, spec.Name); skip {
		return gate.Skip(reason)
	}

	if spec.AppliesTo != nil {
		if ok, reason := spec.AppliesTo(gc); !ok {
			return gate.Skip(reason)
		}
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	r.logger.Debug("running gate", "gate", spec.Name, "phase", spec.Phase)
	result = spec.Execute(runCtx, gc)

	if runCtx.Err() == context.DeadlineExceeded && result.Status != gate.StatusFail {
		result = gate.Fail(fmt.Sprintf("timed out after %s", spec.Timeout))
	}
	return result
}

func (r *Runner) transition(next State) {
	r.logger.Debug("runner state", "from", string(r.state), "to", string(next))
	r.state = next
}

// qgateEnv collects QGATE_* environment toggles.
func qgateEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "QGATE_") {
			continue
		}
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	return env
}

// envSkip honors QGATE_SKIP, a comma-separated list of gate names.
func envSkip(env map[string]string, name string) (bool, string) {
	list, ok := env["QGATE_SKIP"]
	if !ok {
		return false, ""
	}
	for _, n := range strings.Split(list, ",") {
		if strings.TrimSpace(n) == name {
			return true, "skipped via QGATE_SKIP"
		}
	}
	return false, ""
}

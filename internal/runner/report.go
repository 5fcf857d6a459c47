package runner

import (
	"time"

	"qgate/internal/gate"
)

// State names the runner's position in its lifecycle. Transitions are
// strictly forward: Init, SelectingFiles, RunningSequentialGates,
// RunningParallelGates, Aggregating, then a terminal outcome.
type State string

const (
	StateInit        State = "init"
	StateSelecting   State = "selecting_files"
	StateSequential  State = "running_sequential_gates"
	StateParallel    State = "running_parallel_gates"
	StateAggregating State = "aggregating"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// GateReport pairs a gate's static identity with its result for one run.
type GateReport struct {
	Name     string        `json:"name"`
	Phase    gate.Phase    `json:"phase"`
	Severity gate.Severity `json:"severity"`
	Result   gate.Result   `json:"result"`
}

// Report is the aggregated outcome of one run. Gates appear in
// declaration order regardless of execution interleaving.
type Report struct {
	RunID     string        `json:"runId"`
	StateID   string        `json:"stateId"`
	Branch    string        `json:"branch"`
	Head      string        `json:"head"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	Files     []string      `json:"files"`
	Gates     []GateReport  `json:"gates"`
	Outcome   Outcome       `json:"outcome"`
}

// ExitCode maps the outcome to the process exit code. Repository-state
// errors exit 2 before a report exists.
func (r *Report) ExitCode() int {
	if r.Outcome == OutcomeSuccess {
		return 0
	}
	return 1
}

// Counts tallies results by status.
func (r *Report) Counts() (passed, warned, failed, skipped int) {
	for _, g := range r.Gates {
		switch g.Result.Status {
		case gate.StatusPass:
			passed++
		case gate.StatusWarn:
			warned++
		case gate.StatusFail:
			failed++
		case gate.StatusSkip:
			skipped++
		}
	}
	return
}

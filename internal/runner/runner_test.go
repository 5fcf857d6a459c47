package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/slogutil"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	git(t, dir, "init", "-b", "main")
	writeFile(t, dir, "README.md", "# test\n")
	git(t, dir, "add", "README.md")
	git(t, dir, "commit", "-m", "initial")
	return dir
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func stageFile(t *testing.T, dir, name, content string) {
	t.Helper()
	writeFile(t, dir, name, content)
	git(t, dir, "add", name)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.History.Enabled = false
	return cfg
}

func staticGate(name string, phase gate.Phase, severity gate.Severity, result gate.Result) gate.Spec {
	return gate.Spec{
		Name:     name,
		Phase:    phase,
		Severity: severity,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			return result
		},
	}
}

func runWith(t *testing.T, dir string, cfg *config.Config, specs []gate.Spec, opts Options) *Report {
	t.Helper()
	r := New(dir, cfg, specs, slogutil.NewDiscardLogger())
	report, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func gateResult(t *testing.T, report *Report, name string) gate.Result {
	t.Helper()
	for _, g := range report.Gates {
		if g.Name == name {
			return g.Result
		}
	}
	t.Fatalf("gate %s not in report", name)
	return gate.Result{}
}

func TestEmptyFileSetSkipsFileGatedGates(t *testing.T) {
	dir := initTestRepo(t) // clean index, nothing staged

	spec := gate.Spec{
		Name:      "lint",
		Phase:     gate.Parallel,
		Severity:  gate.Hard,
		AppliesTo: gate.FilePatternApplicability(nil),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			return gate.Pass()
		},
	}

	report := runWith(t, dir, testConfig(), []gate.Spec{spec}, Options{})
	result := gateResult(t, report, "lint")
	if result.Status != gate.StatusSkip {
		t.Errorf("status = %s, want skip (never pass on empty set)", result.Status)
	}
	if report.Outcome != OutcomeSuccess || report.ExitCode() != 0 {
		t.Errorf("outcome = %s exit %d, want success 0", report.Outcome, report.ExitCode())
	}
}

func TestSequentialHardFailureSkipsLaterSequential(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	specs := []gate.Spec{
		staticGate("format", gate.Sequential, gate.Hard, gate.Fail("broken")),
		staticGate("lockfile", gate.Sequential, gate.Hard, gate.Pass()),
	}

	report := runWith(t, dir, testConfig(), specs, Options{})
	if got := gateResult(t, report, "lockfile"); got.Status != gate.StatusSkip ||
		got.Message != "prior hard failure" {
		t.Errorf("lockfile = %s %q, want skip \"prior hard failure\"", got.Status, got.Message)
	}
	if report.Outcome != OutcomeFailure || report.ExitCode() != 1 {
		t.Errorf("outcome = %s exit %d, want failure 1", report.Outcome, report.ExitCode())
	}
}

func TestParallelPhaseCollectsAllResults(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	var ran atomic.Int32
	failing := gate.Spec{
		Name: "lint", Phase: gate.Parallel, Severity: gate.Hard,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			ran.Add(1)
			return gate.Fail("nope")
		},
	}
	slow := gate.Spec{
		Name: "test", Phase: gate.Parallel, Severity: gate.Hard,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			time.Sleep(50 * time.Millisecond)
			ran.Add(1)
			return gate.Pass()
		},
	}

	report := runWith(t, dir, testConfig(), []gate.Spec{failing, slow}, Options{})
	if ran.Load() != 2 {
		t.Errorf("ran %d gates, want 2 (no short-circuit)", ran.Load())
	}
	if gateResult(t, report, "test").Status != gate.StatusPass {
		t.Error("slow sibling should still report its own result")
	}
	if report.Outcome != OutcomeFailure {
		t.Errorf("outcome = %s, want failure", report.Outcome)
	}
}

func TestAdvisoryWarningsDoNotFail(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	specs := []gate.Spec{
		staticGate("lint", gate.Parallel, gate.Hard, gate.Pass()),
		staticGate("debug-statements", gate.Parallel, gate.Advisory, gate.Warn("leftovers")),
	}

	report := runWith(t, dir, testConfig(), specs, Options{})
	if report.Outcome != OutcomeSuccess || report.ExitCode() != 0 {
		t.Errorf("outcome = %s exit %d, want success 0 for warn-only run",
			report.Outcome, report.ExitCode())
	}
}

func TestReportPreservesDeclarationOrder(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	specs := []gate.Spec{
		staticGate("format", gate.Sequential, gate.Hard, gate.Pass()),
		staticGate("lint", gate.Parallel, gate.Hard, gate.Pass()),
		staticGate("lockfile", gate.Sequential, gate.Hard, gate.Pass()),
		staticGate("test", gate.Parallel, gate.Hard, gate.Pass()),
	}

	report := runWith(t, dir, testConfig(), specs, Options{})
	var names []string
	for _, g := range report.Gates {
		names = append(names, g.Name)
	}
	want := "format,lint,lockfile,test"
	if strings.Join(names, ",") != want {
		t.Errorf("order = %v, want %s", names, want)
	}
}

func TestPanickingGateIsIsolated(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	panicking := gate.Spec{
		Name: "secrets", Phase: gate.Parallel, Severity: gate.Hard,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			panic("boom")
		},
	}
	specs := []gate.Spec{
		panicking,
		staticGate("lint", gate.Parallel, gate.Hard, gate.Pass()),
	}

	report := runWith(t, dir, testConfig(), specs, Options{})
	got := gateResult(t, report, "secrets")
	if got.Status != gate.StatusFail || !strings.Contains(got.Message, "boom") {
		t.Errorf("panicking gate = %s %q, want fail mentioning the panic", got.Status, got.Message)
	}
	if gateResult(t, report, "lint").Status != gate.StatusPass {
		t.Error("sibling gate should be unaffected by the panic")
	}
}

func TestPolicySkipsParallelAfterSequentialFailure(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	specs := []gate.Spec{
		staticGate("format", gate.Sequential, gate.Hard, gate.Fail("broken")),
		staticGate("lint", gate.Parallel, gate.Hard, gate.Pass()),
	}

	cfg := testConfig()
	cfg.Policy.RunParallelAfterFailure = false
	report := runWith(t, dir, cfg, specs, Options{})
	if got := gateResult(t, report, "lint"); got.Status != gate.StatusSkip {
		t.Errorf("lint = %s, want skip under run_parallel_after_failure=false", got.Status)
	}

	cfg.Policy.RunParallelAfterFailure = true
	report = runWith(t, dir, cfg, specs, Options{})
	if got := gateResult(t, report, "lint"); got.Status != gate.StatusPass {
		t.Errorf("lint = %s, want pass under run_parallel_after_failure=true", got.Status)
	}
}

func TestTimeoutConvertsToFail(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	slow := gate.Spec{
		Name: "test", Phase: gate.Parallel, Severity: gate.Hard,
		Timeout: 50 * time.Millisecond,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			<-ctx.Done()
			return gate.Pass() // a gate that ignores the deadline outcome
		},
	}

	report := runWith(t, dir, testConfig(), []gate.Spec{slow}, Options{})
	got := gateResult(t, report, "test")
	if got.Status != gate.StatusFail || !strings.Contains(got.Message, "timed out") {
		t.Errorf("result = %s %q, want timeout failure", got.Status, got.Message)
	}
}

func TestRunDeterministicForSameRepoState(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	specs := []gate.Spec{
		staticGate("format", gate.Sequential, gate.Hard, gate.Pass()),
		staticGate("lint", gate.Parallel, gate.Hard, gate.Warn("meh")),
	}

	first := runWith(t, dir, testConfig(), specs, Options{})
	second := runWith(t, dir, testConfig(), specs, Options{})

	if first.StateID != second.StateID {
		t.Errorf("state IDs differ for unchanged repo: %s vs %s", first.StateID, second.StateID)
	}
	if first.RunID == second.RunID {
		t.Error("run IDs should be unique per run")
	}
	if len(first.Gates) != len(second.Gates) {
		t.Fatal("gate counts differ")
	}
	for i := range first.Gates {
		a, b := first.Gates[i], second.Gates[i]
		if a.Name != b.Name || a.Result.Status != b.Result.Status || a.Result.Message != b.Result.Message {
			t.Errorf("gate %d differs: %+v vs %+v", i, a, b)
		}
	}
	if first.Outcome != second.Outcome {
		t.Errorf("outcomes differ: %s vs %s", first.Outcome, second.Outcome)
	}
}

func TestEnvSkip(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	t.Setenv("QGATE_SKIP", "lint, test")
	specs := []gate.Spec{
		staticGate("lint", gate.Parallel, gate.Hard, gate.Fail("would fail")),
		staticGate("secrets", gate.Parallel, gate.Hard, gate.Pass()),
	}

	report := runWith(t, dir, testConfig(), specs, Options{})
	if got := gateResult(t, report, "lint"); got.Status != gate.StatusSkip {
		t.Errorf("lint = %s, want skip via QGATE_SKIP", got.Status)
	}
	if report.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want success", report.Outcome)
	}
}

func TestRangeShorthandResolvesMergeBase(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "b.txt", "y\n")
	git(t, dir, "commit", "-m", "second")

	var seen []string
	capture := gate.Spec{
		Name: "lint", Phase: gate.Parallel, Severity: gate.Hard,
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			seen = gc.Files.Paths()
			return gate.Pass()
		},
	}

	// "HEAD~1" has no ".." so it resolves to merge-base(HEAD~1)..HEAD.
	report := runWith(t, dir, testConfig(), []gate.Spec{capture}, Options{Range: "HEAD~1"})
	if report.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s", report.Outcome)
	}
	if len(seen) != 1 || seen[0] != "b.txt" {
		t.Errorf("selected files = %v, want [b.txt]", seen)
	}
}

func TestRunOutsideRepositoryFails(t *testing.T) {
	r := New(t.TempDir(), testConfig(), nil, slogutil.NewDiscardLogger())
	if _, err := r.Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected repository-state error outside a git repo")
	}
}

func TestHistoryArchiveRoundTrip(t *testing.T) {
	dir := initTestRepo(t)
	stageFile(t, dir, "a.txt", "x\n")

	cfg := testConfig()
	cfg.History.Enabled = true
	cfg.History.Keep = 10

	specs := []gate.Spec{staticGate("lint", gate.Parallel, gate.Hard, gate.Pass())}
	report := runWith(t, dir, cfg, specs, Options{})

	path := filepath.Join(dir, config.Dir, "history", report.RunID+".json.zst")
	loaded, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if loaded.RunID != report.RunID || loaded.Outcome != report.Outcome {
		t.Errorf("archived report = %+v, want %+v", loaded, report)
	}
	if len(loaded.Gates) != 1 || loaded.Gates[0].Name != "lint" {
		t.Errorf("archived gates = %+v", loaded.Gates)
	}
}

func TestPruneArchives(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".json.zst")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(time.Duration(i-10) * time.Hour)
		if err := os.Chtimes(name, old, old); err != nil {
			t.Fatal(err)
		}
	}

	if err := pruneArchives(dir, 2); err != nil {
		t.Fatalf("pruneArchives: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("kept %d archives, want 2", len(entries))
	}
}

// Package gitio wraps the git porcelain commands qgate needs: resolving
// the repository root, listing staged or range-changed files, reading
// staged blob contents, and re-staging files rewritten by auto-fix gates.
package gitio

import (
	"crypto/sha256"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"qgate/internal/errors"
)

const (
	// EmptyHash represents an empty diff/list hash
	EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// State captures the inputs that determine a run's outcome. Two runs with
// the same StateID against the same config must produce the same report.
type State struct {
	StateID        string `json:"stateId"`
	HeadCommit     string `json:"headCommit"`
	Branch         string `json:"branch"`
	StagedDiffHash string `json:"stagedDiffHash"`
	ComputedAt     string `json:"computedAt"`
}

// ComputeState computes the current repository state using git commands.
func ComputeState(repoRoot string) (*State, error) {
	headCommit, err := revParse(repoRoot, "HEAD")
	if err != nil {
		return nil, errors.New(
			errors.RepoStateInvalid,
			"Failed to resolve HEAD commit",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git status",
					Safe:        true,
					Description: "Check that you are in a git repository with at least one commit",
				},
			},
		)
	}

	branch, err := revParse(repoRoot, "--abbrev-ref", "HEAD")
	if err != nil {
		branch = "HEAD" // detached
	}

	stagedDiff, err := diff(repoRoot, "--cached")
	if err != nil {
		return nil, errors.New(errors.RepoStateInvalid, "Failed to read staged diff", err, nil)
	}

	stagedHash := hashString(stagedDiff)

	return &State{
		StateID:        hashString(headCommit + ":" + stagedHash),
		HeadCommit:     headCommit,
		Branch:         branch,
		StagedDiffHash: stagedHash,
		ComputedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GetRepoRoot finds the git repository root from the given directory.
func GetRepoRoot(startPath string) (string, error) {
	out, err := git(startPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.New(
			errors.RepoStateInvalid,
			"Not a git repository",
			err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git init",
					Safe:        false,
					Description: "Initialize a git repository",
				},
			},
		)
	}
	return strings.TrimSpace(out), nil
}

// IsGitRepository checks if the given path is inside a git repository.
func IsGitRepository(path string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = path
	return cmd.Run() == nil
}

// MergeBase returns the merge base of HEAD and the given ref.
func MergeBase(repoRoot, ref string) (string, error) {
	out, err := git(repoRoot, "merge-base", "HEAD", ref)
	if err != nil {
		return "", errors.New(errors.RepoStateInvalid,
			fmt.Sprintf("Failed to compute merge base with %s", ref), err, nil)
	}
	return strings.TrimSpace(out), nil
}

// StagedFiles lists files staged for commit (added, copied, modified, renamed).
func StagedFiles(repoRoot string) ([]string, error) {
	return nameOnly(repoRoot, "--cached", "--diff-filter=ACMR")
}

// RangeFiles lists files changed across a diff range specifier such as "main..HEAD".
func RangeFiles(repoRoot, rangeSpec string) ([]string, error) {
	return nameOnly(repoRoot, "--diff-filter=ACMR", rangeSpec)
}

// AllFiles lists every tracked file.
func AllFiles(repoRoot string) ([]string, error) {
	out, err := git(repoRoot, "ls-files", "-z")
	if err != nil {
		return nil, errors.New(errors.RepoStateInvalid, "Failed to list tracked files", err, nil)
	}
	return splitNul(out), nil
}

// StagedDiff returns the unified diff of staged changes.
func StagedDiff(repoRoot string) (string, error) {
	out, err := diff(repoRoot, "--cached")
	if err != nil {
		return "", errors.New(errors.RepoStateInvalid, "Failed to read staged diff", err, nil)
	}
	return out, nil
}

// RangeDiff returns the unified diff for a diff range specifier.
func RangeDiff(repoRoot, rangeSpec string) (string, error) {
	out, err := diff(repoRoot, rangeSpec)
	if err != nil {
		return "", errors.New(errors.RepoStateInvalid,
			fmt.Sprintf("Failed to resolve diff range %q", rangeSpec), err,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git log --oneline -5",
					Safe:        true,
					Description: "Verify both endpoints of the range exist",
				},
			})
	}
	return out, nil
}

// ShowStaged returns the staged (index) content of a file.
func ShowStaged(repoRoot, path string) (string, error) {
	return git(repoRoot, "show", ":"+path)
}

// ShowAt returns the content of a file at the given ref.
func ShowAt(repoRoot, ref, path string) (string, error) {
	return git(repoRoot, "show", ref+":"+path)
}

// Stage re-stages the given files. Used by auto-fix gates after rewriting
// file contents so later gates and the commit see the fixed version.
func Stage(repoRoot string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := git(repoRoot, args...); err != nil {
		return errors.New(errors.RepoStateInvalid, "Failed to re-stage fixed files", err, nil)
	}
	return nil
}

func nameOnly(repoRoot string, args ...string) ([]string, error) {
	fullArgs := append([]string{"diff", "--name-only", "-z"}, args...)
	out, err := git(repoRoot, fullArgs...)
	if err != nil {
		return nil, errors.New(errors.RepoStateInvalid, "Failed to list changed files", err, nil)
	}
	return splitNul(out), nil
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

func revParse(repoRoot string, args ...string) (string, error) {
	out, err := git(repoRoot, append([]string{"rev-parse"}, args...)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func diff(repoRoot string, args ...string) (string, error) {
	return git(repoRoot, append([]string{"diff"}, args...)...)
}

func splitNul(s string) []string {
	var files []string
	for _, f := range strings.Split(s, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// hashString computes SHA256 hash of a string
func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	h := sha256.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

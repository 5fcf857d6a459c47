package gitio

import (
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// initTestRepo creates a git repository with one initial commit.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
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

	run("init", "-b", "main")
	writeFile(t, dir, "README.md", "# test\n")
	run("add", "README.md")
	run("commit", "-m", "initial")

	return dir
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

func gitAdd(t *testing.T, dir string, paths ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"add", "--"}, paths...)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add failed: %v\n%s", err, out)
	}
}

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string returns empty hash",
			input:    "",
			expected: EmptyHash,
		},
		{
			name:     "simple string",
			input:    "hello",
			expected: fmt.Sprintf("%x", sha256.Sum256([]byte("hello"))),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if result := hashString(tc.input); result != tc.expected {
				t.Errorf("hashString(%q) = %q, expected %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestGetRepoRoot(t *testing.T) {
	repo := initTestRepo(t)

	t.Run("from repo root", func(t *testing.T) {
		root, err := GetRepoRoot(repo)
		if err != nil {
			t.Fatalf("GetRepoRoot failed: %v", err)
		}
		resolved, _ := filepath.EvalSymlinks(repo)
		if root != repo && root != resolved {
			t.Errorf("GetRepoRoot = %s, expected %s", root, repo)
		}
	})

	t.Run("from subdirectory", func(t *testing.T) {
		writeFile(t, repo, "sub/file.txt", "x\n")
		root, err := GetRepoRoot(filepath.Join(repo, "sub"))
		if err != nil {
			t.Fatalf("GetRepoRoot from subdir failed: %v", err)
		}
		resolved, _ := filepath.EvalSymlinks(repo)
		if root != repo && root != resolved {
			t.Errorf("GetRepoRoot = %s, expected %s", root, repo)
		}
	})

	t.Run("non-git directory returns error", func(t *testing.T) {
		if _, err := GetRepoRoot(t.TempDir()); err == nil {
			t.Error("Expected error for non-git directory")
		}
	})
}

func TestIsGitRepository(t *testing.T) {
	repo := initTestRepo(t)
	if !IsGitRepository(repo) {
		t.Error("Expected repo to be a git repository")
	}
	if IsGitRepository(t.TempDir()) {
		t.Error("Expected temp dir to NOT be a git repository")
	}
}

func TestStagedFiles(t *testing.T) {
	repo := initTestRepo(t)

	t.Run("nothing staged", func(t *testing.T) {
		files, err := StagedFiles(repo)
		if err != nil {
			t.Fatalf("StagedFiles failed: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("expected no staged files, got %v", files)
		}
	})

	t.Run("staged additions and modifications", func(t *testing.T) {
		writeFile(t, repo, "src/a.ts", "const a = 1\n")
		writeFile(t, repo, "README.md", "# changed\n")
		gitAdd(t, repo, "src/a.ts", "README.md")

		files, err := StagedFiles(repo)
		if err != nil {
			t.Fatalf("StagedFiles failed: %v", err)
		}
		want := map[string]bool{"src/a.ts": true, "README.md": true}
		if len(files) != 2 {
			t.Fatalf("expected 2 staged files, got %v", files)
		}
		for _, f := range files {
			if !want[f] {
				t.Errorf("unexpected staged file %q", f)
			}
		}
	})
}

func TestShowStaged(t *testing.T) {
	repo := initTestRepo(t)

	writeFile(t, repo, "pkg.json", `{"name":"staged"}`)
	gitAdd(t, repo, "pkg.json")
	// Working tree differs from index after re-write
	writeFile(t, repo, "pkg.json", `{"name":"worktree"}`)

	content, err := ShowStaged(repo, "pkg.json")
	if err != nil {
		t.Fatalf("ShowStaged failed: %v", err)
	}
	if !strings.Contains(content, "staged") {
		t.Errorf("ShowStaged returned worktree content: %q", content)
	}
}

func TestStage(t *testing.T) {
	repo := initTestRepo(t)

	writeFile(t, repo, "fixed.go", "package fixed\n")
	if err := Stage(repo, "fixed.go"); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	files, err := StagedFiles(repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "fixed.go" {
		t.Errorf("expected fixed.go staged, got %v", files)
	}

	// Staging nothing is a no-op, not an error.
	if err := Stage(repo); err != nil {
		t.Errorf("Stage with no paths should succeed: %v", err)
	}
}

func TestComputeState(t *testing.T) {
	repo := initTestRepo(t)

	t.Run("clean repo", func(t *testing.T) {
		state, err := ComputeState(repo)
		if err != nil {
			t.Fatalf("ComputeState failed: %v", err)
		}
		if len(state.HeadCommit) != 40 {
			t.Errorf("HeadCommit should be 40 char SHA, got %q", state.HeadCommit)
		}
		if state.Branch != "main" {
			t.Errorf("Branch = %q, expected main", state.Branch)
		}
		if state.StagedDiffHash != EmptyHash {
			t.Errorf("clean repo should have empty staged diff hash")
		}
	})

	t.Run("state changes when staging", func(t *testing.T) {
		before, err := ComputeState(repo)
		if err != nil {
			t.Fatal(err)
		}

		writeFile(t, repo, "new.txt", "content\n")
		gitAdd(t, repo, "new.txt")

		after, err := ComputeState(repo)
		if err != nil {
			t.Fatal(err)
		}
		if before.StateID == after.StateID {
			t.Error("StateID should change after staging a file")
		}
	})

	t.Run("deterministic for unchanged state", func(t *testing.T) {
		s1, err := ComputeState(repo)
		if err != nil {
			t.Fatal(err)
		}
		s2, err := ComputeState(repo)
		if err != nil {
			t.Fatal(err)
		}
		if s1.StateID != s2.StateID {
			t.Error("StateID should be stable for unchanged repository state")
		}
	})

	t.Run("fails without commits", func(t *testing.T) {
		dir := t.TempDir()
		cmd := exec.Command("git", "init", "-b", "main")
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatal(err)
		}
		if _, err := ComputeState(dir); err == nil {
			t.Error("Expected error for repository with no commits")
		}
	})
}

func TestRangeFiles(t *testing.T) {
	repo := initTestRepo(t)

	writeFile(t, repo, "feature.go", "package feature\n")
	gitAdd(t, repo, "feature.go")
	cmd := exec.Command("git", "commit", "-m", "feature")
	cmd.Dir = repo
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("commit failed: %v\n%s", err, out)
	}

	files, err := RangeFiles(repo, "HEAD~1..HEAD")
	if err != nil {
		t.Fatalf("RangeFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != "feature.go" {
		t.Errorf("expected [feature.go], got %v", files)
	}

	if _, err := RangeFiles(repo, "nosuchref..HEAD"); err == nil {
		t.Error("Expected error for unresolvable range")
	}
}

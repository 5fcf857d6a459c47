package gates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/gitio"
)

// lockPair describes a dependency manifest and the lock files that can
// accompany it.
type lockPair struct {
	manifest string
	locks    []string
	// tomlDeps holds the dotted paths of dependency tables inside a TOML
	// manifest. When set, the gate only fails if those tables actually
	// changed between HEAD and the index.
	tomlDeps []string
}

var lockPairs = []lockPair{
	{
		manifest: "package.json",
		locks:    []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"},
	},
	{
		manifest: "Cargo.toml",
		locks:    []string{"Cargo.lock"},
		tomlDeps: []string{"dependencies", "dev-dependencies", "build-dependencies", "workspace.dependencies"},
	},
	{
		manifest: "go.mod",
		locks:    []string{"go.sum"},
	},
	{
		manifest: "pyproject.toml",
		locks:    []string{"poetry.lock", "uv.lock", "pdm.lock"},
		tomlDeps: []string{"project.dependencies", "project.optional-dependencies", "tool.poetry.dependencies", "tool.poetry.group"},
	},
	{
		manifest: "Gemfile",
		locks:    []string{"Gemfile.lock"},
	},
}

// NewLockfileGate builds the gate that fails when a dependency manifest
// is staged without its lock file. TOML manifests are parsed and compared
// against HEAD so metadata-only edits do not trip the gate.
func NewLockfileGate(cfg config.GateConfig) gate.Spec {
	return gate.Spec{
		Name:      "lockfile",
		Phase:     gate.Sequential,
		Severity:  gate.Hard,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(manifestPatterns()),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			var problems []string

			for _, path := range gc.Files.Paths() {
				pair, ok := pairFor(path)
				if !ok {
					continue
				}

				dir := filepath.Dir(path)
				if lockStaged(gc.Files.Paths(), dir, pair.locks) {
					continue
				}

				lock, exists := trackedLock(gc.RepoRoot, dir, pair.locks)
				if !exists {
					// The repo does not keep a lock file for this
					// manifest, nothing to keep in sync.
					continue
				}

				if len(pair.tomlDeps) > 0 {
					changed, err := tomlDepsChanged(gc.RepoRoot, path, pair.tomlDeps)
					if err != nil {
						gc.Logger.Debug("manifest comparison failed, assuming changed",
							"file", path, "error", err)
					} else if !changed {
						continue
					}
				}

				problems = append(problems, fmt.Sprintf(
					"%s is staged but %s is not; run your package manager and stage both",
					path, filepath.Join(dir, lock)))
			}

			if len(problems) > 0 {
				return gate.Fail(strings.Join(problems, "\n"))
			}
			return gate.Pass()
		},
	}
}

func manifestPatterns() []string {
	patterns := make([]string, 0, len(lockPairs))
	for _, p := range lockPairs {
		patterns = append(patterns, p.manifest)
	}
	return patterns
}

func pairFor(path string) (lockPair, bool) {
	base := filepath.Base(path)
	for _, p := range lockPairs {
		if base == p.manifest {
			return p, true
		}
	}
	return lockPair{}, false
}

func lockStaged(staged []string, dir string, locks []string) bool {
	for _, path := range staged {
		if filepath.Dir(path) != dir {
			continue
		}
		base := filepath.Base(path)
		for _, lock := range locks {
			if base == lock {
				return true
			}
		}
	}
	return false
}

// trackedLock returns the first lock file that exists next to the
// manifest, and whether any does.
func trackedLock(repoRoot, dir string, locks []string) (string, bool) {
	for _, lock := range locks {
		if _, err := os.Stat(filepath.Join(repoRoot, dir, lock)); err == nil {
			return lock, true
		}
	}
	if len(locks) > 0 {
		return locks[0], false
	}
	return "", false
}

// tomlDepsChanged compares the dependency tables of the staged manifest
// against the HEAD version. A manifest with no HEAD version counts as
// changed.
func tomlDepsChanged(repoRoot, path string, depPaths []string) (bool, error) {
	stagedText, err := gitio.ShowStaged(repoRoot, path)
	if err != nil {
		return true, err
	}
	headText, err := gitio.ShowAt(repoRoot, "HEAD", path)
	if err != nil {
		// Newly added manifest.
		return true, nil
	}

	stagedDeps, err := extractTables(stagedText, depPaths)
	if err != nil {
		return true, err
	}
	headDeps, err := extractTables(headText, depPaths)
	if err != nil {
		return true, err
	}

	return !reflect.DeepEqual(stagedDeps, headDeps), nil
}

func extractTables(tomlText string, depPaths []string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal([]byte(tomlText), &doc); err != nil {
		return nil, err
	}

	tables := make(map[string]interface{})
	for _, depPath := range depPaths {
		if v, ok := lookupPath(doc, depPath); ok {
			tables[depPath] = v
		}
	}
	return tables, nil
}

func lookupPath(doc map[string]interface{}, dotted string) (interface{}, bool) {
	parts := strings.Split(dotted, ".")
	var current interface{} = doc
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

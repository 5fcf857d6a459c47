package gates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/gitio"
	"qgate/internal/secrets"
)

// NewSecretsGate builds the gate that scans selected files for exposed
// credentials using the builtin pattern set. The scan reads staged blobs
// rather than the working tree, so it judges exactly what would be
// committed. Suppressions come from .qgate/allowlist.toml.
func NewSecretsGate(cfg config.GateConfig) gate.Spec {
	return gate.Spec{
		Name:      "secrets",
		Phase:     gate.Parallel,
		Severity:  gate.Hard,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(cfg.Include),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			files := gc.Files.Filter(cfg.Include).Exclude(cfg.Exclude)
			if files.Empty() {
				return gate.Skip("no matching files")
			}

			scanner := secrets.NewScanner(gc.RepoRoot, gc.Logger)
			scanner.UseLoader(func(rel string) ([]byte, error) {
				if content, err := gitio.ShowStaged(gc.RepoRoot, rel); err == nil {
					return []byte(content), nil
				}
				// Untracked or outside the index; fall back to the
				// working tree so --all-files runs still see it.
				return os.ReadFile(filepath.Join(gc.RepoRoot, rel))
			})
			allowlist, err := secrets.LoadAllowlist(gc.RepoRoot)
			if err != nil {
				return gate.Fail(fmt.Sprintf("failed to load secrets allowlist: %v", err))
			}
			scanner.UseAllowlist(allowlist)

			findings, suppressed, err := scanner.ScanFiles(ctx, files.Paths())
			if err != nil {
				return gate.Fail(fmt.Sprintf("secret scan failed: %v", err))
			}
			if suppressed > 0 {
				gc.Logger.Debug("allowlist suppressed findings", "count", suppressed)
			}

			if len(findings) > 0 {
				lines := make([]string, 0, len(findings)+1)
				lines = append(lines, fmt.Sprintf("%d potential secrets detected:", len(findings)))
				for _, f := range findings {
					lines = append(lines, fmt.Sprintf("  %s:%d [%s] %s (%s)",
						f.File, f.Line, f.Severity, f.Match, f.Rule))
				}
				lines = append(lines, "", "add an entry to .qgate/allowlist.toml if this is a false positive")
				return gate.Fail(strings.Join(lines, "\n"))
			}
			return gate.Pass()
		},
	}
}

package gates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/gitio"
	"qgate/internal/tool"
)

// NewFormatGate builds the auto-fix formatter gate. It runs in the
// sequential phase because it rewrites the working tree: files the
// formatter changes are re-staged so the commit picks up the fix.
func NewFormatGate(cfg config.GateConfig) gate.Spec {
	return gate.Spec{
		Name:      "format",
		Phase:     gate.Sequential,
		Severity:  gate.Hard,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(cfg.Include),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			files := gc.Files.Filter(cfg.Include).Exclude(cfg.Exclude)
			if files.Empty() {
				return gate.Skip("no matching files")
			}

			before := contentHashes(gc.RepoRoot, files.Paths())

			result, err := tool.Run(ctx, toolSpec(cfg.Command, cfg.Args), gc.RepoRoot, files.Paths()...)
			if err != nil {
				return failFromError("format", gate.Hard, err)
			}
			if result.ExitCode != 0 {
				return gate.Fail(fmt.Sprintf("%s exited with code %d\n%s",
					cfg.Command, result.ExitCode, trimOutput(result.Output)))
			}

			var rewritten []string
			for _, path := range files.Paths() {
				after := hashFile(filepath.Join(gc.RepoRoot, path))
				if after != "" && after != before[path] {
					rewritten = append(rewritten, path)
				}
			}

			if len(rewritten) > 0 {
				if err := gitio.Stage(gc.RepoRoot, rewritten...); err != nil {
					return gate.Fail(fmt.Sprintf("reformatted %d files but failed to re-stage them: %v",
						len(rewritten), err))
				}
				gc.Logger.Info("reformatted and re-staged files", "count", len(rewritten))
				return gate.Result{
					Status:  gate.StatusPass,
					Message: fmt.Sprintf("reformatted %d files", len(rewritten)),
				}
			}

			return gate.Pass()
		},
	}
}

func contentHashes(root string, paths []string) map[string]string {
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		hashes[p] = hashFile(filepath.Join(root, p))
	}
	return hashes
}

func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

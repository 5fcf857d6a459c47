package gates

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/gitio"
	"qgate/internal/tool"
	"qgate/internal/trend"
)

// scoreRe extracts the numeric complexity score from the configured
// tool's output. The first labelled number wins, falling back to the
// last bare number on its own line.
var (
	scoreRe         = regexp.MustCompile(`(?i)(?:average|mean|total)\s+(?:cyclomatic\s+)?complexity[:=\s]+([0-9]+(?:\.[0-9]+)?)`)
	fallbackScoreRe = regexp.MustCompile(`(?m)^\s*([0-9]+(?:\.[0-9]+)?)\s*$`)
)

// NewComplexityGate builds the advisory trend gate. It runs the
// configured analysis tool, extracts a numeric score, compares it to the
// baseline sample for the merge-base with the base branch, and records
// the new value for future runs.
func NewComplexityGate(cfg config.GateConfig, trendCfg config.TrendConfig, store *trend.Store) gate.Spec {
	return gate.Spec{
		Name:      "complexity",
		Phase:     gate.Parallel,
		Severity:  gate.Advisory,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(cfg.Include),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			if cfg.Command == "" {
				return gate.Skip("no complexity command configured")
			}
			if store == nil {
				return gate.Skip("trend store unavailable")
			}

			files := gc.Files.Filter(cfg.Include).Exclude(cfg.Exclude)
			if files.Empty() {
				return gate.Skip("no matching files")
			}

			result, err := tool.Run(ctx, toolSpec(cfg.Command, cfg.Args), gc.RepoRoot, files.Paths()...)
			if err != nil {
				return failFromError("complexity", gate.Advisory, err)
			}

			score, ok := extractScore(result.Output)
			if !ok {
				return gate.Warn(fmt.Sprintf("could not extract a complexity score from %s output",
					cfg.Command))
			}

			last, err := baselineSample(gc, trendCfg, store)
			if err != nil {
				return gate.Warn(fmt.Sprintf("trend store read failed: %v", err))
			}

			sample := trend.Sample{
				Metric:     "complexity",
				Commit:     gc.Head,
				Branch:     gc.Branch,
				Value:      score,
				RecordedAt: time.Now().UTC(),
			}
			if err := store.Record(sample); err != nil {
				gc.Logger.Debug("failed to record trend sample", "error", err)
			}
			if trendCfg.RetentionDays > 0 {
				retention := time.Duration(trendCfg.RetentionDays) * 24 * time.Hour
				if pruned, err := store.Prune(retention); err != nil {
					gc.Logger.Debug("failed to prune trend samples", "error", err)
				} else if pruned > 0 {
					gc.Logger.Debug("pruned expired trend samples", "count", pruned)
				}
			}

			if last != nil && last.Value > 0 {
				regression := (score - last.Value) / last.Value * 100
				if regression > trendCfg.MaxRegressionPct {
					return gate.Warn(fmt.Sprintf(
						"complexity rose from %.2f to %.2f (+%.1f%%, threshold %.1f%%) since %s",
						last.Value, score, regression, trendCfg.MaxRegressionPct, shortCommit(last.Commit)))
				}
			}

			return gate.Result{
				Status:  gate.StatusPass,
				Message: fmt.Sprintf("score %.2f", score),
			}
		},
	}
}

// baselineSample picks the comparison point for the current run: the
// sample recorded for the merge-base with the base branch, then the
// newest sample on the current branch, then the newest sample overall.
func baselineSample(gc *gate.Context, trendCfg config.TrendConfig, store *trend.Store) (*trend.Sample, error) {
	if trendCfg.BaseBranch != "" {
		if base, err := gitio.MergeBase(gc.RepoRoot, trendCfg.BaseBranch); err == nil {
			sample, err := store.Get("complexity", base)
			if err != nil {
				return nil, err
			}
			if sample != nil {
				return sample, nil
			}
		}
	}
	if sample, err := store.LastForBranch("complexity", gc.Branch); err != nil || sample != nil {
		return sample, err
	}
	return store.Last("complexity")
}

func extractScore(output string) (float64, bool) {
	if m := scoreRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	matches := fallbackScoreRe.FindAllStringSubmatch(output, -1)
	if len(matches) > 0 {
		if v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func shortCommit(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

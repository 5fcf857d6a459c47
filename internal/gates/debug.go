package gates

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"qgate/internal/config"
	"qgate/internal/gate"
)

// debugPatterns match leftover debugging statements. Matching is
// restricted to lines the staged diff added, so pre-existing occurrences
// never warn.
var debugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bconsole\.(log|debug|trace)\s*\(`),
	regexp.MustCompile(`^\s*debugger\b`),
	regexp.MustCompile(`\bfmt\.Println\s*\(`),
	regexp.MustCompile(`\bpdb\.set_trace\s*\(`),
	regexp.MustCompile(`\bbreakpoint\s*\(\s*\)`),
	regexp.MustCompile(`\bbinding\.pry\b`),
}

// NewDebugStatementsGate builds the advisory gate that flags debugging
// leftovers on added lines.
func NewDebugStatementsGate(cfg config.GateConfig) gate.Spec {
	return gate.Spec{
		Name:      "debug-statements",
		Phase:     gate.Parallel,
		Severity:  gate.Advisory,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(cfg.Include),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			files := gc.Files.Filter(cfg.Include).Exclude(cfg.Exclude)
			if files.Empty() {
				return gate.Skip("no matching files")
			}

			var hits []string
			sawDiff := false
			for _, path := range files.Paths() {
				added := files.AddedLines(path)
				if added != nil {
					sawDiff = true
				}
				for _, line := range added {
					for _, pattern := range debugPatterns {
						if pattern.MatchString(line.Text) {
							hits = append(hits, fmt.Sprintf("%s:%d: %s",
								path, line.Number, strings.TrimSpace(line.Text)))
							break
						}
					}
				}
			}

			if !sawDiff {
				return gate.Skip("no diff context for selected files")
			}
			if len(hits) > 0 {
				return gate.Warn(fmt.Sprintf("debug statements on added lines:\n%s",
					strings.Join(hits, "\n")))
			}
			return gate.Pass()
		},
	}
}

package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"qgate/internal/gate"
)

func statusGlyph(s gate.Status) string {
	switch s {
	case gate.StatusPass:
		return "✓"
	case gate.StatusWarn:
		return "!"
	case gate.StatusFail:
		return "✗"
	case gate.StatusSkip:
		return "-"
	}
	return "?"
}

// WriteHuman renders the report in the one-line-per-gate terminal
// format: status, name, elapsed, then full diagnostics for anything that
// warned or failed.
func WriteHuman(w io.Writer, report *Report) {
	for _, g := range report.Gates {
		elapsed := ""
		if g.Result.Status != gate.StatusSkip {
			elapsed = fmt.Sprintf(" (%s)", g.Result.Elapsed.Round(1e6))
		}
		fmt.Fprintf(w, "%s %-18s %s%s\n", statusGlyph(g.Result.Status), g.Name,
			string(g.Result.Status), elapsed)
		if g.Result.Status == gate.StatusSkip && g.Result.Message != "" {
			fmt.Fprintf(w, "    %s\n", g.Result.Message)
		}
	}

	var diagnostics []GateReport
	for _, g := range report.Gates {
		if (g.Result.Status == gate.StatusFail || g.Result.Status == gate.StatusWarn) &&
			g.Result.Message != "" {
			diagnostics = append(diagnostics, g)
		}
	}
	if len(diagnostics) > 0 {
		fmt.Fprintln(w)
		for _, g := range diagnostics {
			fmt.Fprintf(w, "%s %s:\n", statusGlyph(g.Result.Status), g.Name)
			for _, line := range strings.Split(g.Result.Message, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	passed, warned, failed, skipped := report.Counts()
	fmt.Fprintf(w, "\n%d passed, %d warned, %d failed, %d skipped in %s\n",
		passed, warned, failed, skipped, report.Elapsed.Round(1e6))
	if report.Outcome == OutcomeFailure {
		fmt.Fprintln(w, "commit blocked")
	}
}

// WriteJSON renders the report as indented JSON for tooling.
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Package gates contains the built-in gate implementations and the
// registry that assembles them from configuration.
package gates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qgate/internal/config"
	"qgate/internal/errors"
	"qgate/internal/gate"
	"qgate/internal/tool"
)

// installHints maps well-known tool binaries to install commands shown
// when the binary is missing. Unknown tools fall back to a generic hint.
var installHints = map[string]map[string]string{
	"prettier": {"default": "npm install -g prettier"},
	"eslint":   {"default": "npm install -g eslint"},
	"tsc":      {"default": "npm install -g typescript"},
	"npm":      {"darwin": "brew install node", "default": "https://nodejs.org/en/download"},
	"ruff":     {"default": "pip install ruff"},
	"mypy":     {"default": "pip install mypy"},
	"pytest":   {"default": "pip install pytest"},
	"gofmt":    {"default": "https://go.dev/dl"},
	"golangci-lint": {
		"darwin":  "brew install golangci-lint",
		"default": "https://golangci-lint.run/usage/install",
	},
	"radon": {"default": "pip install radon"},
}

// toolSpec builds the invocation spec for a configured gate command.
func toolSpec(command string, args []string) tool.Spec {
	return tool.Spec{
		Name:       command,
		Binary:     command,
		Args:       args,
		InstallCmd: installHints[command],
	}
}

// NewExecGate builds a gate that runs a configured subprocess over the
// matching files and maps its exit code to a result. Lint, typecheck and
// test are all instances of this gate.
func NewExecGate(name string, severity gate.Severity, cfg config.GateConfig, passFiles bool) gate.Spec {
	return gate.Spec{
		Name:      name,
		Phase:     gate.Parallel,
		Severity:  severity,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		AppliesTo: gate.FilePatternApplicability(cfg.Include),
		Execute: func(ctx context.Context, gc *gate.Context) gate.Result {
			files := gc.Files.Filter(cfg.Include).Exclude(cfg.Exclude)
			if files.Empty() {
				return gate.Skip("no matching files")
			}

			var extraArgs []string
			if passFiles {
				extraArgs = files.Paths()
			}

			result, err := tool.Run(ctx, toolSpec(cfg.Command, cfg.Args), gc.RepoRoot, extraArgs...)
			if err != nil {
				return failFromError(name, severity, err)
			}
			if result.ExitCode != 0 {
				return violation(severity, fmt.Sprintf("%s exited with code %d\n%s",
					cfg.Command, result.ExitCode, trimOutput(result.Output)))
			}
			return gate.Pass()
		},
	}
}

// failFromError converts a tool invocation error into a gate result. A
// missing binary is always a failure with an install hint, never a skip.
func failFromError(name string, severity gate.Severity, err error) gate.Result {
	switch errors.CodeOf(err) {
	case errors.ToolMissing:
		return gate.Fail(err.Error())
	case errors.GateTimeout:
		return gate.Fail(fmt.Sprintf("%s timed out: %v", name, err))
	default:
		return violation(severity, err.Error())
	}
}

// violation maps a found problem to Fail for hard gates and Warn for
// advisory ones.
func violation(severity gate.Severity, message string) gate.Result {
	if severity == gate.Advisory {
		return gate.Warn(message)
	}
	return gate.Fail(message)
}

// trimOutput bounds diagnostic output included in a result message.
func trimOutput(output string) string {
	output = strings.TrimSpace(output)
	const maxLines = 40
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	return strings.Join(lines[:maxLines], "\n") +
		fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}

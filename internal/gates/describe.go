package gates

import (
	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/tool"
)

// Descriptor summarizes one configured gate for listings.
type Descriptor struct {
	Name     string        `json:"name"`
	Phase    gate.Phase    `json:"phase"`
	Severity gate.Severity `json:"severity"`
	Enabled  bool          `json:"enabled"`
	Command  string        `json:"command,omitempty"`
	Include  []string      `json:"include,omitempty"`
}

// Describe lists every built-in gate in declared order, including
// disabled ones.
func Describe(cfg *config.Config) []Descriptor {
	return []Descriptor{
		{"format", gate.Sequential, gate.Hard, cfg.Gates.Format.Enabled,
			cfg.Gates.Format.Command, cfg.Gates.Format.Include},
		{"lockfile", gate.Sequential, gate.Hard, cfg.Gates.Lockfile.Enabled,
			"", manifestPatterns()},
		{"lint", gate.Parallel, gate.Hard, cfg.Gates.Lint.Enabled,
			cfg.Gates.Lint.Command, cfg.Gates.Lint.Include},
		{"typecheck", gate.Parallel, gate.Hard, cfg.Gates.Typecheck.Enabled,
			cfg.Gates.Typecheck.Command, cfg.Gates.Typecheck.Include},
		{"test", gate.Parallel, gate.Hard, cfg.Gates.Test.Enabled,
			cfg.Gates.Test.Command, cfg.Gates.Test.Include},
		{"secrets", gate.Parallel, gate.Hard, cfg.Gates.Secrets.Enabled,
			"", cfg.Gates.Secrets.Include},
		{"debug-statements", gate.Parallel, gate.Advisory, cfg.Gates.DebugStatements.Enabled,
			"", cfg.Gates.DebugStatements.Include},
		{"complexity", gate.Parallel, gate.Advisory, cfg.Gates.Complexity.Enabled,
			cfg.Gates.Complexity.Command, cfg.Gates.Complexity.Include},
	}
}

// ExternalTools returns the tool specs for every enabled gate that
// shells out, for use by environment checks.
func ExternalTools(cfg *config.Config) []tool.Spec {
	var specs []tool.Spec
	add := func(enabled bool, command string, args []string) {
		if enabled && command != "" {
			specs = append(specs, toolSpec(command, args))
		}
	}
	add(cfg.Gates.Format.Enabled, cfg.Gates.Format.Command, cfg.Gates.Format.Args)
	add(cfg.Gates.Lint.Enabled, cfg.Gates.Lint.Command, cfg.Gates.Lint.Args)
	add(cfg.Gates.Typecheck.Enabled, cfg.Gates.Typecheck.Command, cfg.Gates.Typecheck.Args)
	add(cfg.Gates.Test.Enabled, cfg.Gates.Test.Command, cfg.Gates.Test.Args)
	add(cfg.Gates.Complexity.Enabled, cfg.Gates.Complexity.Command, cfg.Gates.Complexity.Args)
	return specs
}

package gates

import (
	"qgate/internal/config"
	"qgate/internal/gate"
	"qgate/internal/trend"
)

// Build assembles the enabled gate specs in declared order: sequential
// gates first (format, lockfile), then the parallel set. Report order
// follows this order regardless of execution interleaving.
func Build(cfg *config.Config, store *trend.Store) []gate.Spec {
	type entry struct {
		enabled bool
		spec    func() gate.Spec
	}

	entries := []entry{
		{cfg.Gates.Format.Enabled, func() gate.Spec { return NewFormatGate(cfg.Gates.Format) }},
		{cfg.Gates.Lockfile.Enabled, func() gate.Spec { return NewLockfileGate(cfg.Gates.Lockfile) }},
		{cfg.Gates.Lint.Enabled, func() gate.Spec {
			return NewExecGate("lint", gate.Hard, cfg.Gates.Lint, true)
		}},
		{cfg.Gates.Typecheck.Enabled, func() gate.Spec {
			return NewExecGate("typecheck", gate.Hard, cfg.Gates.Typecheck, false)
		}},
		{cfg.Gates.Test.Enabled, func() gate.Spec {
			return NewExecGate("test", gate.Hard, cfg.Gates.Test, false)
		}},
		{cfg.Gates.Secrets.Enabled, func() gate.Spec { return NewSecretsGate(cfg.Gates.Secrets) }},
		{cfg.Gates.DebugStatements.Enabled, func() gate.Spec {
			return NewDebugStatementsGate(cfg.Gates.DebugStatements)
		}},
		{cfg.Gates.Complexity.Enabled, func() gate.Spec {
			return NewComplexityGate(cfg.Gates.Complexity, cfg.Trend, store)
		}},
	}

	var specs []gate.Spec
	for _, e := range entries {
		if e.enabled {
			specs = append(specs, e.spec())
		}
	}
	return specs
}

// Filter returns the specs selected by --only / --skip. An empty only
// list selects everything not skipped. Unknown names are ignored.
func Filter(specs []gate.Spec, only, skip []string) []gate.Spec {
	onlySet := toSet(only)
	skipSet := toSet(skip)

	var out []gate.Spec
	for _, s := range specs {
		if len(onlySet) > 0 && !onlySet[s.Name] {
			continue
		}
		if skipSet[s.Name] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"qgate/internal/config"
	"qgate/internal/errors"
	"qgate/internal/gitio"
	"qgate/internal/slogutil"
	"qgate/internal/version"
)

var (
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "qgate",
	Short: "qgate - staged-file quality gates for git commits",
	Long: `qgate runs a configurable list of quality gates (format, lint,
typecheck, test, secrets and more) against the staged files of a git
repository and aggregates the results into a single pass/fail outcome,
suitable for use as a pre-commit hook.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("qgate version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}

// newLogger builds the CLI logger from the persistent flags and the
// repo config's logging section.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.NewLogger(os.Stderr, level)
}

// repoSetup resolves the repository root and loads its configuration.
func repoSetup() (string, *config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, errors.New(errors.InternalError, "failed to get current directory", err, nil)
	}
	root, err := gitio.GetRepoRoot(cwd)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

// exitCodeFor maps errors to process exit codes. Repository-state and
// configuration problems exit 2; anything else is a plain failure.
func exitCodeFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.RepoStateInvalid, errors.ConfigInvalid:
		return 2
	default:
		return 1
	}
}

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qgate/internal/config"
	"qgate/internal/gates"
	"qgate/internal/runner"
	"qgate/internal/trend"
)

var (
	runRange      string
	runAllFiles   bool
	runOnly       []string
	runSkip       []string
	runOutput     string
	runNoParallel bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured gates against the staged files",
	Long: `Selects the staged files (or an explicit commit range), runs every
enabled gate against them, and prints a per-gate report. Exit code 0 on
success, 1 when a hard gate failed, 2 when the repository state could
not be resolved.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runRange, "range", "", "Select files from a commit range (A..B) instead of the index")
	runCmd.Flags().BoolVar(&runAllFiles, "all-files", false, "Select every tracked file")
	runCmd.Flags().StringSliceVar(&runOnly, "only", nil, "Run only the named gates")
	runCmd.Flags().StringSliceVar(&runSkip, "skip", nil, "Skip the named gates")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "human", "Output format: human or json")
	runCmd.Flags().BoolVar(&runNoParallel, "no-parallel", false, "Run parallel-phase gates one at a time")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	root, cfg, err := repoSetup()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var store *trend.Store
	if cfg.Gates.Complexity.Enabled {
		store, err = trend.OpenStore(filepath.Join(root, config.Dir), logger)
		if err != nil {
			logger.Warn("trend store unavailable, complexity gate will skip", "error", err)
			store = nil
		}
	}

	specs := gates.Filter(gates.Build(cfg, store), runOnly, runSkip)

	r := runner.New(root, cfg, specs, logger)
	report, err := r.Run(cmd.Context(), runner.Options{
		Range:      runRange,
		AllFiles:   runAllFiles,
		NoParallel: runNoParallel,
	})
	if store != nil {
		_ = store.Close()
	}
	if err != nil {
		return err
	}

	if runOutput == "json" {
		if err := runner.WriteJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		runner.WriteHuman(os.Stdout, report)
	}

	if code := report.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

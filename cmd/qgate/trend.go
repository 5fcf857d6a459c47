package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qgate/internal/config"
	"qgate/internal/errors"
	"qgate/internal/trend"
)

var (
	trendMetric string
	trendLimit  int
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show recorded metric history",
	Long:  "Shows the samples the complexity gate has recorded for this repository, newest first.",
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVar(&trendMetric, "metric", "complexity", "Metric to show")
	trendCmd.Flags().IntVarP(&trendLimit, "limit", "n", 20, "Number of samples to show")
	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	root, cfg, err := repoSetup()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := trend.OpenStore(filepath.Join(root, config.Dir), logger)
	if err != nil {
		return errors.New(errors.TrendStoreError, "failed to open trend store", err, nil)
	}
	defer func() { _ = store.Close() }()

	samples, err := store.History(trendMetric, trendLimit)
	if err != nil {
		return errors.New(errors.TrendStoreError, "failed to read trend history", err, nil)
	}
	if len(samples) == 0 {
		fmt.Printf("no samples recorded for metric %q\n", trendMetric)
		if metrics, err := store.Metrics(); err == nil && len(metrics) > 0 {
			fmt.Printf("available metrics: %v\n", metrics)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tCOMMIT\tBRANCH\tVALUE")
	for _, s := range samples {
		commit := s.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n",
			s.RecordedAt.Format("2006-01-02 15:04"), commit, s.Branch, s.Value)
	}
	return w.Flush()
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qgate/internal/gates"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured gates with phase, severity and applicability",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "human", "Output format: human or json")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, cfg, err := repoSetup()
	if err != nil {
		return err
	}

	descriptors := gates.Describe(cfg)

	if listOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(descriptors)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GATE\tPHASE\tSEVERITY\tENABLED\tCOMMAND\tFILES")
	for _, d := range descriptors {
		files := strings.Join(d.Include, ",")
		if files == "" {
			files = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
			d.Name, d.Phase, d.Severity, d.Enabled, orDash(d.Command), files)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

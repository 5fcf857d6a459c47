package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qgate/internal/gates"
	"qgate/internal/gitio"
	"qgate/internal/tool"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configured external tools are available",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	root, cfg, err := repoSetup()
	if err != nil {
		return err
	}

	fmt.Printf("repository: %s\n", root)
	if state, err := gitio.ComputeState(root); err == nil {
		fmt.Printf("branch: %s\nhead: %s\n\n", state.Branch, state.HeadCommit)
	} else {
		fmt.Printf("repository state: %v\n\n", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSTATUS\tVERSION")
	missing := 0
	for _, spec := range gates.ExternalTools(cfg) {
		ok, version := tool.IsAvailable(cmd.Context(), spec)
		if ok {
			fmt.Fprintf(w, "%s\tok\t%s\n", spec.Name, orDash(version))
			continue
		}
		missing++
		fmt.Fprintf(w, "%s\tmissing\t-\n", spec.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if missing > 0 {
		fmt.Println()
		for _, spec := range gates.ExternalTools(cfg) {
			if ok, _ := tool.IsAvailable(cmd.Context(), spec); !ok {
				fmt.Printf("install %s: %s\n", spec.Name, spec.InstallHint())
			}
		}
		fmt.Printf("\n%d tools missing; the corresponding gates will fail\n", missing)
	} else {
		fmt.Println("\nall configured tools available")
	}
	return nil
}

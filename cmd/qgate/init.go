package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qgate/internal/config"
	"qgate/internal/errors"
	"qgate/internal/gitio"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize qgate configuration",
	Long:  "Creates a .qgate/ directory with a default configuration at the repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "failed to get current directory", err, nil)
	}
	root, err := gitio.GetRepoRoot(cwd)
	if err != nil {
		return err
	}

	configPath := filepath.Join(root, config.Dir, "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Idempotent: already initialized is success.
		fmt.Println("qgate already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'qgate init --force' to overwrite.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return errors.New(errors.InternalError, "failed to write config file", err, nil)
	}

	fmt.Println("qgate initialized.")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Adjust gate commands in the config for your toolchain")
	fmt.Println("  2. Run 'qgate doctor' to check the configured tools")
	fmt.Println("  3. Run 'qgate hooks install' to wire up the pre-commit hook")
	return nil
}

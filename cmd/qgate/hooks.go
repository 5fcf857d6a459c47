package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"qgate/internal/errors"
	"qgate/internal/gitio"
)

const hookMarker = "# managed by qgate"

var hookNames = []string{"pre-commit", "pre-push"}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage the git hooks that invoke qgate",
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install pre-commit and pre-push hooks",
	RunE:  runHooksInstall,
}

var hooksUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove hooks installed by qgate",
	RunE:  runHooksUninstall,
}

var hooksForce bool

func init() {
	hooksInstallCmd.Flags().BoolVarP(&hooksForce, "force", "f", false, "Overwrite hooks not managed by qgate")
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksUninstallCmd)
	rootCmd.AddCommand(hooksCmd)
}

func hookScript(name string) string {
	if name == "pre-push" {
		// Fresh branches have no push destination yet; fall back to the
		// upstream, and finally to HEAD so the range is empty instead
		// of the hook erroring out and blocking the push.
		return fmt.Sprintf(`#!/bin/sh
%s
base=$(git rev-parse --abbrev-ref '@{push}' 2>/dev/null ||
	git rev-parse --abbrev-ref '@{upstream}' 2>/dev/null ||
	echo HEAD)
exec qgate run --range "$base"
`, hookMarker)
	}
	return fmt.Sprintf("#!/bin/sh\n%s\nexec qgate run\n", hookMarker)
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "failed to get current directory", err, nil)
	}
	root, err := gitio.GetRepoRoot(cwd)
	if err != nil {
		return err
	}

	warnAboutPreCommitFramework(root)

	hooksDir := filepath.Join(root, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return errors.New(errors.InternalError, "failed to create hooks directory", err, nil)
	}

	for _, name := range hookNames {
		path := filepath.Join(hooksDir, name)
		if existing, err := os.ReadFile(path); err == nil {
			if !strings.Contains(string(existing), hookMarker) && !hooksForce {
				fmt.Printf("skipping %s: an unmanaged hook already exists (use --force to overwrite)\n", name)
				continue
			}
		}
		if err := os.WriteFile(path, []byte(hookScript(name)), 0755); err != nil {
			return errors.New(errors.InternalError, "failed to write "+name+" hook", err, nil)
		}
		fmt.Printf("installed %s hook\n", name)
	}
	return nil
}

func runHooksUninstall(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "failed to get current directory", err, nil)
	}
	root, err := gitio.GetRepoRoot(cwd)
	if err != nil {
		return err
	}

	for _, name := range hookNames {
		path := filepath.Join(root, ".git", "hooks", name)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(content), hookMarker) {
			fmt.Printf("leaving %s: not managed by qgate\n", name)
			continue
		}
		if err := os.Remove(path); err != nil {
			return errors.New(errors.InternalError, "failed to remove "+name+" hook", err, nil)
		}
		fmt.Printf("removed %s hook\n", name)
	}
	return nil
}

// preCommitConfig is the subset of .pre-commit-config.yaml we care
// about: whether another hook manager already owns the hooks.
type preCommitConfig struct {
	Repos []struct {
		Repo string `yaml:"repo"`
	} `yaml:"repos"`
}

func warnAboutPreCommitFramework(root string) {
	data, err := os.ReadFile(filepath.Join(root, ".pre-commit-config.yaml"))
	if err != nil {
		return
	}
	var cfg preCommitConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}
	if len(cfg.Repos) > 0 {
		fmt.Printf("warning: .pre-commit-config.yaml defines %d hook repos; "+
			"installing qgate hooks will bypass the pre-commit framework\n", len(cfg.Repos))
	}
}

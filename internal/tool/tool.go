// Package tool invokes external quality tools (formatters, linters,
// type-checkers, test runners) as opaque subprocesses. The only contract
// with a tool is its exit code and combined output; parsing beyond that
// is the business of individual gates.
package tool

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"qgate/internal/errors"
)

// Spec describes one external tool.
type Spec struct {
	Name        string
	Binary      string
	Args        []string
	VersionArgs []string
	MinVersion  string
	InstallCmd  map[string]string // per-OS install commands, "default" fallback
}

// InstallHint returns the install command for the current OS.
func (s Spec) InstallHint() string {
	if cmd, ok := s.InstallCmd[runtime.GOOS]; ok {
		return cmd
	}
	return s.InstallCmd["default"]
}

// MissingError builds the error reported when the tool binary is absent.
// A missing tool is always a failure, never a skip: it must not be
// mistaken for "nothing to check".
func (s Spec) MissingError(cause error) error {
	fixes := []errors.FixAction{{
		Type:        errors.InstallTool,
		Tool:        s.Binary,
		Description: fmt.Sprintf("Install %s to enable this gate", s.Name),
	}}
	if hint := s.InstallHint(); hint != "" {
		fixes = append(fixes, errors.FixAction{
			Type:        errors.RunCommand,
			Command:     hint,
			Safe:        false,
			Description: fmt.Sprintf("Install %s", s.Name),
		})
	}
	return errors.New(errors.ToolMissing,
		fmt.Sprintf("%s not found in PATH", s.Binary), cause, fixes)
}

// IsAvailable checks whether the tool is installed and, when the spec
// declares a minimum version, whether it is recent enough. The second
// return value is the detected version, when one could be parsed.
func IsAvailable(ctx context.Context, s Spec) (bool, string) {
	if _, err := exec.LookPath(s.Binary); err != nil {
		return false, ""
	}

	if len(s.VersionArgs) > 0 {
		cmd := exec.CommandContext(ctx, s.Binary, s.VersionArgs...)
		output, err := cmd.Output()
		if err != nil {
			return true, "" // found but version unknown
		}
		version := parseVersion(string(output))
		if s.MinVersion != "" && !versionAtLeast(version, s.MinVersion) {
			return false, version
		}
		return true, version
	}

	return true, ""
}

// RunResult is the raw outcome of one tool invocation.
type RunResult struct {
	ExitCode int
	Output   string // combined stdout+stderr
}

// Run runs the tool in the given directory with the spec's args plus any
// extra args. A nonzero exit code is returned in RunResult, not as an
// error; errors are reserved for "could not be started" conditions.
func Run(ctx context.Context, s Spec, dir string, extraArgs ...string) (*RunResult, error) {
	if _, err := exec.LookPath(s.Binary); err != nil {
		return nil, s.MissingError(err)
	}

	args := append(append([]string{}, s.Args...), extraArgs...)
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.GateTimeout,
				fmt.Sprintf("%s did not finish in time", s.Name), ctx.Err(), nil)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &RunResult{ExitCode: exitErr.ExitCode(), Output: string(output)}, nil
		}
		return nil, errors.New(errors.InternalError,
			fmt.Sprintf("failed to run %s", s.Name), err, nil)
	}

	return &RunResult{ExitCode: 0, Output: string(output)}, nil
}

// parseVersion extracts a semantic version number from tool output.
func parseVersion(output string) string {
	re := regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)
	matches := re.FindStringSubmatch(output)
	if len(matches) >= 2 {
		return matches[1]
	}
	return strings.TrimSpace(output)
}

// versionAtLeast checks if version >= minVersion.
func versionAtLeast(version, minVersion string) bool {
	v := parseVersionParts(version)
	m := parseVersionParts(minVersion)

	for i := 0; i < 3; i++ {
		if v[i] > m[i] {
			return true
		}
		if v[i] < m[i] {
			return false
		}
	}
	return true
}

func parseVersionParts(v string) [3]int {
	var parts [3]int
	split := strings.Split(strings.TrimPrefix(v, "v"), ".")
	for i := 0; i < 3 && i < len(split); i++ {
		parts[i], _ = strconv.Atoi(split[i])
	}
	return parts
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"qgate/internal/errors"
)

// Config represents the complete qgate configuration (v1 schema)
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Policy    PolicyConfig    `json:"policy" mapstructure:"policy"`
	Selection SelectionConfig `json:"selection" mapstructure:"selection"`
	Gates     GatesConfig     `json:"gates" mapstructure:"gates"`
	History   HistoryConfig   `json:"history" mapstructure:"history"`
	Trend     TrendConfig     `json:"trend" mapstructure:"trend"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// PolicyConfig controls run semantics that are deliberately operator
// choices rather than fixed behavior.
type PolicyConfig struct {
	// RunParallelAfterFailure keeps the parallel phase running even when a
	// sequential hard gate already failed, so a commit surfaces every
	// problem in one pass instead of one at a time.
	RunParallelAfterFailure bool `json:"runParallelAfterFailure" mapstructure:"runParallelAfterFailure"`
}

// SelectionConfig contains global file selection filters applied before
// any per-gate patterns.
type SelectionConfig struct {
	Include []string `json:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// GateConfig contains configuration for a single gate.
type GateConfig struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	Command        string   `json:"command,omitempty" mapstructure:"command"`
	Args           []string `json:"args,omitempty" mapstructure:"args"`
	Include        []string `json:"include,omitempty" mapstructure:"include"`
	Exclude        []string `json:"exclude,omitempty" mapstructure:"exclude"`
	TimeoutSeconds int      `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// GatesConfig contains per-gate configuration. Field order here matches
// the declared gate order of a run.
type GatesConfig struct {
	Format          GateConfig `json:"format" mapstructure:"format"`
	Lockfile        GateConfig `json:"lockfile" mapstructure:"lockfile"`
	Lint            GateConfig `json:"lint" mapstructure:"lint"`
	Typecheck       GateConfig `json:"typecheck" mapstructure:"typecheck"`
	Test            GateConfig `json:"test" mapstructure:"test"`
	Secrets         GateConfig `json:"secrets" mapstructure:"secrets"`
	DebugStatements GateConfig `json:"debugStatements" mapstructure:"debugStatements"`
	Complexity      GateConfig `json:"complexity" mapstructure:"complexity"`
}

// HistoryConfig controls archived run reports.
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Keep    int  `json:"keep" mapstructure:"keep"`
}

// TrendConfig controls the complexity trend store.
type TrendConfig struct {
	// MaxRegressionPct is how far the score may rise above the baseline
	// sample before the gate warns.
	MaxRegressionPct float64 `json:"maxRegressionPct" mapstructure:"maxRegressionPct"`
	// BaseBranch anchors the baseline: the gate compares against the
	// sample recorded for the merge-base with this branch.
	BaseBranch    string `json:"baseBranch" mapstructure:"baseBranch"`
	RetentionDays int    `json:"retentionDays" mapstructure:"retentionDays"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Dir is the per-repo state directory holding config, allowlist, trend
// database and archived reports.
const Dir = ".qgate"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Policy: PolicyConfig{
			RunParallelAfterFailure: true,
		},
		Selection: SelectionConfig{
			Include: []string{},
			Exclude: []string{"node_modules/", "vendor/", "dist/", "build/"},
		},
		Gates: GatesConfig{
			Format: GateConfig{
				Enabled:        true,
				Command:        "prettier",
				Args:           []string{"--write"},
				Include:        []string{"*.ts", "*.tsx", "*.js", "*.jsx", "*.json", "*.css", "*.md"},
				TimeoutSeconds: 60,
			},
			Lockfile: GateConfig{
				Enabled:        true,
				TimeoutSeconds: 10,
			},
			Lint: GateConfig{
				Enabled:        true,
				Command:        "eslint",
				Args:           []string{"--max-warnings", "0"},
				Include:        []string{"*.ts", "*.tsx", "*.js", "*.jsx"},
				TimeoutSeconds: 120,
			},
			Typecheck: GateConfig{
				Enabled:        true,
				Command:        "tsc",
				Args:           []string{"--noEmit"},
				Include:        []string{"*.ts", "*.tsx"},
				TimeoutSeconds: 180,
			},
			Test: GateConfig{
				Enabled:        true,
				Command:        "npm",
				Args:           []string{"test", "--silent"},
				TimeoutSeconds: 300,
			},
			Secrets: GateConfig{
				Enabled:        true,
				TimeoutSeconds: 30,
			},
			DebugStatements: GateConfig{
				Enabled:        true,
				Include:        []string{"*.ts", "*.tsx", "*.js", "*.jsx", "*.go", "*.py"},
				TimeoutSeconds: 10,
			},
			Complexity: GateConfig{
				Enabled:        false,
				TimeoutSeconds: 120,
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    50,
		},
		Trend: TrendConfig{
			MaxRegressionPct: 10,
			BaseBranch:       "main",
			RetentionDays:    90,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .qgate/config.json. A missing file
// yields the defaults; keys absent from the file keep their default value.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, Dir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, errors.New(errors.ConfigInvalid, "failed to read config file", err, nil)
	}

	cfg := *DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to parse config file", err, nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .qgate/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return invalid("version", fmt.Sprintf("unsupported config version %d", c.Version))
	}

	for _, g := range []struct {
		name string
		cfg  GateConfig
	}{
		{"format", c.Gates.Format},
		{"lockfile", c.Gates.Lockfile},
		{"lint", c.Gates.Lint},
		{"typecheck", c.Gates.Typecheck},
		{"test", c.Gates.Test},
		{"secrets", c.Gates.Secrets},
		{"debugStatements", c.Gates.DebugStatements},
		{"complexity", c.Gates.Complexity},
	} {
		if g.cfg.TimeoutSeconds < 0 {
			return invalid("gates."+g.name+".timeoutSeconds", "must not be negative")
		}
	}

	if c.History.Keep < 0 {
		return invalid("history.keep", "must not be negative")
	}

	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return invalid("logging.format", "must be \"human\" or \"json\"")
	}

	return nil
}

func invalid(field, message string) error {
	return errors.New(errors.ConfigInvalid,
		fmt.Sprintf("config error in field '%s': %s", field, message), nil, nil)
}

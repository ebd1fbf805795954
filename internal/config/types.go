// Package config provides configuration loading and management for issueflow.
//
// Configuration is loaded using Viper, supporting YAML config files and environment
// variable overrides. The defaults leave the workflow engine inactive, so a
// fresh install never touches the tracker until workflow.active is set.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [TrackerConfig] selects and configures the issue tracker backend
//
// Configuration priority (highest to lowest):
//  1. Environment variables (ISSUEFLOW_ prefix, e.g. ISSUEFLOW_WORKFLOW_ACTIVE)
//  2. Config file specified by ISSUEFLOW_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/issueflow/config.yaml
//     - macOS: ~/Library/Application Support/issueflow/config.yaml
//     - Windows: %APPDATA%\issueflow\config.yaml
//  4. ./issueflow.yaml
//  5. [DefaultConfig] defaults
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Tracker backends.
const (
	TrackerJira = "jira"
	TrackerFile = "file"
)

// Output styles.
const (
	StyleColor = "color"
	StylePlain = "plain"
)

// Config represents the root configuration structure.
type Config struct {
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Tracker     TrackerConfig     `mapstructure:"tracker"`
	Annotations AnnotationsConfig `mapstructure:"annotations"`
	Report      ReportConfig      `mapstructure:"report"`
	Output      OutputConfig      `mapstructure:"output"`
	Log         LogConfig         `mapstructure:"log"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// WorkflowConfig controls the workflow engine.
type WorkflowConfig struct {
	// Active is the raw activation flag. Only "true" (any case) enables
	// tracker updates; see workflow.IsActive.
	Active string `mapstructure:"active"`

	// RulesPath overrides the bundled rule table with a YAML or TOML file.
	RulesPath string `mapstructure:"rules_path"`
}

// TrackerConfig selects and configures the issue tracker.
type TrackerConfig struct {
	// Kind is "jira" or "file".
	Kind string `mapstructure:"kind"`

	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	APIToken string `mapstructure:"api_token"`

	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	// FilePath is the YAML store used by the file tracker.
	FilePath string `mapstructure:"file_path"`
}

// AnnotationsConfig locates the test-to-issue mapping.
type AnnotationsConfig struct {
	// Path is a CSV or YAML annotation manifest. Empty means tests are only
	// linked to issues by markers in their output.
	Path string `mapstructure:"path"`

	// IssuePrefix qualifies bare numeric references such as "#123".
	IssuePrefix string `mapstructure:"issue_prefix"`
}

// ReportConfig controls result comments on issues.
type ReportConfig struct {
	// PublicURL is linked from result comments.
	PublicURL string `mapstructure:"public_url"`

	// Comments enables posting a result comment on each processed issue.
	Comments bool `mapstructure:"comments"`
}

// OutputConfig contains terminal output formatting configuration.
type OutputConfig struct {
	// Style is "color" or "plain".
	Style string `mapstructure:"style"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Kind:       TrackerJira,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			FilePath:   "issues.yaml",
		},
		Output: OutputConfig{
			Style: StyleColor,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Tracker.Kind {
	case TrackerJira, TrackerFile:
	default:
		return fmt.Errorf("invalid tracker.kind %q: must be %q or %q", c.Tracker.Kind, TrackerJira, TrackerFile)
	}
	if c.Tracker.MaxRetries < 0 {
		return fmt.Errorf("invalid tracker.max_retries %d: must not be negative", c.Tracker.MaxRetries)
	}
	switch c.Output.Style {
	case StyleColor, StylePlain:
	default:
		return fmt.Errorf("invalid output.style %q: must be %q or %q", c.Output.Style, StyleColor, StylePlain)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be \"text\" or \"json\"", c.Log.Format)
	}
	return nil
}

// ParseLevel converts a log level name to a [slog.Level].
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return level, nil
}

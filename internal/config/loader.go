package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ISSUEFLOW"

// ConfigPathEnv names the environment variable pointing at an explicit config file.
const ConfigPathEnv = "ISSUEFLOW_CONFIG_PATH"

// Loader handles Viper-based configuration loading.
//
// Each Loader owns a private viper instance so tests can load configurations
// side by side without touching global state.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new [Loader] with defaults registered.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("workflow.active", d.Workflow.Active)
	v.SetDefault("workflow.rules_path", d.Workflow.RulesPath)

	v.SetDefault("tracker.kind", d.Tracker.Kind)
	v.SetDefault("tracker.url", d.Tracker.URL)
	v.SetDefault("tracker.username", d.Tracker.Username)
	v.SetDefault("tracker.api_token", d.Tracker.APIToken)
	v.SetDefault("tracker.timeout", d.Tracker.Timeout)
	v.SetDefault("tracker.max_retries", d.Tracker.MaxRetries)
	v.SetDefault("tracker.file_path", d.Tracker.FilePath)

	v.SetDefault("annotations.path", d.Annotations.Path)
	v.SetDefault("annotations.issue_prefix", d.Annotations.IssuePrefix)

	v.SetDefault("report.public_url", d.Report.PublicURL)
	v.SetDefault("report.comments", d.Report.Comments)

	v.SetDefault("output.style", d.Output.Style)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
}

// Load discovers and reads the configuration file, applies environment
// overrides, and validates the result. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return l.LoadFromFile(path)
	}

	if path := discoverConfigFile(); path != "" {
		return l.LoadFromFile(path)
	}
	return l.unmarshal()
}

// LoadFromFile reads the configuration from an explicit file.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return l.unmarshal()
}

// ConfigFileUsed returns the path of the file read by the last load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// A YAML boolean would otherwise decode as "1"; keep the flag's text form.
	cfg.Workflow.Active = l.v.GetString("workflow.active")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// candidatePaths lists config file locations in priority order.
func candidatePaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "issueflow", "config.yaml"))
	}
	return append(paths, "issueflow.yaml")
}

func discoverConfigFile() string {
	for _, p := range candidatePaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

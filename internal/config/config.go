// Package config provides YAML configuration loading and validation for the
// Hydra console.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for the Hydra console.
type Config struct {
	// WAFBaseURL is the base URL of the WAF backend API
	// (e.g. "http://127.0.0.1:8080/api"). Defaults to that address when
	// omitted.
	WAFBaseURL string `yaml:"waf_base_url"`

	// TIBaseURL is the base URL of the threat-intelligence backend
	// (e.g. "http://localhost:5000/api/ti"). Defaults to that address when
	// omitted.
	TIBaseURL string `yaml:"ti_base_url"`

	// PatchURL is the full URL of the patch-recommendation endpoint.
	// Defaults to "http://localhost:5000/api/patch/recommend" when omitted.
	PatchURL string `yaml:"patch_url"`

	// StorePath is the path of the SQLite file backing local console state
	// (session, theme, rule overrides, user accounts). ":memory:" is
	// accepted for tests. Defaults to "hydra-console.db".
	StorePath string `yaml:"store_path"`

	// AuditPath is the path of the append-only audit log recording console
	// mutations. Empty disables the audit trail.
	AuditPath string `yaml:"audit_path"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`

	// Refresh holds the per-page polling intervals.
	Refresh RefreshConfig `yaml:"refresh"`

	// Timeouts holds the client-side HTTP timeout budget.
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// PageSize is the number of rows per page in table views. Defaults to 10.
	PageSize int `yaml:"page_size"`
}

// RefreshConfig holds the polling interval for each page or resource. The
// intervals differ by resource volatility: the anomaly feed is near-live,
// the dashboard KPIs are not.
type RefreshConfig struct {
	// Dashboard is the KPI/chart/alert refresh interval. Defaults to 60s.
	Dashboard time.Duration `yaml:"dashboard"`

	// Logs is the log-table refresh interval. Defaults to 30s.
	Logs time.Duration `yaml:"logs"`

	// Heatmap is the threat-monitor heatmap refresh interval. Defaults to 60s.
	Heatmap time.Duration `yaml:"heatmap"`

	// Anomaly is the live anomaly-feed poll interval. Defaults to 5s.
	Anomaly time.Duration `yaml:"anomaly"`

	// Recommendations is the live-analysis poll interval. Defaults to 30s.
	Recommendations time.Duration `yaml:"recommendations"`

	// Health is the backend health-check interval. Defaults to 30s.
	Health time.Duration `yaml:"health"`

	// TrainingTick is the interval between training-progress steps.
	// Defaults to 500ms.
	TrainingTick time.Duration `yaml:"training_tick"`
}

// TimeoutConfig holds the client-side HTTP deadlines. Feed and health
// endpoints get a tighter budget than regular resource fetches so a slow
// provider cannot stall the UI.
type TimeoutConfig struct {
	// Request is the general per-request deadline. Defaults to 10s.
	Request time.Duration `yaml:"request"`

	// Feed is the deadline for TI feed endpoints. Defaults to 3s.
	Feed time.Duration `yaml:"feed"`

	// Health is the deadline for health probes. Defaults to 2s.
	Health time.Duration `yaml:"health"`
}

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all fields. It returns a typed error describing the
// first validation failure encountered.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// Default returns a Config populated entirely with defaults, for running the
// console without a configuration file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills in zero-value optional fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.WAFBaseURL == "" {
		cfg.WAFBaseURL = "http://127.0.0.1:8080/api"
	}
	if cfg.TIBaseURL == "" {
		cfg.TIBaseURL = "http://localhost:5000/api/ti"
	}
	if cfg.PatchURL == "" {
		cfg.PatchURL = "http://localhost:5000/api/patch/recommend"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "hydra-console.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}

	if cfg.Refresh.Dashboard <= 0 {
		cfg.Refresh.Dashboard = 60 * time.Second
	}
	if cfg.Refresh.Logs <= 0 {
		cfg.Refresh.Logs = 30 * time.Second
	}
	if cfg.Refresh.Heatmap <= 0 {
		cfg.Refresh.Heatmap = 60 * time.Second
	}
	if cfg.Refresh.Anomaly <= 0 {
		cfg.Refresh.Anomaly = 5 * time.Second
	}
	if cfg.Refresh.Recommendations <= 0 {
		cfg.Refresh.Recommendations = 30 * time.Second
	}
	if cfg.Refresh.Health <= 0 {
		cfg.Refresh.Health = 30 * time.Second
	}
	if cfg.Refresh.TrainingTick <= 0 {
		cfg.Refresh.TrainingTick = 500 * time.Millisecond
	}

	if cfg.Timeouts.Request <= 0 {
		cfg.Timeouts.Request = 10 * time.Second
	}
	if cfg.Timeouts.Feed <= 0 {
		cfg.Timeouts.Feed = 3 * time.Second
	}
	if cfg.Timeouts.Health <= 0 {
		cfg.Timeouts.Health = 2 * time.Second
	}
}

// validate checks that enumerated fields contain only valid values and that
// no interval was configured to something nonsensical.
func validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Timeouts.Feed > cfg.Timeouts.Request {
		errs = append(errs, errors.New("timeouts.feed must not exceed timeouts.request"))
	}
	if cfg.Refresh.Anomaly < time.Second {
		errs = append(errs, errors.New("refresh.anomaly must be at least 1s"))
	}

	return errors.Join(errs...)
}

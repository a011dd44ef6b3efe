// Package config provides configuration types and defaults for actionctl.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/debounce"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/telemetry"
	"github.com/npratt/actionctl/internal/upload"
)

// Config holds all configuration for actionctl.
type Config struct {
	Action      ActionConfig      `yaml:"action" mapstructure:"action"`
	Upload      UploadConfig      `yaml:"upload" mapstructure:"upload"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Events      EventsConfig      `yaml:"events" mapstructure:"events"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	TUI         TUIConfig         `yaml:"tui" mapstructure:"tui"`
	Tracing     TracingConfig     `yaml:"tracing" mapstructure:"tracing"`
}

// ActionConfig holds the retry and auto-reset policy for the controller.
type ActionConfig struct {
	AutoReset  bool          `yaml:"auto_reset" mapstructure:"auto_reset"`   // Return to idle 2s after success
	RetryLimit int           `yaml:"retry_limit" mapstructure:"retry_limit"` // Retries allowed after the first attempt
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	AutoRetry  bool          `yaml:"auto_retry" mapstructure:"auto_retry"` // Headless mode: retry after each failure until exhausted
}

// UploadConfig holds settings for the simulated upload.
type UploadConfig struct {
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
	Step        float64       `yaml:"step" mapstructure:"step"`
	FailureRate float64       `yaml:"failure_rate" mapstructure:"failure_rate"`
}

// PathsConfig holds file paths for logs, the event log, and preferences.
type PathsConfig struct {
	Log    string `yaml:"log" mapstructure:"log"`
	Events string `yaml:"events" mapstructure:"events"`
	Prefs  string `yaml:"prefs" mapstructure:"prefs"`
	Traces string `yaml:"traces" mapstructure:"traces"`
}

// EventsConfig holds event router settings.
type EventsConfig struct {
	BufferSize int  `yaml:"buffer_size" mapstructure:"buffer_size"`
	Log        bool `yaml:"log" mapstructure:"log"` // Write events to Paths.Events as JSON lines
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log and the event log.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// TUIConfig holds interactive display settings.
type TUIConfig struct {
	PathDebounce time.Duration `yaml:"path_debounce" mapstructure:"path_debounce"` // Wait after typing before checking the path
	DarkDefault  bool          `yaml:"dark_default" mapstructure:"dark_default"`   // Theme used until one is saved
}

// TracingConfig controls span export for controller runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"` // Write run spans to Paths.Traces
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Action: ActionConfig{
			AutoReset:  false,
			RetryLimit: action.DefaultRetryLimit,
			RetryDelay: action.DefaultDelayBetweenRetries,
		},
		Upload: UploadConfig{
			Interval:    upload.DefaultInterval,
			Step:        upload.DefaultStep,
			FailureRate: upload.DefaultFailureRate,
		},
		Paths: PathsConfig{
			Log:    ".actionctl/actionctl.log",
			Events: ".actionctl/events.jsonl",
			Prefs:  ".actionctl/prefs.yaml",
			Traces: ".actionctl/traces.jsonl",
		},
		Events: EventsConfig{
			BufferSize: events.DefaultBufferSize,
			Log:        true,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		TUI: TUIConfig{
			PathDebounce: debounce.DefaultDelay,
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Action.RetryLimit < 0 {
		errs = append(errs, fmt.Errorf("action.retry_limit must be >= 0, got %d", c.Action.RetryLimit))
	}
	if c.Action.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("action.retry_delay must be >= 0, got %s", c.Action.RetryDelay))
	}
	if c.Upload.FailureRate < 0 || c.Upload.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("upload.failure_rate must be within [0,1], got %g", c.Upload.FailureRate))
	}
	if c.Upload.Step <= 0 {
		errs = append(errs, fmt.Errorf("upload.step must be > 0, got %g", c.Upload.Step))
	}
	if c.Tracing.Enabled && c.Paths.Traces == "" {
		errs = append(errs, errors.New("paths.traces must be set when tracing is enabled"))
	}
	if c.Upload.Interval <= 0 {
		errs = append(errs, fmt.Errorf("upload.interval must be > 0, got %s", c.Upload.Interval))
	}
	return errors.Join(errs...)
}

// Policy returns the controller policy described by the action settings.
func (c *Config) Policy() action.Policy {
	return action.Policy{
		AutoReset:           c.Action.AutoReset,
		RetryLimit:          c.Action.RetryLimit,
		DelayBetweenRetries: c.Action.RetryDelay,
	}
}

// LogSinkOptions returns rotation settings for the event log.
func (c *Config) LogSinkOptions() events.LogSinkOptions {
	return events.LogSinkOptions{
		MaxSizeMB:  c.LogRotation.MaxSizeMB,
		MaxBackups: c.LogRotation.MaxBackups,
		MaxAgeDays: c.LogRotation.MaxAgeDays,
		Compress:   c.LogRotation.Compress,
	}
}

// TraceOptions returns the trace file settings.
func (c *Config) TraceOptions() telemetry.Options {
	return telemetry.Options{
		Path:       c.Paths.Traces,
		MaxSizeMB:  c.LogRotation.MaxSizeMB,
		MaxBackups: c.LogRotation.MaxBackups,
		MaxAgeDays: c.LogRotation.MaxAgeDays,
		Compress:   c.LogRotation.Compress,
	}
}

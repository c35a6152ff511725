package config

import (
	"strings"
	"time"

	"github.com/marmos91/iscsiprobe/pkg/api"
)

// Defaults for the probe. The names are those of the reference memory-disk
// target; override them for any other target.
const (
	DefaultTimeout           = 5 * time.Second
	DefaultReadBufferSize    = 1024
	DefaultInitiatorName     = "iqn.2025-12.test:python-client"
	DefaultTargetName        = "iqn.2025-12.local:storage.memory-disk"
	DefaultUnknownTargetName = "iqn.wrong.target.name"
	DefaultSuite             = "core"
	DefaultOutput            = "text"
	DefaultWatchInterval     = 30 * time.Second
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyProbeDefaults(&cfg.Probe)
	applyWatchDefaults(&cfg.Watch)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "WARN"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)

	// stdout carries the report
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

// applyMetricsDefaults sets metrics defaults. A textfile target enables
// collection.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.File != "" {
		cfg.Enabled = true
	}
}

// applyProbeDefaults sets scenario runner defaults.
func applyProbeDefaults(cfg *ProbeConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.InitiatorName == "" {
		cfg.InitiatorName = DefaultInitiatorName
	}
	if cfg.TargetName == "" {
		cfg.TargetName = DefaultTargetName
	}
	if cfg.UnknownTargetName == "" {
		cfg.UnknownTargetName = DefaultUnknownTargetName
	}
	if cfg.Suite == "" {
		cfg.Suite = DefaultSuite
	}
	cfg.Suite = strings.ToLower(cfg.Suite)
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	cfg.Output = strings.ToLower(cfg.Output)
}

// applyWatchDefaults sets watch mode defaults.
func applyWatchDefaults(cfg *WatchConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultWatchInterval
	}
	cfg.API.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Registering viper defaults so environment overrides resolve
func GetDefaultConfig() *Config {
	cfg := &Config{
		Watch: WatchConfig{API: api.APIConfig{}},
	}
	ApplyDefaults(cfg)
	return cfg
}

// Package config loads iscsiprobe configuration.
//
// Sources, highest precedence first: command-line flags (applied by the
// caller), ISCSIPROBE_* environment variables, an optional YAML file, and
// the defaults in GetDefaultConfig. Without a file or environment the
// result is exactly the defaults, so the probe behaves the same whether or
// not configuration is present.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
	"github.com/marmos91/iscsiprobe/pkg/api"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
// Example: ISCSIPROBE_PROBE_TIMEOUT=10s
const EnvPrefix = "ISCSIPROBE"

// Config is the top-level configuration.
type Config struct {
	// Logging controls diagnostic output (always separate from the report).
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry configures OpenTelemetry tracing and Pyroscope profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics configures Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Probe holds the scenario runner settings and the names used by the
	// built-in suites.
	Probe ProbeConfig `mapstructure:"probe" yaml:"probe"`

	// Watch configures the long-running watch mode.
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`

	// Scenarios are custom scenarios, run by the "custom" and "all" suites.
	Scenarios []ScenarioConfig `mapstructure:"scenarios" validate:"dive" yaml:"scenarios,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level (DEBUG, INFO, WARN, ERROR).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the log line format (text, json).
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stderr, stdout or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	// Enabled turns on span export. Default: false.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of runs traced (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling configures Pyroscope, used by watch mode only.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on collection. In watch mode metrics are served on
	// /metrics; otherwise they are only written when File is set.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// File, when set, receives the registry in text exposition format after
	// each run (node_exporter textfile collector). Implies Enabled.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// ProbeConfig configures the scenario runner.
type ProbeConfig struct {
	// Timeout bounds the connect and the whole exchange of each scenario.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// ReadBufferSize is the largest response read. It must hold at least
	// the 48-byte header.
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"gte=48,lte=1048576" yaml:"read_buffer_size"`

	// InitiatorName is sent by every built-in scenario that carries one.
	InitiatorName string `mapstructure:"initiator_name" validate:"required" yaml:"initiator_name"`

	// TargetName is the target the success scenarios log in to.
	TargetName string `mapstructure:"target_name" validate:"required" yaml:"target_name"`

	// UnknownTargetName must not exist on the target.
	UnknownTargetName string `mapstructure:"unknown_target_name" validate:"required,nefield=TargetName" yaml:"unknown_target_name"`

	// Suite selects the scenarios: core, extended, custom or all.
	Suite string `mapstructure:"suite" validate:"required,oneof=core extended custom all" yaml:"suite"`

	// Output is the report format: text, table, json or yaml.
	Output string `mapstructure:"output" validate:"required,oneof=text table json yaml" yaml:"output"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Interval is the time between the start of consecutive runs.
	Interval time.Duration `mapstructure:"interval" validate:"gt=0" yaml:"interval"`

	// API is the status HTTP server.
	API api.APIConfig `mapstructure:"api" yaml:"api"`
}

// ScenarioConfig describes one custom scenario.
//
//	scenarios:
//	  - name: chap_required
//	    isid: "023d00000001"
//	    params:
//	      - {key: InitiatorName, value: iqn.2025-12.test:python-client}
//	      - {key: TargetName, value: iqn.2025-12.local:storage.chap-disk}
//	      - {key: AuthMethod, value: None}
//	    expected: AUTH_FAILURE
type ScenarioConfig struct {
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	Description string `mapstructure:"description" yaml:"description,omitempty"`

	// ISID is 6 bytes in hex. Empty picks one from the scenario position.
	ISID string `mapstructure:"isid" validate:"omitempty,len=12,hexadecimal" yaml:"isid,omitempty"`

	// Params are sent in the order listed.
	Params login.TextParams `mapstructure:"params" yaml:"params"`

	// Expected is a status as hex ("0x0203") or name ("TARGET_NOT_FOUND").
	Expected types.Status `mapstructure:"expected" yaml:"expected"`
}

// ISIDBytes decodes the ISID. ok is false when none was configured.
func (s ScenarioConfig) ISIDBytes() (isid [login.ISIDSize]byte, ok bool, err error) {
	if s.ISID == "" {
		return isid, false, nil
	}
	raw, err := hex.DecodeString(s.ISID)
	if err != nil {
		return isid, false, fmt.Errorf("scenario %q: invalid isid %q: %w", s.Name, s.ISID, err)
	}
	if len(raw) != login.ISIDSize {
		return isid, false, fmt.Errorf("scenario %q: isid must be %d bytes, got %d", s.Name, login.ISIDSize, len(raw))
	}
	copy(isid[:], raw)
	return isid, true, nil
}

// Load reads configuration from configPath (or the default location when
// empty) and the environment, then applies defaults and validates.
//
// A missing file is not an error: defaults plus environment are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	return decode(v)
}

// Watch loads configPath like Load and then calls onChange with the
// reloaded configuration, or the error, every time the file changes.
// Changes that fail validation leave the previous configuration in force;
// the caller decides what to do with the error.
func Watch(configPath string, onChange func(*Config, error)) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("watching requires an explicit config file")
	}

	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()

	return cfg, nil
}

// decode unmarshals, defaults and validates the merged viper state.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables, defaults and the
// config file location.
func setupViper(v *viper.Viper, configPath string) {
	// ISCSIPROBE_PROBE_TIMEOUT=10s overrides probe.timeout
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	setViperDefaults(v, GetDefaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// setViperDefaults registers every leaf key of the default configuration.
func setViperDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)
	v.SetDefault("telemetry.profiling.enabled", d.Telemetry.Profiling.Enabled)
	v.SetDefault("telemetry.profiling.endpoint", d.Telemetry.Profiling.Endpoint)
	v.SetDefault("telemetry.profiling.profile_types", d.Telemetry.Profiling.ProfileTypes)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.file", d.Metrics.File)

	v.SetDefault("probe.timeout", d.Probe.Timeout)
	v.SetDefault("probe.read_buffer_size", d.Probe.ReadBufferSize)
	v.SetDefault("probe.initiator_name", d.Probe.InitiatorName)
	v.SetDefault("probe.target_name", d.Probe.TargetName)
	v.SetDefault("probe.unknown_target_name", d.Probe.UnknownTargetName)
	v.SetDefault("probe.suite", d.Probe.Suite)
	v.SetDefault("probe.output", d.Probe.Output)

	v.SetDefault("watch.interval", d.Watch.Interval)
	v.SetDefault("watch.api.listen", d.Watch.API.Listen)
	v.SetDefault("watch.api.read_timeout", d.Watch.API.ReadTimeout)
	v.SetDefault("watch.api.write_timeout", d.Watch.API.WriteTimeout)
	v.SetDefault("watch.api.idle_timeout", d.Watch.API.IdleTimeout)
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types:
// durations ("5s") and anything implementing encoding.TextUnmarshaler,
// which covers login status codes given as hex or by name.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "iscsiprobe")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "iscsiprobe")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// config init command).
func GetConfigDir() string {
	return getConfigDir()
}

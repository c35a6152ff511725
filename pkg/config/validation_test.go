package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
	require.NoError(t, Validate(SampleConfig()))
}

func TestValidate(t *testing.T) {
	scenario := func(name, isid string) ScenarioConfig {
		return ScenarioConfig{
			Name:     name,
			ISID:     isid,
			Params:   login.Params(types.KeyInitiatorName, DefaultInitiatorName),
			Expected: types.StatusSuccess,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Probe.Timeout = 0 },
			wantErr: "Config.Probe.Timeout",
		},
		{
			name:    "buffer smaller than a header",
			mutate:  func(c *Config) { c.Probe.ReadBufferSize = 47 },
			wantErr: "Config.Probe.ReadBufferSize",
		},
		{
			name:    "unknown target equals target",
			mutate:  func(c *Config) { c.Probe.UnknownTargetName = c.Probe.TargetName },
			wantErr: "Config.Probe.UnknownTargetName",
		},
		{
			name:    "unknown suite",
			mutate:  func(c *Config) { c.Probe.Suite = "everything" },
			wantErr: "Config.Probe.Suite",
		},
		{
			name:    "unknown output",
			mutate:  func(c *Config) { c.Probe.Output = "xml" },
			wantErr: "Config.Probe.Output",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "TRACE" },
			wantErr: "Config.Logging.Level",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "Config.Telemetry.SampleRate",
		},
		{
			name:    "bad api listen address",
			mutate:  func(c *Config) { c.Watch.API.Listen = "nope" },
			wantErr: "Config.Watch.API.Listen",
		},
		{
			name:    "custom suite without scenarios",
			mutate:  func(c *Config) { c.Probe.Suite = "custom" },
			wantErr: "requires at least one entry",
		},
		{
			name:    "scenario without name",
			mutate:  func(c *Config) { c.Scenarios = []ScenarioConfig{scenario("", "")} },
			wantErr: "Config.Scenarios[0].Name",
		},
		{
			name:    "short isid",
			mutate:  func(c *Config) { c.Scenarios = []ScenarioConfig{scenario("a", "0102")} },
			wantErr: "Config.Scenarios[0].ISID",
		},
		{
			name:    "non-hex isid",
			mutate:  func(c *Config) { c.Scenarios = []ScenarioConfig{scenario("a", "zz0203040506")} },
			wantErr: "Config.Scenarios[0].ISID",
		},
		{
			name: "duplicate names",
			mutate: func(c *Config) {
				c.Scenarios = []ScenarioConfig{scenario("a", ""), scenario("a", "")}
			},
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CustomSuiteWithScenarios(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Probe.Suite = "custom"
	cfg.Scenarios = []ScenarioConfig{{Name: "only", Expected: types.StatusTargetNotFound}}
	assert.NoError(t, Validate(cfg))
}

func TestScenarioConfig_ISIDBytes(t *testing.T) {
	isid, ok, err := ScenarioConfig{Name: "x", ISID: "010203040601"}.ISIDBytes()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [6]byte{1, 2, 3, 4, 6, 1}, isid)

	_, ok, err = ScenarioConfig{Name: "x"}.ISIDBytes()
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ScenarioConfig{Name: "x", ISID: "0102"}.ISIDBytes()
	assert.Error(t, err)
}

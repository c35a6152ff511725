package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

func TestInitConfig_WritesToDefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfigPath(), path)
	assert.True(t, DefaultConfigExists())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# iscsiprobe configuration file")
	assert.Contains(t, string(data), "login_bogus_session_type")

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = InitConfig(true)
	assert.NoError(t, err)
}

func TestSaveConfig_LoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, InitConfigToPath(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := SampleConfig()
	assert.Equal(t, want.Probe, cfg.Probe)
	assert.Equal(t, want.Watch, cfg.Watch)
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, want.Scenarios[0].Params, cfg.Scenarios[0].Params)
	assert.Equal(t, types.StatusSessionTypeNotSupported, cfg.Scenarios[0].Expected)
	assert.Equal(t, "010203040601", cfg.Scenarios[0].ISID)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "debug", Format: "JSON"},
		Probe:   ProbeConfig{Suite: "Extended", Output: "JSON", ReadBufferSize: 4096},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "extended", cfg.Probe.Suite)
	assert.Equal(t, "json", cfg.Probe.Output)
	assert.Equal(t, 4096, cfg.Probe.ReadBufferSize)
	assert.Equal(t, DefaultTimeout, cfg.Probe.Timeout)
}

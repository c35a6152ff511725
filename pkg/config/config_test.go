package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.Equal(t, DefaultTimeout, cfg.Probe.Timeout)
	assert.Equal(t, DefaultReadBufferSize, cfg.Probe.ReadBufferSize)
	assert.Equal(t, DefaultInitiatorName, cfg.Probe.InitiatorName)
	assert.Equal(t, DefaultTargetName, cfg.Probe.TargetName)
	assert.Equal(t, DefaultUnknownTargetName, cfg.Probe.UnknownTargetName)
	assert.Equal(t, "core", cfg.Probe.Suite)
	assert.Equal(t, "text", cfg.Probe.Output)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Scenarios)
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, cfg.Probe.Timeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ISCSIPROBE_PROBE_TIMEOUT", "250ms")
	t.Setenv("ISCSIPROBE_PROBE_SUITE", "extended")
	t.Setenv("ISCSIPROBE_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Probe.Timeout)
	assert.Equal(t, "extended", cfg.Probe.Suite)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoad_FileWithScenarios(t *testing.T) {
	path := writeConfig(t, `
probe:
  timeout: 2s
  target_name: iqn.2025-12.local:storage.other
  suite: all
metrics:
  file: /tmp/iscsiprobe.prom
watch:
  interval: 1m
  api:
    listen: 127.0.0.1:9100
scenarios:
  - name: by_hex
    isid: "0a0b0c0d0e0f"
    params:
      - {key: InitiatorName, value: iqn.2025-12.test:python-client}
      - {key: TargetName, value: iqn.nope}
    expected: "0x0203"
  - name: by_name
    params:
      - {key: TargetName, value: iqn.2025-12.local:storage.other}
    expected: MISSING_PARAMETER
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "iqn.2025-12.local:storage.other", cfg.Probe.TargetName)
	assert.Equal(t, "all", cfg.Probe.Suite)
	assert.True(t, cfg.Metrics.Enabled, "a metrics file enables collection")
	assert.Equal(t, time.Minute, cfg.Watch.Interval)
	assert.Equal(t, "127.0.0.1:9100", cfg.Watch.API.Listen)
	assert.Equal(t, 10*time.Second, cfg.Watch.API.ReadTimeout)

	require.Len(t, cfg.Scenarios, 2)

	hex := cfg.Scenarios[0]
	assert.Equal(t, "by_hex", hex.Name)
	assert.Equal(t, types.StatusTargetNotFound, hex.Expected)
	assert.Equal(t, login.Params(
		"InitiatorName", "iqn.2025-12.test:python-client",
		"TargetName", "iqn.nope",
	), hex.Params)
	isid, ok, err := hex.ISIDBytes()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [6]byte{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f}, isid)

	named := cfg.Scenarios[1]
	assert.Equal(t, types.StatusMissingParameter, named.Expected)
	_, ok, err = named.ISIDBytes()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "probe: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("unknown status name", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
scenarios:
  - name: x
    expected: NOT_A_STATUS
`))
		require.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		_, err := Load(writeConfig(t, "probe:\n  suite: everything\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Contains(t, err.Error(), "Suite")
	})
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "probe:\n  timeout: 1s\n")

	var latest atomic.Pointer[Config]
	cfg, err := Watch(path, func(c *Config, err error) {
		if err == nil {
			latest.Store(c)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Probe.Timeout)

	require.NoError(t, os.WriteFile(path, []byte("probe:\n  timeout: 3s\n"), 0644))

	// A truncating write can surface an intermediate empty file first.
	require.Eventually(t, func() bool {
		c := latest.Load()
		return c != nil && c.Probe.Timeout == 3*time.Second
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_RequiresFile(t *testing.T) {
	_, err := Watch("", func(*Config, error) {})
	assert.Error(t, err)

	_, err = Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config, error) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetDefaultConfigPath_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "iscsiprobe", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, DefaultConfigExists())
}

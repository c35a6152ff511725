package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
	"gopkg.in/yaml.v3"
)

const configHeader = `# iscsiprobe configuration file
#
# Every setting can be overridden with an environment variable:
#   ISCSIPROBE_<SECTION>_<KEY>, e.g. ISCSIPROBE_PROBE_TIMEOUT=10s
# Command-line flags override both.
#
# probe.suite selects the scenarios to run:
#   core      success, unknown target, missing InitiatorName
#   extended  core plus missing TargetName, bad SessionType, discovery
#   custom    only the entries under "scenarios"
#   all       extended plus custom
#
# Expected statuses are hex ("0x0203") or names ("TARGET_NOT_FOUND").

`

// SampleConfig returns the defaults plus one example custom scenario.
func SampleConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Scenarios = []ScenarioConfig{
		{
			Name:        "login_bogus_session_type",
			Description: "A SessionType other than Normal or Discovery is rejected",
			ISID:        "010203040601",
			Params: login.Params(
				types.KeyInitiatorName, DefaultInitiatorName,
				types.KeyTargetName, DefaultTargetName,
				types.KeySessionType, "Bogus",
			),
			Expected: types.StatusSessionTypeNotSupported,
		},
	}
	return cfg
}

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}
	return SaveConfig(SampleConfig(), path)
}

// SaveConfig writes cfg as commented YAML.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

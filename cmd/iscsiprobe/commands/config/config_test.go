package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/marmos91/iscsiprobe/pkg/config"
)

// run executes the config command under a root carrying --config.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = prev })

	root := &cobra.Command{Use: "iscsiprobe", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(NewCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"config"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestInitValidateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iscsiprobe.yaml")

	out, err := run(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	cfg, err := pkgconfig.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 1)

	out, err = run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "Custom scenarios: 1")
	assert.Contains(t, out, "ignored by the core suite")
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iscsiprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe:\n  suite: extended\n"), 0644))

	_, err := run(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "probe:\n  suite: extended\n", string(data))

	_, err = run(t, "init", "--config", path, "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "login_bogus_session_type")
}

func TestValidate_ReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scenarios:
  - name: dup
    isid: "0102"
  - name: dup
`), 0644))

	_, err := run(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ISID")
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidate_DefaultsWithoutFile(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "built-in defaults are in use")
	assert.Contains(t, out, "Suite:            core")
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "iscsiprobe Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "telemetry", "metrics", "probe", "watch", "scenarios"} {
		assert.Contains(t, props, key)
	}

	path := filepath.Join(t.TempDir(), "schema.json")
	out, err = run(t, "schema", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "JSON schema written to")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	reg := InitRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, GetRegistry())

	next := InitRegistry()
	assert.NotSame(t, reg, next)

	Reset()
	assert.False(t, IsEnabled())
}

func TestWriteTextfile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "iscsiprobe.prom")
	assert.Error(t, WriteTextfile(path), "disabled metrics cannot be written")

	reg := InitRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "iscsiprobe_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "iscsiprobe_test_total 3")
	assert.Contains(t, string(data), "go_goroutines")
}

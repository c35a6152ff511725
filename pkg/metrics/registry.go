// Package metrics defines the probe's metrics interfaces and owns the
// Prometheus registry they are registered into.
//
// Metrics are optional: until InitRegistry is called the constructors in
// pkg/metrics/prometheus return nil, and every consumer treats a nil
// metrics value as "disabled" with zero overhead.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process registry, with Go runtime and process
// collectors attached, and enables metrics. Calling it again replaces the
// registry, which tests use to start from a clean slate.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Reset disables metrics and drops the registry.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// WriteTextfile writes the current registry to path in the Prometheus text
// exposition format, atomically, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics to %q: %w", path, err)
	}
	return nil
}

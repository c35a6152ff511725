package telemetry

import (
	"fmt"
	"maps"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig configures Pyroscope continuous profiling for watch mode.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040".
	Endpoint string

	// ProfileTypes are names from profileTypes below.
	ProfileTypes []string

	// Tags are attached to every profile, e.g. the watched target.
	Tags map[string]string
}

// DefaultProfilingConfig returns profiling disabled with the cheap
// profile types preselected.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		ServiceName:    DefaultServiceName,
		ServiceVersion: "dev",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	}
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

var profilingEnabled bool

// InitProfiling starts the Pyroscope profiler and returns its stop function.
func InitProfiling(cfg ProfilingConfig) (func() error, error) {
	if !cfg.Enabled {
		profilingEnabled = false
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)

		// Mutex and block profiles are off in the runtime until a rate is set.
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}

	tags := map[string]string{"version": cfg.ServiceVersion}
	maps.Copy(tags, cfg.Tags)

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            tags,
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled = true

	return func() error {
		profilingEnabled = false
		return p.Stop()
	}, nil
}

// IsProfilingEnabled reports whether the profiler is running.
func IsProfilingEnabled() bool {
	return profilingEnabled
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	pt, ok := profileTypes[name]
	if !ok {
		return pyroscope.ProfileCPU, fmt.Errorf("invalid profile type %q", name)
	}
	return pt, nil
}

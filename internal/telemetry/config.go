package telemetry

// DefaultServiceName names the trace resource and the fallback tracer.
const DefaultServiceName = "iscsiprobe"

// Config selects the OTLP trace exporter.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector, e.g. "localhost:4317".
	Endpoint string

	// Insecure dials the collector without TLS.
	Insecure bool

	// SampleRate is the fraction of runs traced, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

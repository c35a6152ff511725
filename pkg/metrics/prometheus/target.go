package prometheus

import (
	"time"

	"github.com/marmos91/iscsiprobe/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// targetMetrics is the Prometheus implementation of metrics.TargetMetrics.
type targetMetrics struct {
	logins        *prometheus.CounterVec
	loginDuration prometheus.Histogram
	active        prometheus.Gauge
}

// NewTargetMetrics creates a new Prometheus-backed TargetMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTargetMetrics() metrics.TargetMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &targetMetrics{
		logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iscsiprobe_targetsim_logins_total",
				Help: "Logins handled by the simulated target by returned status",
			},
			[]string{"status"},
		),
		loginDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iscsiprobe_targetsim_login_duration_milliseconds",
				Help:    "Time to read, validate and answer a login in milliseconds",
				Buckets: durationBuckets,
			},
		),
		active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iscsiprobe_targetsim_active_connections",
				Help: "Connections currently open on the simulated target",
			},
		),
	}
}

func (m *targetMetrics) RecordLogin(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(status).Inc()
	m.loginDuration.Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *targetMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *targetMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.active.Dec()
}

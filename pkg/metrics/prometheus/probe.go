package prometheus

import (
	"time"

	"github.com/marmos91/iscsiprobe/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// durationBuckets covers loopback logins (sub-millisecond) up to the
// default 5s timeout.
var durationBuckets = []float64{
	0.5,  // 500us - loopback
	1,    // 1ms
	5,    // 5ms - LAN
	10,   // 10ms
	50,   // 50ms - WAN
	100,  // 100ms
	500,  // 500ms
	1000, // 1s
	5000, // 5s - default timeout
}

// probeMetrics is the Prometheus implementation of metrics.ProbeMetrics.
type probeMetrics struct {
	scenarios        *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
	lastStatus       *prometheus.GaugeVec
	bytes            *prometheus.CounterVec
	runs             prometheus.Counter
	runDuration      prometheus.Histogram
	lastPassed       prometheus.Gauge
	lastFailed       prometheus.Gauge
	lastRun          prometheus.Gauge
}

// NewProbeMetrics creates a new Prometheus-backed ProbeMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewProbeMetrics() metrics.ProbeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &probeMetrics{
		scenarios: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iscsiprobe_scenarios_total",
				Help: "Total number of scenarios run by name and outcome",
			},
			[]string{"scenario", "outcome"},
		),
		scenarioDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iscsiprobe_scenario_duration_milliseconds",
				Help:    "Duration of a scenario from dial to close in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"scenario"},
		),
		lastStatus: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iscsiprobe_scenario_last_status_info",
				Help: "Set to 1 for the status observed by the latest run of each scenario",
			},
			[]string{"scenario", "status"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iscsiprobe_bytes_total",
				Help: "Bytes exchanged with the target by direction",
			},
			[]string{"direction"}, // "sent", "received"
		),
		runs: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "iscsiprobe_runs_total",
				Help: "Total number of completed probe runs",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iscsiprobe_run_duration_milliseconds",
				Help:    "Duration of a complete probe run in milliseconds",
				Buckets: durationBuckets,
			},
		),
		lastPassed: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iscsiprobe_last_run_passed",
				Help: "Number of scenarios that passed in the latest run",
			},
		),
		lastFailed: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iscsiprobe_last_run_failed",
				Help: "Number of scenarios that did not pass in the latest run",
			},
		),
		lastRun: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iscsiprobe_last_run_timestamp_seconds",
				Help: "Unix time at which the latest run completed",
			},
		),
	}
}

func (m *probeMetrics) RecordScenario(scenario, outcome, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.scenarios.WithLabelValues(scenario, outcome).Inc()
	m.scenarioDuration.WithLabelValues(scenario).Observe(float64(duration.Microseconds()) / 1000.0)

	m.lastStatus.DeletePartialMatch(prometheus.Labels{"scenario": scenario})
	if status != "" {
		m.lastStatus.WithLabelValues(scenario, status).Set(1)
	}
}

func (m *probeMetrics) RecordBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *probeMetrics) RecordRun(passed, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(float64(duration.Microseconds()) / 1000.0)
	m.lastPassed.Set(float64(passed))
	m.lastFailed.Set(float64(failed))
	m.lastRun.SetToCurrentTime()
}

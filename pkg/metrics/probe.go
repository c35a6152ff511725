package metrics

import "time"

// ProbeMetrics provides observability for probe runs.
//
// Pass nil to disable collection:
//
//	runner := probe.NewRunner(cfg, nil)
//
//	metrics.InitRegistry()
//	runner := probe.NewRunner(cfg, prometheus.NewProbeMetrics())
type ProbeMetrics interface {
	// RecordScenario records one finished scenario.
	//
	// Parameters:
	//   - scenario: Scenario name
	//   - outcome: pass, mismatch, no_result or error
	//   - status: Observed status in hex, empty when there was no result
	//   - duration: Time from dial to close
	RecordScenario(scenario, outcome, status string, duration time.Duration)

	// RecordBytes records bytes sent to or received from the target.
	// direction is "sent" or "received".
	RecordBytes(direction string, n int)

	// RecordRun records a completed run and its pass/fail counts.
	RecordRun(passed, failed int, duration time.Duration)
}

// TargetMetrics provides observability for the simulated login target.
type TargetMetrics interface {
	// RecordLogin records one handled login and the status returned.
	RecordLogin(status string, duration time.Duration)

	// RecordConnectionAccepted increments the active connection gauge.
	RecordConnectionAccepted()

	// RecordConnectionClosed decrements the active connection gauge.
	RecordConnectionClosed()
}

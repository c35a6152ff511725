// Package handlers implements the status server endpoints of watch mode.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/iscsiprobe/internal/cli/timeutil"
	"github.com/marmos91/iscsiprobe/internal/probe"
)

// ReportSource provides the report of the most recent completed run.
// LatestReport returns nil until the first run finishes.
type ReportSource interface {
	LatestReport() *probe.Report
}

// HealthHandler handles health check endpoints.
//
//   - Liveness: is the process serving HTTP?
//   - Readiness: did the last completed run pass every scenario?
type HealthHandler struct {
	source  ReportSource
	started time.Time
}

// NewHealthHandler creates a new health handler.
//
// The source may be nil, in which case readiness always fails.
func NewHealthHandler(source ReportSource) *HealthHandler {
	return &HealthHandler{source: source, started: time.Now()}
}

// RunSummary is the short form of a report used by readiness.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Target      string    `json:"target"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  float64   `json:"duration_ms"`
	FailedNames []string  `json:"failed_scenarios,omitempty"`
}

func summarize(r *probe.Report) RunSummary {
	s := RunSummary{
		RunID:      r.RunID,
		Target:     r.Target,
		Passed:     r.Passed,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		DurationMs: r.DurationMs,
	}
	for _, res := range r.Results {
		if !res.Passed() {
			s.FailedNames = append(s.FailedNames, res.Scenario)
		}
	}
	return s
}

// Liveness handles GET /health. It always succeeds while the server runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthyResponse(map[string]string{
		"service": "iscsiprobe",
		"uptime":  timeutil.FormatUptime(time.Since(h.started)),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 OK when the last completed run passed every scenario and
// 503 Service Unavailable before the first run or after a failing one.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		WriteJSON(w, http.StatusServiceUnavailable, UnhealthyResponse("probe not initialized", nil))
		return
	}

	report := h.source.LatestReport()
	if report == nil {
		WriteJSON(w, http.StatusServiceUnavailable, UnhealthyResponse("no completed run yet", nil))
		return
	}

	summary := summarize(report)
	if !report.AllPassed() {
		msg := fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total())
		WriteJSON(w, http.StatusServiceUnavailable, UnhealthyResponse(msg, summary))
		return
	}

	WriteJSON(w, http.StatusOK, HealthyResponse(summary))
}

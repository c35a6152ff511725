package handlers

import "net/http"

// ReportHandler serves the latest probe report.
type ReportHandler struct {
	source ReportSource
}

// NewReportHandler creates a report handler.
func NewReportHandler(source ReportSource) *ReportHandler {
	return &ReportHandler{source: source}
}

// Get handles GET /report. Returns 404 until a run has completed.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		WriteJSON(w, http.StatusNotFound, ErrorResponse("no completed run yet"))
		return
	}
	report := h.source.LatestReport()
	if report == nil {
		WriteJSON(w, http.StatusNotFound, ErrorResponse("no completed run yet"))
		return
	}
	WriteJSON(w, http.StatusOK, OKResponse(report))
}

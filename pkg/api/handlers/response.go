package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response represents a standard API response wrapper.
//
// All API responses follow this structure for consistency:
//   - Status indicates the overall result ("healthy", "unhealthy", "ok", "error")
//   - Timestamp provides response time for debugging and caching
//   - Data contains the response payload (optional)
//   - Error contains error details when Status indicates failure (optional)
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Headers are already sent; an encoding failure can only truncate.
	_ = json.NewEncoder(w).Encode(data)
}

// HealthyResponse creates a successful health check response.
func HealthyResponse(data any) Response {
	return Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// UnhealthyResponse creates a failed health check response. data may be nil.
func UnhealthyResponse(errMsg string, data any) Response {
	return Response{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
}

// OKResponse creates a generic successful response.
func OKResponse(data any) Response {
	return Response{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ErrorResponse creates a generic error response.
func ErrorResponse(errMsg string) Response {
	return Response{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}

// Package healthprobe provides the liveness and readiness handlers
// served by the ops HTTP server.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker tracks process readiness and uptime.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
}

// New creates a HealthChecker. The process starts not ready; the app
// flips it once the loops are running.
func New() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetReady marks the engine as ready (or not) to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// ProbeResponse is the JSON body of both probe endpoints.
type ProbeResponse struct {
	Status  string  `json:"status"`
	Uptime  float64 `json:"uptime_seconds"`
	Message string  `json:"message,omitempty"`
}

// Health is the liveness handler. Always 200 while the process runs.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, ProbeResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).Seconds(),
		})
	}
}

// Ready is the readiness handler: 200 once the loops run, 503 before.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeProbe(w, http.StatusServiceUnavailable, ProbeResponse{
				Status:  "not_ready",
				Message: "engine is starting",
			})
			return
		}

		writeProbe(w, http.StatusOK, ProbeResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).Seconds(),
		})
	}
}

func writeProbe(w http.ResponseWriter, status int, resp ProbeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

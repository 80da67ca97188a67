package handlers

import (
	"net/http"
	"time"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "0.1.0"

var startTime = time.Now()

// HealthResponse is the health check payload
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).Truncate(time.Second).String(),
	})
}

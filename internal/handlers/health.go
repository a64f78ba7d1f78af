package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/humcp/internal/common"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status        string  `json:"status"`
	Tools         int     `json:"tools"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthHandler reports liveness and the number of exposed tools.
type HealthHandler struct {
	logger  *common.Logger
	tools   int
	started time.Time
}

func NewHealthHandler(logger *common.Logger, tools int) *HealthHandler {
	return &HealthHandler{logger: logger, tools: tools, started: time.Now()}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:        "ok",
		Tools:         h.tools,
		UptimeSeconds: time.Since(h.started).Seconds(),
	})
}

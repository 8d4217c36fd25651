package api

import (
	"net/http"
	"strconv"
)

// defaultAlertLimit applies when GET /alerts/recent omits ?limit.
const defaultAlertLimit = 50

// AlertsHandler serves recent alerts and monitoring window trends.
type AlertsHandler struct {
	deps Dependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps Dependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleRecent handles GET /alerts/recent?limit=N, newest first.
func (h *AlertsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errInvalidLimit)
			return
		}
		limit = parsed
	}

	alerts := h.deps.RecentAlerts(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// HandleWindows handles GET /monitor/windows, oldest first.
func (h *AlertsHandler) HandleWindows(w http.ResponseWriter, r *http.Request) {
	windows := h.deps.MonitorWindows()
	writeJSON(w, http.StatusOK, map[string]any{
		"windows": windows,
		"count":   len(windows),
	})
}

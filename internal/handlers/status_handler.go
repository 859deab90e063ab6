package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// BrowserStats reports browser manager occupancy
type BrowserStats interface {
	Stats() map[string]interface{}
}

// StatusHandler exposes version, health and engine occupancy
type StatusHandler struct {
	registry  *platforms.Registry
	broker    interfaces.BrokerService
	browser   BrowserStats
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a status handler
func NewStatusHandler(registry *platforms.Registry, broker interfaces.BrokerService, browser BrowserStats, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		registry:  registry,
		broker:    broker,
		browser:   browser,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// VersionHandler returns build information.
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// HealthHandler is a liveness check.
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatusHandler reports engine occupancy and supported platforms.
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	supported := h.registry.Platforms()
	names := make([]string, 0, len(supported))
	for _, p := range supported {
		names = append(names, p.String())
	}

	status := map[string]interface{}{
		"uptime_seconds":       int(time.Since(h.startedAt).Seconds()),
		"platforms":            names,
		"interactive_sessions": h.broker.ActiveSessions(),
	}
	if h.browser != nil {
		status["browser"] = h.browser.Stats()
	}

	WriteJSON(w, http.StatusOK, status)
}

// PlatformsHandler lists the registered platform identifiers.
// GET /api/platforms
func (h *StatusHandler) PlatformsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	out := make([]string, 0)
	for _, p := range models.AllPlatforms() {
		if _, err := h.registry.Definition(p); err == nil {
			out = append(out, p.String())
		}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"platforms": out})
}

// NotFoundHandler is the fallback for unmatched API routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not found")
}

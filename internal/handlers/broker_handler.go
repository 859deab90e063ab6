package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
)

// BrokerHandler exposes the remote interactive session broker used when
// automated login hits a CAPTCHA or second factor
type BrokerHandler struct {
	broker      interfaces.BrokerService
	connections interfaces.ConnectionService
	logger      arbor.ILogger
}

// NewBrokerHandler creates a broker handler
func NewBrokerHandler(broker interfaces.BrokerService, connections interfaces.ConnectionService, logger arbor.ILogger) *BrokerHandler {
	return &BrokerHandler{
		broker:      broker,
		connections: connections,
		logger:      logger,
	}
}

type startSessionRequest struct {
	Platform string `json:"platform"`
}

// StartSessionHandler opens a human-operable remote login session.
// POST /api/sessions/interactive
func (h *BrokerHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	platform, ok := RequirePlatform(w, req.Platform)
	if !ok {
		return
	}

	session, err := h.broker.StartSession(r.Context(), tenantID, platform)
	if err != nil {
		h.logger.Error().Err(err).Str("platform", platform.String()).Msg("Failed to start interactive session")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

// SessionRoutesHandler dispatches /api/sessions/interactive/{id} and
// /api/sessions/interactive/{id}/capture
func (h *BrokerHandler) SessionRoutesHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/interactive/")
	if path == "" {
		WriteError(w, http.StatusNotFound, "session ID is required")
		return
	}

	if strings.HasSuffix(path, "/capture") {
		h.captureSession(w, r, strings.TrimSuffix(path, "/capture"))
		return
	}

	switch r.Method {
	case http.MethodDelete:
		h.closeSession(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// captureSession harvests the jar once the human has finished logging in,
// storing it as the tenant's session for the platform
func (h *BrokerHandler) captureSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	artifact, pending, err := h.broker.CaptureSession(r.Context(), tenantID, sessionID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if pending {
		WriteJSON(w, http.StatusAccepted, map[string]string{
			"status":  "pending",
			"message": "login not complete yet",
		})
		return
	}

	raw, err := artifact.Cookies.Serialize()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	record, err := h.connections.ImportCookies(r.Context(), tenantID, artifact.Platform, raw)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "captured",
		"connection": record,
	})
}

func (h *BrokerHandler) closeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}
	if err := h.broker.CloseSession(r.Context(), tenantID, sessionID); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "session closed")
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// ConnectionHandler exposes connection lifecycle operations: credentialed
// connect, cookie import, verification, listing and disconnect
type ConnectionHandler struct {
	connections interfaces.ConnectionService
	logger      arbor.ILogger
}

// NewConnectionHandler creates a connection handler
func NewConnectionHandler(connections interfaces.ConnectionService, logger arbor.ILogger) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		logger:      logger,
	}
}

type connectRequest struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ConnectHandler runs automated login and stores the captured session.
// POST /api/connections/connect
func (h *ConnectionHandler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	platform, ok := RequirePlatform(w, req.Platform)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.connections.Connect(r.Context(), tenantID, platform, models.StoredCredentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("platform", platform.String()).Msg("Connect failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	WriteJSON(w, status, result)
}

type importCookiesRequest struct {
	Platform string `json:"platform"`
	// Cookies accepts either a JSON array of cookie records or a flat
	// "name=value; name=value" header string
	Cookies json.RawMessage `json:"cookies"`
}

// ImportCookiesHandler ingests an externally captured cookie jar.
// POST /api/connections/cookies
func (h *ConnectionHandler) ImportCookiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req importCookiesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	platform, ok := RequirePlatform(w, req.Platform)
	if !ok {
		return
	}
	if len(req.Cookies) == 0 {
		WriteError(w, http.StatusBadRequest, "cookies field is required")
		return
	}

	raw := []byte(req.Cookies)
	// A JSON string value holds the header shape; unwrap it
	var headerShape string
	if err := json.Unmarshal(raw, &headerShape); err == nil {
		raw = []byte(headerShape)
	}

	record, err := h.connections.ImportCookies(r.Context(), tenantID, platform, raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// VerifyHandler probes the stored session against the platform.
// POST /api/connections/{platform}/verify
func (h *ConnectionHandler) VerifyHandler(w http.ResponseWriter, r *http.Request, rawPlatform string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}
	platform, ok := RequirePlatform(w, rawPlatform)
	if !ok {
		return
	}

	record, err := h.connections.Verify(r.Context(), tenantID, platform)
	if err != nil {
		h.logger.Error().Err(err).Str("platform", platform.String()).Msg("Verification failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// ListHandler returns the tenant's connections.
// GET /api/connections
func (h *ConnectionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	records, err := h.connections.List(r.Context(), tenantID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connections": records,
		"count":       len(records),
	})
}

// DisconnectHandler removes the stored session and connection record.
// DELETE /api/connections/{platform}
func (h *ConnectionHandler) DisconnectHandler(w http.ResponseWriter, r *http.Request, rawPlatform string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}
	platform, ok := RequirePlatform(w, rawPlatform)
	if !ok {
		return
	}

	if err := h.connections.Disconnect(r.Context(), tenantID, platform); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, "connection removed")
}

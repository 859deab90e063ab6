package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// PublishHandler exposes the publish pipeline
type PublishHandler struct {
	connections interfaces.ConnectionService
	logger      arbor.ILogger
}

// NewPublishHandler creates a publish handler
func NewPublishHandler(connections interfaces.ConnectionService, logger arbor.ILogger) *PublishHandler {
	return &PublishHandler{
		connections: connections,
		logger:      logger,
	}
}

type publishRequest struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
	BodyHTML string `json:"body_html"`
}

// PublishHandler submits a post through the stored session.
// POST /api/publish
func (h *PublishHandler) PublishPostHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	tenantID := RequireTenant(w, r)
	if tenantID == "" {
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	platform, ok := RequirePlatform(w, req.Platform)
	if !ok {
		return
	}
	if req.Title == "" && req.BodyHTML == "" {
		WriteError(w, http.StatusBadRequest, "title or body_html is required")
		return
	}

	result, err := h.connections.Publish(r.Context(), tenantID, platform, req.Title, req.BodyHTML)
	if err != nil {
		h.logger.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("platform", platform.String()).
			Msg("Publish failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = statusForFailure(result.ErrorCode)
	}
	WriteJSON(w, status, result)
}

// statusForFailure maps terminal failure classes to HTTP statuses
func statusForFailure(code models.FailureCode) int {
	switch code {
	case models.FailureMissingTarget, models.FailureSessionExpired, models.FailureReauthFailed:
		return http.StatusUnprocessableEntity
	case models.FailureElementNotFound, models.FailureSubmitUnconfirmed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

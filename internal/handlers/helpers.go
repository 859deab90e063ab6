package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/scribo/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// RequireTenant extracts the tenant identifier from the X-Tenant-ID header.
// Returns empty string after writing an error response when the header is
// absent.
func RequireTenant(w http.ResponseWriter, r *http.Request) string {
	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		tenantID = r.URL.Query().Get("tenant_id")
	}
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "X-Tenant-ID header is required")
		return ""
	}
	return tenantID
}

// RequirePlatform parses the platform out of a request value. Returns the
// zero platform after writing an error response on unknown values.
func RequirePlatform(w http.ResponseWriter, raw string) (models.Platform, bool) {
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return platform, true
}

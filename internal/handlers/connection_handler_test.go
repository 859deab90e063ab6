package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/models"
)

// recordedConnections serves canned records the way the connection service
// hands them to the HTTP layer, stored credentials still attached
type recordedConnections struct {
	records []*models.ConnectionRecord
}

func (s *recordedConnections) Connect(ctx context.Context, tenantID string, platform models.Platform, creds models.StoredCredentials) (*models.AuthResult, error) {
	return &models.AuthResult{Success: true}, nil
}

func (s *recordedConnections) ImportCookies(ctx context.Context, tenantID string, platform models.Platform, raw []byte) (*models.ConnectionRecord, error) {
	return s.records[0], nil
}

func (s *recordedConnections) Verify(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error) {
	return s.records[0], nil
}

func (s *recordedConnections) Publish(ctx context.Context, tenantID string, platform models.Platform, title, bodyHTML string) (*models.PublishResult, error) {
	return &models.PublishResult{Success: true}, nil
}

func (s *recordedConnections) List(ctx context.Context, tenantID string) ([]*models.ConnectionRecord, error) {
	return s.records, nil
}

func (s *recordedConnections) Disconnect(ctx context.Context, tenantID string, platform models.Platform) error {
	return nil
}

func secretRecord() *models.ConnectionRecord {
	return &models.ConnectionRecord{
		ID:       "conn_1",
		TenantID: "tenant-1",
		Platform: models.PlatformTumblr,
		Status:   models.ConnectionConnected,
		Credentials: &models.StoredCredentials{
			Username: "writer@example.com",
			Password: "hunter2",
		},
	}
}

func TestListHandler_NeverExposesCredentials(t *testing.T) {
	service := &recordedConnections{records: []*models.ConnectionRecord{secretRecord()}}
	handler := NewConnectionHandler(service, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	rec := httptest.NewRecorder()
	handler.ListHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "conn_1")
	assert.NotContains(t, body, "hunter2")
	assert.NotContains(t, body, "writer@example.com")
	assert.NotContains(t, body, "credentials")
}

func TestVerifyHandler_NeverExposesCredentials(t *testing.T) {
	service := &recordedConnections{records: []*models.ConnectionRecord{secretRecord()}}
	handler := NewConnectionHandler(service, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/connections/tumblr/verify", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	rec := httptest.NewRecorder()
	handler.VerifyHandler(rec, req, "tumblr")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "hunter2")
	assert.NotContains(t, body, "credentials")
}

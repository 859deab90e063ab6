package models

import "time"

// ConnectionStatus is the operational state of a platform connection.
// Only engine verification and publish outcomes set it.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionConnected    ConnectionStatus = "CONNECTED"
	ConnectionError        ConnectionStatus = "ERROR"
)

// ConnectionRecord is the durable per-tenant-per-platform record wrapping a
// session artifact plus operational state. At most one record exists per
// (tenant, platform) pair.
type ConnectionRecord struct {
	ID       string           `json:"id"`
	TenantID string           `json:"tenant_id"`
	Platform Platform         `json:"platform"`
	Status   ConnectionStatus `json:"status"`
	Artifact *SessionArtifact `json:"artifact,omitempty"`
	// Credentials never leave the process; the HTTP surface serializes
	// records straight to callers
	Credentials   *StoredCredentials `json:"-"`
	LastCheckedAt time.Time          `json:"last_checked_at"`
	LastError     string             `json:"last_error,omitempty"`
	CreatedAt     int64              `json:"created_at"`
	UpdatedAt     int64              `json:"updated_at"`
}

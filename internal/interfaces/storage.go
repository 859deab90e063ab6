package interfaces

import (
	"context"

	"github.com/ternarybob/scribo/internal/models"
)

// SessionStorage persists session artifacts per (tenant, platform) pair.
// Cookie jars are encrypted at rest; artifacts are replaced wholesale, never
// mutated in place.
type SessionStorage interface {
	SaveArtifact(ctx context.Context, tenantID string, artifact *models.SessionArtifact) error
	GetArtifact(ctx context.Context, tenantID string, platform models.Platform) (*models.SessionArtifact, error)
	DeleteArtifact(ctx context.Context, tenantID string, platform models.Platform) error
}

// ConnectionStorage persists the durable per-tenant-per-platform connection
// records. At most one record exists per (tenant, platform).
type ConnectionStorage interface {
	UpsertConnection(ctx context.Context, record *models.ConnectionRecord) error
	GetConnection(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error)
	ListConnections(ctx context.Context, tenantID string) ([]*models.ConnectionRecord, error)
	DeleteConnection(ctx context.Context, tenantID string, platform models.Platform) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	SessionStorage() SessionStorage
	ConnectionStorage() ConnectionStorage
	Close() error
}

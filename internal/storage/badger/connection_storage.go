package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// connectionRecord is the on-disk shape of a connection. Stored credentials
// are sealed; the session artifact lives in SessionStorage, not here.
type connectionRecord struct {
	ID            string `badgerhold:"key"` // tenant|platform
	ConnectionID  string
	TenantID      string `badgerhold:"index"`
	Platform      string
	Status        string
	SealedCreds   []byte
	LastCheckedAt time.Time
	LastError     string
	CreatedAt     int64
	UpdatedAt     int64
}

// ConnectionStorage implements the ConnectionStorage interface for Badger
type ConnectionStorage struct {
	db     *BadgerDB
	sealer *Sealer
	logger arbor.ILogger
}

// NewConnectionStorage creates a new ConnectionStorage instance
func NewConnectionStorage(db *BadgerDB, sealer *Sealer, logger arbor.ILogger) interfaces.ConnectionStorage {
	return &ConnectionStorage{
		db:     db,
		sealer: sealer,
		logger: logger,
	}
}

func (s *ConnectionStorage) UpsertConnection(ctx context.Context, record *models.ConnectionRecord) error {
	if record.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if record.Platform == "" {
		return fmt.Errorf("platform is required")
	}

	now := time.Now().Unix()
	if record.CreatedAt == 0 {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	var sealedCreds []byte
	if record.Credentials != nil {
		raw, err := json.Marshal(record.Credentials)
		if err != nil {
			return fmt.Errorf("failed to marshal credentials: %w", err)
		}
		sealedCreds, err = s.sealer.Seal(raw)
		if err != nil {
			return fmt.Errorf("failed to seal credentials: %w", err)
		}
	}

	stored := &connectionRecord{
		ID:            sessionKey(record.TenantID, record.Platform),
		ConnectionID:  record.ID,
		TenantID:      record.TenantID,
		Platform:      record.Platform.String(),
		Status:        string(record.Status),
		SealedCreds:   sealedCreds,
		LastCheckedAt: record.LastCheckedAt,
		LastError:     record.LastError,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}

	if err := s.db.Store().Upsert(stored.ID, stored); err != nil {
		return fmt.Errorf("failed to store connection record: %w", err)
	}
	return nil
}

func (s *ConnectionStorage) GetConnection(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error) {
	var stored connectionRecord
	if err := s.db.Store().Get(sessionKey(tenantID, platform), &stored); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection record: %w", err)
	}
	return s.toModel(&stored)
}

func (s *ConnectionStorage) ListConnections(ctx context.Context, tenantID string) ([]*models.ConnectionRecord, error) {
	var stored []connectionRecord
	if err := s.db.Store().Find(&stored, badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID")); err != nil {
		return nil, fmt.Errorf("failed to list connection records: %w", err)
	}

	records := make([]*models.ConnectionRecord, 0, len(stored))
	for i := range stored {
		record, err := s.toModel(&stored[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ConnectionStorage) DeleteConnection(ctx context.Context, tenantID string, platform models.Platform) error {
	if err := s.db.Store().Delete(sessionKey(tenantID, platform), &connectionRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete connection record: %w", err)
	}
	return nil
}

func (s *ConnectionStorage) toModel(stored *connectionRecord) (*models.ConnectionRecord, error) {
	record := &models.ConnectionRecord{
		ID:            stored.ConnectionID,
		TenantID:      stored.TenantID,
		Platform:      models.Platform(stored.Platform),
		Status:        models.ConnectionStatus(stored.Status),
		LastCheckedAt: stored.LastCheckedAt,
		LastError:     stored.LastError,
		CreatedAt:     stored.CreatedAt,
		UpdatedAt:     stored.UpdatedAt,
	}

	if len(stored.SealedCreds) > 0 {
		raw, err := s.sealer.Open(stored.SealedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to unseal credentials: %w", err)
		}
		var creds models.StoredCredentials
		if err := json.Unmarshal(raw, &creds); err != nil {
			return nil, fmt.Errorf("stored credentials are corrupt: %w", err)
		}
		record.Credentials = &creds
	}

	return record, nil
}

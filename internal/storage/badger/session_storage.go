package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// sessionRecord is the on-disk shape of a session artifact. The cookie jar
// is sealed before it is stored; only the jar is sensitive.
type sessionRecord struct {
	ID         string `badgerhold:"key"` // tenant|platform
	TenantID   string
	Platform   string
	SealedJar  []byte
	Account    *models.AccountInfo
	CapturedAt time.Time
	UpdatedAt  int64
}

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	sealer *Sealer
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, sealer *Sealer, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		sealer: sealer,
		logger: logger,
	}
}

func sessionKey(tenantID string, platform models.Platform) string {
	return tenantID + "|" + platform.String()
}

// SaveArtifact replaces the stored artifact wholesale. Partial jar updates
// are not supported on purpose: a stored jar is either the full capture from
// one browser context or absent.
func (s *SessionStorage) SaveArtifact(ctx context.Context, tenantID string, artifact *models.SessionArtifact) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if !artifact.Valid() {
		return fmt.Errorf("refusing to store invalid session artifact (empty jar or missing platform)")
	}

	raw, err := artifact.Cookies.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize cookie jar: %w", err)
	}

	sealed, err := s.sealer.Seal(raw)
	if err != nil {
		return fmt.Errorf("failed to seal cookie jar: %w", err)
	}

	record := &sessionRecord{
		ID:         sessionKey(tenantID, artifact.Platform),
		TenantID:   tenantID,
		Platform:   artifact.Platform.String(),
		SealedJar:  sealed,
		Account:    artifact.Account,
		CapturedAt: artifact.CapturedAt,
		UpdatedAt:  time.Now().Unix(),
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to store session artifact: %w", err)
	}

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Str("platform", artifact.Platform.String()).
		Int("cookie_count", len(artifact.Cookies)).
		Msg("Session artifact stored")

	return nil
}

func (s *SessionStorage) GetArtifact(ctx context.Context, tenantID string, platform models.Platform) (*models.SessionArtifact, error) {
	var record sessionRecord
	if err := s.db.Store().Get(sessionKey(tenantID, platform), &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session artifact: %w", err)
	}

	raw, err := s.sealer.Open(record.SealedJar)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal cookie jar: %w", err)
	}

	jar, err := models.ParseCookieJar(raw)
	if err != nil {
		return nil, fmt.Errorf("stored cookie jar is corrupt: %w", err)
	}

	return &models.SessionArtifact{
		Platform:   platform,
		Cookies:    jar,
		Account:    record.Account,
		CapturedAt: record.CapturedAt,
	}, nil
}

func (s *SessionStorage) DeleteArtifact(ctx context.Context, tenantID string, platform models.Platform) error {
	if err := s.db.Store().Delete(sessionKey(tenantID, platform), &sessionRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session artifact: %w", err)
	}
	return nil
}

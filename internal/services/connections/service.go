package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// Service owns ConnectionRecord state transitions and is the engine-facing
// entrypoint behind the HTTP surface. Every operation is scoped to the
// tenant it was given; the storage key embeds the tenant so cross-tenant
// reads are structurally impossible.
type Service struct {
	storage  interfaces.StorageManager
	browser  interfaces.BrowserManager
	registry *platforms.Registry
	auth     interfaces.AuthService
	publish  interfaces.PublishService
	events   interfaces.EventService
	logger   arbor.ILogger
}

// NewService creates a connection service
func NewService(storage interfaces.StorageManager, browser interfaces.BrowserManager, registry *platforms.Registry, auth interfaces.AuthService, publish interfaces.PublishService, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		browser:  browser,
		registry: registry,
		auth:     auth,
		publish:  publish,
		events:   events,
		logger:   logger,
	}
}

// Connect runs automated login and, on success, stores the captured session
// and credentials under a CONNECTED record. Terminal login failures are
// recorded on the connection, not returned as errors.
func (s *Service) Connect(ctx context.Context, tenantID string, platform models.Platform, creds models.StoredCredentials) (*models.AuthResult, error) {
	if err := validateScope(tenantID, platform); err != nil {
		return nil, err
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	result, err := s.auth.Login(ctx, platform, creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}

	record, err := s.recordFor(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	record.Credentials = &creds

	if result.Success {
		if err := s.storage.SessionStorage().SaveArtifact(ctx, tenantID, result.Artifact); err != nil {
			return nil, err
		}
		record.Status = models.ConnectionConnected
		record.LastError = ""
	} else {
		record.Status = models.ConnectionError
		record.LastError = result.Message
	}
	record.LastCheckedAt = time.Now()

	if err := s.storage.ConnectionStorage().UpsertConnection(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tenant_id", tenantID).
		Str("platform", platform.String()).
		Str("status", string(record.Status)).
		Msg("Connect attempt recorded")

	return result, nil
}

// ImportCookies ingests an externally captured cookie jar (JSON array or
// flat header string) and stores it as the connection's session
func (s *Service) ImportCookies(ctx context.Context, tenantID string, platform models.Platform, raw []byte) (*models.ConnectionRecord, error) {
	if err := validateScope(tenantID, platform); err != nil {
		return nil, err
	}

	jar, err := models.ParseCookieJar(raw)
	if err != nil {
		return nil, fmt.Errorf("cookie import rejected: %w", err)
	}

	artifact := models.NewSessionArtifact(platform, jar, nil)
	if err := s.storage.SessionStorage().SaveArtifact(ctx, tenantID, artifact); err != nil {
		return nil, err
	}

	record, err := s.recordFor(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	record.Status = models.ConnectionConnected
	record.LastError = ""

	if err := s.storage.ConnectionStorage().UpsertConnection(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tenant_id", tenantID).
		Str("platform", platform.String()).
		Int("cookie_count", len(jar)).
		Msg("Cookie jar imported")

	return s.withArtifact(record, artifact), nil
}

// Verify probes the stored session against the platform: inject the jar in
// an isolated browser, open the post-login surface and classify the result.
// A verified session is re-captured so rotated tokens are kept fresh.
func (s *Service) Verify(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error) {
	if err := validateScope(tenantID, platform); err != nil {
		return nil, err
	}

	record, err := s.recordFor(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}

	artifact, err := s.storage.SessionStorage().GetArtifact(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		record.Status = models.ConnectionDisconnected
		record.LastError = "no stored session"
		record.LastCheckedAt = time.Now()
		if err := s.storage.ConnectionStorage().UpsertConnection(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	def, err := s.registry.Definition(platform)
	if err != nil {
		return nil, err
	}
	classifier, err := s.registry.Classifier(platform)
	if err != nil {
		return nil, err
	}

	var verified bool
	var probeDetail string
	var refreshed *models.SessionArtifact

	scope := interfaces.BrowserScope{Platform: platform, Isolated: true}
	err = s.browser.WithPage(ctx, scope, func(ctx context.Context, page interfaces.Page) error {
		if err := page.SetCookies(ctx, artifact.Cookies, def.CookieDomain); err != nil {
			return err
		}
		if err := page.Navigate(ctx, def.PostLoginURL); err != nil {
			return err
		}

		location, err := page.Location(ctx)
		if err != nil {
			return err
		}
		snapshot, err := page.Snapshot(ctx)
		if err != nil {
			return err
		}

		c := classifier.Classify(location, snapshot)
		verified = c.Outcome == platforms.OutcomeAuthenticated
		if !verified {
			probeDetail = fmt.Sprintf("session probe classified as %s at %s", c.Outcome, location)
			return nil
		}

		if jar, err := page.Cookies(ctx); err == nil && jar.Valid() {
			refreshed = models.NewSessionArtifact(platform, jar, artifact.Account)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verification probe failed: %w", err)
	}

	record.LastCheckedAt = time.Now()
	if verified {
		record.Status = models.ConnectionConnected
		record.LastError = ""
		if refreshed != nil {
			if err := s.storage.SessionStorage().SaveArtifact(ctx, tenantID, refreshed); err != nil {
				return nil, err
			}
			artifact = refreshed
		}
	} else {
		record.Status = models.ConnectionError
		record.LastError = probeDetail
	}

	if err := s.storage.ConnectionStorage().UpsertConnection(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, interfaces.EventConnectionChecked, record)

	return s.withArtifact(record, artifact), nil
}

// Publish runs the pipeline against the stored session and persists the
// refreshed jar it hands back, on success and on failure alike
func (s *Service) Publish(ctx context.Context, tenantID string, platform models.Platform, title, bodyHTML string) (*models.PublishResult, error) {
	if err := validateScope(tenantID, platform); err != nil {
		return nil, err
	}

	record, err := s.recordFor(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}

	artifact, err := s.storage.SessionStorage().GetArtifact(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("no stored session for %s; connect or import cookies first", platform)
	}

	result, err := s.publish.Publish(ctx, &models.PublishRequest{
		TenantID:    tenantID,
		Platform:    platform,
		Artifact:    artifact,
		Credentials: record.Credentials,
		Title:       title,
		BodyHTML:    bodyHTML,
	})
	if err != nil {
		return nil, err
	}

	if result.RefreshedSession != nil {
		if err := s.storage.SessionStorage().SaveArtifact(ctx, tenantID, result.RefreshedSession); err != nil {
			s.logger.Warn().Err(err).
				Str("tenant_id", tenantID).
				Str("platform", platform.String()).
				Msg("Failed to persist refreshed session after publish")
		}
	}

	record.LastCheckedAt = time.Now()
	if result.Success {
		record.Status = models.ConnectionConnected
		record.LastError = ""
	} else {
		record.LastError = result.Error
		switch result.ErrorCode {
		case models.FailureSessionExpired, models.FailureReauthFailed:
			// Only session failures flip the connection itself; a drifted
			// selector or an unconfirmed submit says nothing about the jar
			record.Status = models.ConnectionError
		}
	}
	if err := s.storage.ConnectionStorage().UpsertConnection(ctx, record); err != nil {
		return nil, err
	}

	return result, nil
}

// List returns the tenant's connection records
func (s *Service) List(ctx context.Context, tenantID string) ([]*models.ConnectionRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	return s.storage.ConnectionStorage().ListConnections(ctx, tenantID)
}

// Disconnect removes the stored session and the connection record. Secrets
// are deleted outright; disconnecting an unknown connection is a no-op.
func (s *Service) Disconnect(ctx context.Context, tenantID string, platform models.Platform) error {
	if err := validateScope(tenantID, platform); err != nil {
		return err
	}

	if err := s.storage.SessionStorage().DeleteArtifact(ctx, tenantID, platform); err != nil {
		return err
	}
	if err := s.storage.ConnectionStorage().DeleteConnection(ctx, tenantID, platform); err != nil {
		return err
	}

	s.logger.Info().
		Str("tenant_id", tenantID).
		Str("platform", platform.String()).
		Msg("Connection removed")

	return nil
}

// recordFor loads the existing record or starts a fresh one
func (s *Service) recordFor(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error) {
	record, err := s.storage.ConnectionStorage().GetConnection(ctx, tenantID, platform)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &models.ConnectionRecord{
			ID:       common.NewConnectionID(),
			TenantID: tenantID,
			Platform: platform,
			Status:   models.ConnectionDisconnected,
		}
	}
	return record, nil
}

// withArtifact attaches the artifact for API responses without letting it
// near the connection store
func (s *Service) withArtifact(record *models.ConnectionRecord, artifact *models.SessionArtifact) *models.ConnectionRecord {
	out := *record
	out.Artifact = artifact
	return &out
}

func (s *Service) publishEvent(ctx context.Context, eventType interfaces.EventType, record *models.ConnectionRecord) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"tenant_id": record.TenantID,
			"platform":  record.Platform.String(),
			"status":    string(record.Status),
		},
	})
}

func validateScope(tenantID string, platform models.Platform) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if _, err := models.ParsePlatform(platform.String()); err != nil {
		return err
	}
	return nil
}

var _ interfaces.ConnectionService = (*Service)(nil)

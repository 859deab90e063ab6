package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// activeSession pairs the public session record with its live browser handle
type activeSession struct {
	session *models.InteractiveSession
	handle  *interfaces.InteractiveHandle
}

// Service brokers human-operated remote login sessions for challenges
// automated login cannot pass (CAPTCHA, second factor). Each session owns a
// long-lived browser with a viewable remote endpoint; sessions past their
// TTL are reaped by a cron sweep so abandoned browsers never pile up.
type Service struct {
	browser  interfaces.BrowserManager
	registry *platforms.Registry
	events   interfaces.EventService
	config   common.BrokerConfig
	logger   arbor.ILogger

	sessions map[string]*activeSession
	reserved int
	mu       sync.Mutex
	cron     *cron.Cron
}

// NewService creates a broker and starts its reaping sweep
func NewService(browser interfaces.BrowserManager, registry *platforms.Registry, events interfaces.EventService, config common.BrokerConfig, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		browser:  browser,
		registry: registry,
		events:   events,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*activeSession),
		cron:     cron.New(),
	}

	if _, err := s.cron.AddFunc(config.SweepSchedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid broker sweep schedule %q: %w", config.SweepSchedule, err)
	}
	s.cron.Start()

	return s, nil
}

// StartSession opens a remote browser on the platform's login page and hands
// back a viewable session
func (s *Service) StartSession(ctx context.Context, tenantID string, platform models.Platform) (*models.InteractiveSession, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	def, err := s.registry.Definition(platform)
	if err != nil {
		return nil, err
	}

	// The slot is reserved before the browser launch so concurrent starts
	// cannot overshoot the limit while one of them is still opening.
	s.mu.Lock()
	if len(s.sessions)+s.reserved >= s.config.MaxSessions {
		s.mu.Unlock()
		return nil, fmt.Errorf("interactive session limit reached (%d active)", s.config.MaxSessions)
	}
	s.reserved++
	s.mu.Unlock()

	handle, err := s.browser.OpenInteractive(ctx, platform)
	if err != nil {
		s.unreserve()
		return nil, err
	}

	if err := handle.Page.Navigate(ctx, def.LoginURL); err != nil {
		s.unreserve()
		handle.Close()
		return nil, fmt.Errorf("failed to open login page for interactive session: %w", err)
	}

	now := time.Now()
	session := &models.InteractiveSession{
		ID:          "isess_" + uuid.New().String(),
		TenantID:    tenantID,
		Platform:    platform,
		LiveViewURL: handle.LiveViewURL,
		State:       models.InteractivePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.SessionTTLDuration()),
	}

	s.mu.Lock()
	s.reserved--
	s.sessions[session.ID] = &activeSession{session: session, handle: handle}
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", session.ID).
		Str("tenant_id", tenantID).
		Str("platform", platform.String()).
		Str("live_view_url", session.LiveViewURL).
		Msg("Interactive session started")

	s.publishEvent(ctx, interfaces.EventInteractiveOpened, session)
	return session, nil
}

// CaptureSession checks whether the human has finished logging in. Returns
// (artifact, false, nil) on completion, closing the session, or
// (nil, true, nil) while the login is still pending. Only the tenant that
// started the session may capture it; a mismatch is indistinguishable from
// an unknown session.
func (s *Service) CaptureSession(ctx context.Context, tenantID, sessionID string) (*models.SessionArtifact, bool, error) {
	s.mu.Lock()
	active, ok := s.sessions[sessionID]
	if ok && active.session.TenantID != tenantID {
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, fmt.Errorf("no such interactive session: %s", sessionID)
	}

	classifier, err := s.registry.Classifier(active.session.Platform)
	if err != nil {
		return nil, false, err
	}

	location, err := active.handle.Page.Location(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read interactive session location: %w", err)
	}
	snapshot, err := active.handle.Page.Snapshot(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to capture interactive session snapshot: %w", err)
	}

	if c := classifier.Classify(location, snapshot); c.Outcome != platforms.OutcomeAuthenticated {
		s.logger.Debug().
			Str("session_id", sessionID).
			Str("outcome", string(c.Outcome)).
			Str("location", location).
			Msg("Interactive session still pending")
		return nil, true, nil
	}

	jar, err := active.handle.Page.Cookies(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to capture interactive session cookies: %w", err)
	}
	if !jar.Valid() {
		return nil, true, nil
	}

	artifact := models.NewSessionArtifact(active.session.Platform, jar, nil)

	active.session.State = models.InteractiveCaptured
	s.remove(sessionID)
	active.handle.Close()

	s.logger.Info().
		Str("session_id", sessionID).
		Str("platform", active.session.Platform.String()).
		Int("cookie_count", len(jar)).
		Msg("Interactive session captured")

	s.publishEvent(ctx, interfaces.EventSessionCaptured, active.session)
	return artifact, false, nil
}

// CloseSession releases a session's browser. Closing an unknown or already
// closed session is a no-op, and so is closing a session that belongs to a
// different tenant; the session stays live for its owner.
func (s *Service) CloseSession(ctx context.Context, tenantID, sessionID string) error {
	s.mu.Lock()
	active, ok := s.sessions[sessionID]
	if ok && active.session.TenantID != tenantID {
		ok = false
	}
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	active.session.State = models.InteractiveClosed
	active.handle.Close()

	s.logger.Info().
		Str("session_id", sessionID).
		Msg("Interactive session closed")
	return nil
}

// ActiveSessions reports current broker occupancy
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop halts the sweep and closes every remaining session
func (s *Service) Stop() {
	s.cron.Stop()

	s.mu.Lock()
	remaining := make([]*activeSession, 0, len(s.sessions))
	for id, active := range s.sessions {
		remaining = append(remaining, active)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, active := range remaining {
		active.session.State = models.InteractiveClosed
		active.handle.Close()
	}
}

// sweep reaps sessions past their TTL
func (s *Service) sweep() {
	now := time.Now()

	s.mu.Lock()
	var expired []*activeSession
	for id, active := range s.sessions {
		if now.After(active.session.ExpiresAt) {
			expired = append(expired, active)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, active := range expired {
		active.session.State = models.InteractiveClosed
		active.handle.Close()
		s.logger.Info().
			Str("session_id", active.session.ID).
			Str("platform", active.session.Platform.String()).
			Msg("Interactive session expired, browser reclaimed")
		s.publishEvent(context.Background(), interfaces.EventInteractiveExpired, active.session)
	}
}

func (s *Service) remove(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Service) unreserve() {
	s.mu.Lock()
	s.reserved--
	s.mu.Unlock()
}

func (s *Service) publishEvent(ctx context.Context, eventType interfaces.EventType, session *models.InteractiveSession) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"session_id": session.ID,
			"tenant_id":  session.TenantID,
			"platform":   session.Platform.String(),
			"state":      string(session.State),
		},
	})
}

var _ interfaces.BrokerService = (*Service)(nil)

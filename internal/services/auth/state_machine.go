package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// Service drives the automated login protocol as an explicit state machine.
// Expected failure states (wrong password, challenge pages) come back as
// terminal AuthResults, never as errors; errors are reserved for
// infrastructure faults like a browser that will not launch.
type Service struct {
	browser  interfaces.BrowserManager
	registry *platforms.Registry
	events   interfaces.EventService
	logger   arbor.ILogger
}

// NewService creates an authentication service
func NewService(browser interfaces.BrowserManager, registry *platforms.Registry, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		browser:  browser,
		registry: registry,
		events:   events,
		logger:   logger,
	}
}

// Login runs the full login protocol in a dedicated isolated browser
func (s *Service) Login(ctx context.Context, platform models.Platform, username, password string) (*models.AuthResult, error) {
	var result *models.AuthResult

	scope := interfaces.BrowserScope{Platform: platform, Isolated: true}
	err := s.browser.WithPage(ctx, scope, func(ctx context.Context, page interfaces.Page) error {
		var flowErr error
		result, flowErr = s.PerformLogin(ctx, page, platform, username, password)
		return flowErr
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, platform, result)
	return result, nil
}

// PerformLogin runs the login protocol on a page the caller already owns.
// The publish pipeline uses this for its single automatic re-login so the
// refreshed session lands in the same browser that will go on to publish.
func (s *Service) PerformLogin(ctx context.Context, page interfaces.Page, platform models.Platform, username, password string) (*models.AuthResult, error) {
	def, err := s.registry.Definition(platform)
	if err != nil {
		return nil, err
	}
	classifier, err := s.registry.Classifier(platform)
	if err != nil {
		return nil, err
	}

	state := models.AuthNotAuthenticated
	s.logState(platform, state, "Starting login")

	if err := page.Navigate(ctx, def.LoginURL); err != nil {
		return nil, fmt.Errorf("failed to reach login page: %w", err)
	}

	if err := s.enterCredentials(ctx, page, def, username, password); err != nil {
		if errors.Is(err, interfaces.ErrNoSelectorMatched) {
			s.logDrift(ctx, page, platform, "login form")
		}
		return nil, err
	}

	state = models.AuthSubmittingCredentials
	s.logState(platform, state, "Credentials submitted")

	submitSel, err := page.Resolve(ctx, def.LoginSubmit)
	if err != nil {
		s.logDrift(ctx, page, platform, "login submit")
		return nil, err
	}
	if err := page.Click(ctx, submitSel); err != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", err)
	}

	classification, location, err := s.classify(ctx, page, classifier)
	if err != nil {
		return nil, err
	}

	switch classification.Outcome {
	case platforms.OutcomeCaptcha:
		state = models.AuthChallengeDetected
		s.logState(platform, state, "CAPTCHA challenge detected")
		return &models.AuthResult{
			State:     state,
			Challenge: models.ChallengeCaptcha,
			Message:   "platform presented a CAPTCHA; use an interactive session to log in",
		}, nil

	case platforms.OutcomeSecondFactor:
		state = models.AuthChallengeDetected
		s.logState(platform, state, "Second factor challenge detected")
		return &models.AuthResult{
			State:     state,
			Challenge: models.ChallengeSecondFactor,
			Message:   "platform requires a second factor; use an interactive session to log in",
		}, nil

	case platforms.OutcomeCredentialErr:
		state = models.AuthCredentialRejected
		s.logState(platform, state, "Credentials rejected")
		message := classification.ErrorText
		if message == "" {
			message = "platform rejected the credentials"
		}
		return &models.AuthResult{State: state, Message: message}, nil

	case platforms.OutcomeLoginPage:
		// Still on the login surface with no recognizable error marker.
		// Treated as rejection: the submission clearly did not take.
		state = models.AuthCredentialRejected
		s.logState(platform, state, "Still on login page after submission")
		return &models.AuthResult{
			State:   state,
			Message: fmt.Sprintf("login did not advance past %s", location),
		}, nil
	}

	// Authenticated. Navigate to the post-login surface before capturing the
	// jar: platforms set additional tokens during that navigation and a jar
	// captured too early is incomplete.
	if err := page.Navigate(ctx, def.PostLoginURL); err != nil {
		return nil, fmt.Errorf("failed to reach post-login page: %w", err)
	}

	jar, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture session cookies: %w", err)
	}
	if !jar.Valid() {
		return nil, fmt.Errorf("login succeeded but no cookies were captured")
	}

	artifact := models.NewSessionArtifact(platform, jar, s.collectAccountInfo(ctx, page, def))

	state = models.AuthAuthenticated
	s.logger.Info().
		Str("platform", platform.String()).
		Str("state", string(state)).
		Int("cookie_count", len(jar)).
		Msg("Login complete")

	return &models.AuthResult{
		State:    state,
		Success:  true,
		Message:  "authenticated",
		Account:  artifact.Account,
		Artifact: artifact,
	}, nil
}

// enterCredentials fills the login form, handling both single-page and
// two-step (username first, then password) flows
func (s *Service) enterCredentials(ctx context.Context, page interfaces.Page, def *platforms.Definition, username, password string) error {
	userSel, err := page.Resolve(ctx, def.UsernameField)
	if err != nil {
		return err
	}
	if err := page.ClearAndType(ctx, userSel, username); err != nil {
		return err
	}

	if len(def.UsernameNext) > 0 {
		nextSel, err := page.Resolve(ctx, def.UsernameNext)
		if err != nil {
			return err
		}
		if err := page.Click(ctx, nextSel); err != nil {
			return err
		}
	}

	passSel, err := page.Resolve(ctx, def.PasswordField)
	if err != nil {
		return err
	}
	return page.ClearAndType(ctx, passSel, password)
}

// classify reads the current location and snapshot and runs the platform's
// outcome classifier
func (s *Service) classify(ctx context.Context, page interfaces.Page, classifier platforms.Classifier) (platforms.Classification, string, error) {
	location, err := page.Location(ctx)
	if err != nil {
		return platforms.Classification{}, "", fmt.Errorf("failed to read post-submit location: %w", err)
	}
	snapshot, err := page.Snapshot(ctx)
	if err != nil {
		return platforms.Classification{}, "", fmt.Errorf("failed to capture post-submit snapshot: %w", err)
	}
	return classifier.Classify(location, snapshot), location, nil
}

// collectAccountInfo scrapes display name and canonical URL when the
// definition knows where to find them. Both are best effort; a missing
// element never fails the login.
func (s *Service) collectAccountInfo(ctx context.Context, page interfaces.Page, def *platforms.Definition) *models.AccountInfo {
	info := &models.AccountInfo{}

	if def.DisplayNameSelector != "" {
		if name, err := page.Text(ctx, def.DisplayNameSelector); err == nil {
			info.DisplayName = name
		}
	}
	if def.ProfileURLSelector != "" {
		if href, err := page.AttrHref(ctx, def.ProfileURLSelector); err == nil {
			info.CanonicalURL = href
		}
	}

	if info.DisplayName == "" && info.CanonicalURL == "" {
		return nil
	}
	return info
}

// logDrift records the evidence needed to fix a selector set after UI drift
func (s *Service) logDrift(ctx context.Context, page interfaces.Page, platform models.Platform, surface string) {
	location, _ := page.Location(ctx)
	snapshot, _ := page.Snapshot(ctx)
	if len(snapshot) > 2048 {
		snapshot = snapshot[:2048]
	}
	s.logger.Warn().
		Str("platform", platform.String()).
		Str("surface", surface).
		Str("location", location).
		Str("snapshot", snapshot).
		Msg("No selector strategy matched, selector set likely stale")
}

func (s *Service) logState(platform models.Platform, state models.AuthState, msg string) {
	s.logger.Debug().
		Str("platform", platform.String()).
		Str("state", string(state)).
		Msg(msg)
}

func (s *Service) publishEvent(ctx context.Context, platform models.Platform, result *models.AuthResult) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventAuthCompleted,
		Payload: map[string]interface{}{
			"platform": platform.String(),
			"state":    string(result.State),
			"success":  result.Success,
		},
	})
}

var _ interfaces.AuthService = (*Service)(nil)

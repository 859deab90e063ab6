package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
	"github.com/ternarybob/scribo/internal/services/auth"
)

// settleDelay gives the platform time to process a submission before the
// location is inspected
const settleDelay = 2 * time.Second

// Pipeline drives a single post submission end to end: session injection,
// expiry recovery, content entry through cascading selectors, submission and
// verification. Every run gets its own isolated browser and every run
// returns the refreshed cookie jar, success or not, so rotated session
// tokens are never lost.
type Pipeline struct {
	browser         interfaces.BrowserManager
	registry        *platforms.Registry
	authService     *auth.Service
	events          interfaces.EventService
	logger          arbor.ILogger
	infraRetryLimit int
}

// NewPipeline creates a publish pipeline
func NewPipeline(browser interfaces.BrowserManager, registry *platforms.Registry, authService *auth.Service, events interfaces.EventService, logger arbor.ILogger, infraRetryLimit int) *Pipeline {
	return &Pipeline{
		browser:         browser,
		registry:        registry,
		authService:     authService,
		events:          events,
		logger:          logger,
		infraRetryLimit: infraRetryLimit,
	}
}

// Publish runs the submission, retrying the whole operation once per
// configured retry when the failure is an infrastructure fault. All other
// failure classes are terminal on the first pass.
func (p *Pipeline) Publish(ctx context.Context, req *models.PublishRequest) (*models.PublishResult, error) {
	if req.Artifact == nil || !req.Artifact.Valid() {
		return nil, fmt.Errorf("publish requires a session artifact with a non-empty cookie jar")
	}
	if req.Title == "" && req.BodyHTML == "" {
		return nil, fmt.Errorf("publish requires a title or a body")
	}

	p.publishEvent(ctx, interfaces.EventPublishStarted, req, nil)

	// The re-login budget is one per Publish call, shared across
	// infrastructure retries. Each retry goes in with the freshest jar the
	// previous run captured, never the original artifact.
	attemptReq := *req
	var reloggedIn bool

	var result *models.PublishResult
	var err error
	for attempt := 0; ; attempt++ {
		result, err = p.run(ctx, &attemptReq, &reloggedIn)
		if err != nil {
			return nil, err
		}
		if result.RefreshedSession != nil {
			attemptReq.Artifact = result.RefreshedSession
		}
		if result.Success || !result.ErrorCode.Retryable() || attempt >= p.infraRetryLimit {
			break
		}
		p.logger.Warn().
			Str("platform", req.Platform.String()).
			Str("error", result.Error).
			Int("attempt", attempt+1).
			Msg("Infrastructure failure, retrying publish")
	}

	p.publishEvent(ctx, interfaces.EventPublishCompleted, req, result)
	return result, nil
}

// run executes one full attempt in a fresh isolated browser
func (p *Pipeline) run(ctx context.Context, req *models.PublishRequest, reloggedIn *bool) (*models.PublishResult, error) {
	def, err := p.registry.Definition(req.Platform)
	if err != nil {
		return nil, err
	}
	classifier, err := p.registry.Classifier(req.Platform)
	if err != nil {
		return nil, err
	}

	result := &models.PublishResult{}

	scope := interfaces.BrowserScope{Platform: req.Platform, Isolated: true}
	runErr := p.browser.WithPage(ctx, scope, func(ctx context.Context, page interfaces.Page) error {
		// The jar is re-captured on every exit path below, so token rotation
		// performed by the platform mid-operation survives even failed runs.
		defer p.captureRefreshedSession(ctx, page, req.Platform, result)

		if err := page.SetCookies(ctx, req.Artifact.Cookies, def.CookieDomain); err != nil {
			return fmt.Errorf("failed to inject session cookies: %w", err)
		}
		if err := page.Navigate(ctx, def.ComposeURL); err != nil {
			result.Fail(models.FailureInfrastructure, fmt.Sprintf("failed to reach editor: %v", err))
			return nil
		}

		classification, location, err := p.classify(ctx, page, classifier)
		if err != nil {
			result.Fail(models.FailureInfrastructure, err.Error())
			return nil
		}

		switch classification.Outcome {
		case platforms.OutcomeMissingTarget:
			result.Fail(models.FailureMissingTarget, "account has no destination to publish to")
			return nil

		case platforms.OutcomeLoginPage, platforms.OutcomeCaptcha, platforms.OutcomeSecondFactor, platforms.OutcomeCredentialErr:
			// Session rejected. One automatic re-login, then the editor is
			// approached again in the same browser.
			if done := p.recoverSession(ctx, page, req, def, reloggedIn, result); done {
				return nil
			}
			if err := page.Navigate(ctx, def.ComposeURL); err != nil {
				result.Fail(models.FailureInfrastructure, fmt.Sprintf("failed to reach editor after re-login: %v", err))
				return nil
			}
			classification, location, err = p.classify(ctx, page, classifier)
			if err != nil {
				result.Fail(models.FailureInfrastructure, err.Error())
				return nil
			}
			if classification.Outcome == platforms.OutcomeMissingTarget {
				result.Fail(models.FailureMissingTarget, "account has no destination to publish to")
				return nil
			}
			if classification.Outcome != platforms.OutcomeAuthenticated {
				result.Fail(models.FailureReauthFailed, fmt.Sprintf("editor still unreachable after re-login (at %s)", location))
				return nil
			}
		}

		if err := p.enterContent(ctx, page, req, def); err != nil {
			if errors.Is(err, interfaces.ErrNoSelectorMatched) {
				p.logDrift(ctx, page, req.Platform)
				result.Fail(models.FailureElementNotFound, err.Error())
				return nil
			}
			result.Fail(models.FailureInfrastructure, err.Error())
			return nil
		}

		if err := p.submit(ctx, page, def); err != nil {
			if errors.Is(err, interfaces.ErrNoSelectorMatched) {
				p.logDrift(ctx, page, req.Platform)
				result.Fail(models.FailureElementNotFound, err.Error())
				return nil
			}
			result.Fail(models.FailureInfrastructure, err.Error())
			return nil
		}

		p.verify(ctx, page, def, classifier, result)
		return nil
	})
	if runErr != nil {
		if errors.Is(runErr, interfaces.ErrBrowserUnavailable) {
			// Launch failure is a configuration fault; surfacing it as an
			// error keeps it out of the retry loop.
			return nil, runErr
		}
		result.Fail(models.FailureInfrastructure, runErr.Error())
	}

	return result, nil
}

// recoverSession performs the single automatic re-login. Returns true when
// the run is finished (result already populated with a terminal failure).
func (p *Pipeline) recoverSession(ctx context.Context, page interfaces.Page, req *models.PublishRequest, def *platforms.Definition, reloggedIn *bool, result *models.PublishResult) bool {
	if req.Credentials == nil {
		result.Fail(models.FailureSessionExpired, "stored session was rejected and no credentials are on file")
		return true
	}
	if *reloggedIn {
		result.Fail(models.FailureReauthFailed, "session rejected again after the automatic re-login")
		return true
	}
	*reloggedIn = true

	p.logger.Info().
		Str("platform", req.Platform.String()).
		Msg("Stored session rejected, attempting automatic re-login")

	authResult, err := p.authService.PerformLogin(ctx, page, req.Platform, req.Credentials.Username, req.Credentials.Password)
	if err != nil {
		result.Fail(models.FailureReauthFailed, fmt.Sprintf("re-login failed: %v", err))
		return true
	}
	if !authResult.Success {
		result.Fail(models.FailureReauthFailed, fmt.Sprintf("re-login ended in %s: %s", authResult.State, authResult.Message))
		return true
	}

	result.RefreshedSession = authResult.Artifact
	return false
}

// enterContent fills the title and body fields through their selector chains
func (p *Pipeline) enterContent(ctx context.Context, page interfaces.Page, req *models.PublishRequest, def *platforms.Definition) error {
	if req.Title != "" {
		titleSel, err := page.Resolve(ctx, def.TitleField)
		if err != nil {
			return err
		}
		if err := page.ClearAndType(ctx, titleSel, req.Title); err != nil {
			return fmt.Errorf("failed to enter title: %w", err)
		}
	}

	body, err := PrepareBody(req.BodyHTML, def.RichText)
	if err != nil {
		return err
	}
	if body == "" {
		return nil
	}

	bodySel, err := page.Resolve(ctx, def.BodyField)
	if err != nil {
		return err
	}
	if err := page.ClearAndType(ctx, bodySel, body); err != nil {
		return fmt.Errorf("failed to enter body: %w", err)
	}
	return nil
}

// submit clicks publish and, when the platform interposes one, the confirm
// action. A missing confirm element is tolerated: some platforms only show
// it for certain account states.
func (p *Pipeline) submit(ctx context.Context, page interfaces.Page, def *platforms.Definition) error {
	publishSel, err := page.Resolve(ctx, def.PublishButton)
	if err != nil {
		return err
	}
	if err := page.Click(ctx, publishSel); err != nil {
		return fmt.Errorf("failed to click publish: %w", err)
	}

	if len(def.ConfirmButton) > 0 {
		confirmSel, err := page.Resolve(ctx, def.ConfirmButton)
		if err == nil {
			if err := page.Click(ctx, confirmSel); err != nil {
				return fmt.Errorf("failed to click confirm: %w", err)
			}
		} else if !errors.Is(err, interfaces.ErrNoSelectorMatched) {
			return err
		}
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// verify decides whether the submission took. Success is inferred from
// leaving the authoring surface; the post URL comes from the landing URL
// when it matches the platform's post pattern, else from the listing view.
func (p *Pipeline) verify(ctx context.Context, page interfaces.Page, def *platforms.Definition, classifier platforms.Classifier, result *models.PublishResult) {
	location, err := page.Location(ctx)
	if err != nil {
		result.Fail(models.FailureInfrastructure, fmt.Sprintf("failed to read post-submit location: %v", err))
		return
	}

	if classifier.OnComposeSurface(location) {
		result.Fail(models.FailureSubmitUnconfirmed, fmt.Sprintf("still on authoring surface after submission (%s)", location))
		return
	}

	result.Success = true
	if id := def.ExtractPostID(location); id != "" {
		result.PostID = id
		result.PostURL = location
		return
	}

	// Landing URL carries no post id. Fall back to the most recent entry on
	// the listing view; failure here downgrades nothing since the submission
	// itself is confirmed.
	if def.ListingURL == "" || def.ListingLinkSelector == "" {
		return
	}
	if err := page.Navigate(ctx, def.ListingURL); err != nil {
		p.logger.Warn().Err(err).Msg("Post published but listing view unreachable, post URL unknown")
		return
	}
	href, err := page.AttrHref(ctx, def.ListingLinkSelector)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Post published but listing link not found, post URL unknown")
		return
	}
	result.PostURL = href
	result.PostID = def.ExtractPostID(href)
}

// captureRefreshedSession re-extracts the jar before the browser is torn
// down. Best effort: a failed capture leaves whatever re-login already put
// in RefreshedSession.
func (p *Pipeline) captureRefreshedSession(ctx context.Context, page interfaces.Page, platform models.Platform, result *models.PublishResult) {
	jar, err := page.Cookies(ctx)
	if err != nil || !jar.Valid() {
		return
	}
	var account *models.AccountInfo
	if result.RefreshedSession != nil {
		account = result.RefreshedSession.Account
	}
	result.RefreshedSession = models.NewSessionArtifact(platform, jar, account)
}

func (p *Pipeline) classify(ctx context.Context, page interfaces.Page, classifier platforms.Classifier) (platforms.Classification, string, error) {
	location, err := page.Location(ctx)
	if err != nil {
		return platforms.Classification{}, "", fmt.Errorf("failed to read page location: %w", err)
	}
	snapshot, err := page.Snapshot(ctx)
	if err != nil {
		return platforms.Classification{}, "", fmt.Errorf("failed to capture page snapshot: %w", err)
	}
	return classifier.Classify(location, snapshot), location, nil
}

func (p *Pipeline) logDrift(ctx context.Context, page interfaces.Page, platform models.Platform) {
	location, _ := page.Location(ctx)
	snapshot, _ := page.Snapshot(ctx)
	if len(snapshot) > 2048 {
		snapshot = snapshot[:2048]
	}
	p.logger.Warn().
		Str("platform", platform.String()).
		Str("location", location).
		Str("snapshot", snapshot).
		Msg("No selector strategy matched on editor surface, selector set likely stale")
}

func (p *Pipeline) publishEvent(ctx context.Context, eventType interfaces.EventType, req *models.PublishRequest, result *models.PublishResult) {
	if p.events == nil {
		return
	}
	payload := map[string]interface{}{
		"tenant_id": req.TenantID,
		"platform":  req.Platform.String(),
	}
	if result != nil {
		payload["success"] = result.Success
		if result.ErrorCode != "" {
			payload["error_code"] = string(result.ErrorCode)
		}
	}
	_ = p.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload})
}

var _ interfaces.PublishService = (*Pipeline)(nil)

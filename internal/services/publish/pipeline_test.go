package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
	"github.com/ternarybob/scribo/internal/services/auth"
)

const (
	tumblrComposeURL = "https://www.tumblr.com/new/text"
	tumblrLoginURL   = "https://www.tumblr.com/login"
	tumblrDashboard  = "https://www.tumblr.com/dashboard"

	tumblrTitleQuery   = `[role="textbox"][aria-label="Title"]`
	tumblrBodyQuery    = `[role="textbox"][aria-label="Text block"]`
	tumblrPublishQuery = `button[aria-label="Post now"]`
	tumblrSubmitQuery  = `button[aria-label="Log in"]`
)

// scriptedPage plays back a scenario: navigation moves the location (with
// optional one-shot redirects standing in for server-side auth redirects),
// clicks jump to scripted destinations, snapshots come from a per-URL map.
type scriptedPage struct {
	location    string
	docs        map[string]string
	navRedirect map[string]string
	navErr      map[string]error
	navErrOnce  map[string]error
	clickNav    map[string]string
	deadQuery   map[string]bool
	cookies     models.CookieJar
	hrefs       map[string]string

	typed    map[string]string
	clicks   map[string]int
	injected models.CookieJar
}

func newScriptedPage() *scriptedPage {
	return &scriptedPage{
		docs:        map[string]string{},
		navRedirect: map[string]string{},
		navErr:      map[string]error{},
		navErrOnce:  map[string]error{},
		clickNav:    map[string]string{},
		deadQuery:   map[string]bool{},
		hrefs:       map[string]string{},
		typed:       map[string]string{},
		clicks:      map[string]int{},
	}
}

func (p *scriptedPage) Navigate(ctx context.Context, url string) error {
	if err := p.navErr[url]; err != nil {
		return err
	}
	if target, ok := p.navRedirect[url]; ok {
		delete(p.navRedirect, url)
		p.location = target
		return nil
	}
	if err, ok := p.navErrOnce[url]; ok {
		delete(p.navErrOnce, url)
		return err
	}
	p.location = url
	return nil
}

func (p *scriptedPage) Location(ctx context.Context) (string, error) { return p.location, nil }

func (p *scriptedPage) Resolve(ctx context.Context, chain platforms.SelectorChain) (string, error) {
	for _, query := range chain.Queries() {
		if !p.deadQuery[query] {
			return query, nil
		}
	}
	return "", fmt.Errorf("%w after %d strategies", interfaces.ErrNoSelectorMatched, len(chain))
}

func (p *scriptedPage) Click(ctx context.Context, selector string) error {
	p.clicks[selector]++
	if target, ok := p.clickNav[selector]; ok {
		p.location = target
	}
	return nil
}

func (p *scriptedPage) ClearAndType(ctx context.Context, selector, text string) error {
	p.typed[selector] = text
	return nil
}

func (p *scriptedPage) Text(ctx context.Context, selector string) (string, error) {
	return "", fmt.Errorf("%w after 1 strategies", interfaces.ErrNoSelectorMatched)
}

func (p *scriptedPage) AttrHref(ctx context.Context, selector string) (string, error) {
	if href, ok := p.hrefs[selector]; ok {
		return href, nil
	}
	return "", fmt.Errorf("%w after 1 strategies", interfaces.ErrNoSelectorMatched)
}

func (p *scriptedPage) SetCookies(ctx context.Context, jar models.CookieJar, defaultDomain string) error {
	p.injected = jar
	return nil
}

func (p *scriptedPage) Cookies(ctx context.Context) (models.CookieJar, error) {
	return p.cookies, nil
}

func (p *scriptedPage) Snapshot(ctx context.Context) (string, error) {
	if doc, ok := p.docs[p.location]; ok {
		return doc, nil
	}
	return "<html><body></body></html>", nil
}

// fakeManager hands every run the same scripted page and counts runs so
// tests can assert the retry bound
type fakeManager struct {
	page      *scriptedPage
	runs      int
	launchErr error
}

func (m *fakeManager) WithPage(ctx context.Context, scope interfaces.BrowserScope, fn func(ctx context.Context, page interfaces.Page) error) error {
	if m.launchErr != nil {
		return m.launchErr
	}
	m.runs++
	return fn(ctx, m.page)
}

func (m *fakeManager) OpenInteractive(ctx context.Context, platform models.Platform) (*interfaces.InteractiveHandle, error) {
	return nil, fmt.Errorf("not supported")
}

func (m *fakeManager) Shutdown() error { return nil }

func testPipeline(t *testing.T, manager *fakeManager) *Pipeline {
	t.Helper()
	registry, err := platforms.NewRegistry(arbor.NewLogger())
	require.NoError(t, err)
	authService := auth.NewService(manager, registry, nil, arbor.NewLogger())
	return NewPipeline(manager, registry, authService, nil, arbor.NewLogger(), 2)
}

func testRequest() *models.PublishRequest {
	return &models.PublishRequest{
		TenantID: "tenant-1",
		Platform: models.PlatformTumblr,
		Artifact: models.NewSessionArtifact(models.PlatformTumblr, models.CookieJar{
			{Name: "sid", Value: "stored", Domain: ".tumblr.com"},
		}, nil),
		Title:    "Hello",
		BodyHTML: "<p>Hello world</p>",
	}
}

func TestPublish_Success(t *testing.T) {
	page := newScriptedPage()
	page.clickNav[tumblrPublishQuery] = "https://www.tumblr.com/scribbler/712345"
	page.cookies = models.CookieJar{{Name: "sid", Value: "rotated", Domain: ".tumblr.com"}}
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "712345", result.PostID)
	assert.Equal(t, "https://www.tumblr.com/scribbler/712345", result.PostURL)
	assert.Equal(t, 1, manager.runs)

	// Stored jar was injected, content was typed
	assert.Equal(t, "stored", page.injected[0].Value)
	assert.Equal(t, "Hello", page.typed[tumblrTitleQuery])
	assert.Equal(t, "Hello world", page.typed[tumblrBodyQuery])

	// The rotated jar comes back even though we went in with the stored one
	require.NotNil(t, result.RefreshedSession)
	assert.Equal(t, "rotated", result.RefreshedSession.Cookies[0].Value)
}

func TestPublish_PostURLFromListingFallback(t *testing.T) {
	page := newScriptedPage()
	page.clickNav[tumblrPublishQuery] = "https://www.tumblr.com/posted"
	page.cookies = models.CookieJar{{Name: "sid", Value: "v"}}
	page.hrefs[`article a[href*="/post/"]`] = "https://scribbler.tumblr.com/post/99887"
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "https://scribbler.tumblr.com/post/99887", result.PostURL)
	assert.Equal(t, "99887", result.PostID)
}

func TestPublish_SessionExpiredNoCredentials(t *testing.T) {
	page := newScriptedPage()
	page.navRedirect[tumblrComposeURL] = tumblrLoginURL
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureSessionExpired, result.ErrorCode)
	assert.Equal(t, 1, manager.runs)
}

func TestPublish_AutomaticReLogin(t *testing.T) {
	page := newScriptedPage()
	// First approach to the editor bounces to the login page; after the
	// re-login the editor loads normally.
	page.navRedirect[tumblrComposeURL] = tumblrLoginURL
	page.clickNav[tumblrSubmitQuery] = tumblrDashboard
	page.clickNav[tumblrPublishQuery] = "https://www.tumblr.com/scribbler/712345"
	page.cookies = models.CookieJar{{Name: "sid", Value: "fresh", Domain: ".tumblr.com"}}
	manager := &fakeManager{page: page}

	req := testRequest()
	req.Credentials = &models.StoredCredentials{Username: "writer@example.com", Password: "hunter2"}

	result, err := testPipeline(t, manager).Publish(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "712345", result.PostID)
	assert.Equal(t, 1, manager.runs, "re-login happens inside the same browser run")
	assert.Equal(t, "writer@example.com", page.typed[`input[aria-label="Email"]`])
	require.NotNil(t, result.RefreshedSession)
	assert.Equal(t, "fresh", result.RefreshedSession.Cookies[0].Value)
}

func TestPublish_ReauthFailed(t *testing.T) {
	page := newScriptedPage()
	page.navRedirect[tumblrComposeURL] = tumblrLoginURL
	// Re-login lands back on the login page with a visible error
	page.clickNav[tumblrSubmitQuery] = tumblrLoginURL
	page.docs[tumblrLoginURL] = `<html><body><form><div role="alert">Wrong password</div></form></body></html>`
	manager := &fakeManager{page: page}

	req := testRequest()
	req.Credentials = &models.StoredCredentials{Username: "writer@example.com", Password: "stale"}

	result, err := testPipeline(t, manager).Publish(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureReauthFailed, result.ErrorCode)
	assert.Contains(t, result.Error, "CREDENTIAL_REJECTED")
}

func TestPublish_ElementNotFound(t *testing.T) {
	page := newScriptedPage()
	page.deadQuery[tumblrTitleQuery] = true
	page.deadQuery[`textarea[placeholder="Title"]`] = true
	page.deadQuery[`form [contenteditable="true"]:first-of-type`] = true
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureElementNotFound, result.ErrorCode)
	assert.Equal(t, 1, manager.runs, "selector drift is not retryable")
}

func TestPublish_SubmitUnconfirmed(t *testing.T) {
	page := newScriptedPage()
	// No clickNav for the publish button: the location never leaves the
	// authoring surface
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureSubmitUnconfirmed, result.ErrorCode)
}

func TestPublish_ReLoginOncePerCallAcrossRetries(t *testing.T) {
	page := newScriptedPage()
	// The stored session bounces to the login page, the re-login succeeds,
	// then the editor drops the connection once. The retry must go in with
	// the re-captured jar and must not spend a second login.
	page.navRedirect[tumblrComposeURL] = tumblrLoginURL
	page.navErrOnce[tumblrComposeURL] = errors.New("net::ERR_CONNECTION_RESET")
	page.clickNav[tumblrSubmitQuery] = tumblrDashboard
	page.clickNav[tumblrPublishQuery] = "https://www.tumblr.com/scribbler/712345"
	page.cookies = models.CookieJar{{Name: "sid", Value: "fresh", Domain: ".tumblr.com"}}
	manager := &fakeManager{page: page}

	req := testRequest()
	req.Credentials = &models.StoredCredentials{Username: "writer@example.com", Password: "hunter2"}

	result, err := testPipeline(t, manager).Publish(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "712345", result.PostID)
	assert.Equal(t, 2, manager.runs, "transient fault costs one retry")
	assert.Equal(t, 1, page.clicks[tumblrSubmitQuery], "login form submitted exactly once")
	assert.Equal(t, "fresh", page.injected[0].Value, "retry goes in with the re-captured jar")
}

func TestPublish_InfrastructureRetryBounded(t *testing.T) {
	page := newScriptedPage()
	page.navErr[tumblrComposeURL] = errors.New("net::ERR_CONNECTION_RESET")
	manager := &fakeManager{page: page}

	result, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureInfrastructure, result.ErrorCode)
	assert.Equal(t, 3, manager.runs, "initial attempt plus two retries")
}

func TestPublish_CancelledContextSkipsSettleWindow(t *testing.T) {
	page := newScriptedPage()
	page.clickNav[tumblrPublishQuery] = "https://www.tumblr.com/scribbler/712345"
	manager := &fakeManager{page: page}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result, err := testPipeline(t, manager).Publish(ctx, testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, models.FailureInfrastructure, result.ErrorCode)
	assert.Contains(t, result.Error, "context canceled")
	assert.Less(t, time.Since(start), settleDelay, "aborted publish must not hold the browser for the settle window")
}

func TestPublish_BrowserUnavailableIsAnError(t *testing.T) {
	manager := &fakeManager{
		page:      newScriptedPage(),
		launchErr: fmt.Errorf("launch failed: %w", interfaces.ErrBrowserUnavailable),
	}

	_, err := testPipeline(t, manager).Publish(context.Background(), testRequest())
	assert.ErrorIs(t, err, interfaces.ErrBrowserUnavailable)
}

func TestPublish_RequestValidation(t *testing.T) {
	pipeline := testPipeline(t, &fakeManager{page: newScriptedPage()})

	req := testRequest()
	req.Artifact = nil
	_, err := pipeline.Publish(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.Title = ""
	req.BodyHTML = ""
	_, err = pipeline.Publish(context.Background(), req)
	assert.Error(t, err)
}

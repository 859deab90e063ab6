package connections

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
	"github.com/ternarybob/scribo/internal/storage/badger"
)

// fakeAuth returns a scripted login outcome
type fakeAuth struct {
	result *models.AuthResult
	err    error
}

func (a *fakeAuth) Login(ctx context.Context, platform models.Platform, username, password string) (*models.AuthResult, error) {
	return a.result, a.err
}

// fakePublish returns a scripted pipeline outcome and records the request
type fakePublish struct {
	result  *models.PublishResult
	err     error
	lastReq *models.PublishRequest
}

func (p *fakePublish) Publish(ctx context.Context, req *models.PublishRequest) (*models.PublishResult, error) {
	p.lastReq = req
	return p.result, p.err
}

// probePage is the minimal page a verification probe touches. A non-empty
// redirectTo stands in for a server-side bounce to the login page.
type probePage struct {
	location   string
	redirectTo string
	doc        string
	cookies    models.CookieJar
	injected   models.CookieJar
}

func (p *probePage) Navigate(ctx context.Context, url string) error {
	if p.redirectTo != "" {
		p.location = p.redirectTo
		return nil
	}
	p.location = url
	return nil
}

func (p *probePage) Location(ctx context.Context) (string, error) { return p.location, nil }

func (p *probePage) Resolve(ctx context.Context, chain platforms.SelectorChain) (string, error) {
	return "", interfaces.ErrNoSelectorMatched
}

func (p *probePage) Click(ctx context.Context, selector string) error { return nil }

func (p *probePage) ClearAndType(ctx context.Context, selector, text string) error { return nil }

func (p *probePage) Text(ctx context.Context, selector string) (string, error) {
	return "", interfaces.ErrNoSelectorMatched
}

func (p *probePage) AttrHref(ctx context.Context, selector string) (string, error) {
	return "", interfaces.ErrNoSelectorMatched
}

func (p *probePage) SetCookies(ctx context.Context, jar models.CookieJar, defaultDomain string) error {
	p.injected = jar
	return nil
}

func (p *probePage) Cookies(ctx context.Context) (models.CookieJar, error) { return p.cookies, nil }

func (p *probePage) Snapshot(ctx context.Context) (string, error) { return p.doc, nil }

type probeBrowser struct {
	page *probePage
}

func (b *probeBrowser) WithPage(ctx context.Context, scope interfaces.BrowserScope, fn func(ctx context.Context, page interfaces.Page) error) error {
	return fn(ctx, b.page)
}

func (b *probeBrowser) OpenInteractive(ctx context.Context, platform models.Platform) (*interfaces.InteractiveHandle, error) {
	return nil, fmt.Errorf("not supported")
}

func (b *probeBrowser) Shutdown() error { return nil }

type fixture struct {
	service *Service
	storage interfaces.StorageManager
	auth    *fakeAuth
	publish *fakePublish
	page    *probePage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := arbor.NewLogger()
	sealer, err := badger.NewSealer(nil)
	require.NoError(t, err)
	storageManager, err := badger.NewManager(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "badger"),
	}, sealer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storageManager.Close() })

	registry, err := platforms.NewRegistry(logger)
	require.NoError(t, err)

	f := &fixture{
		storage: storageManager,
		auth:    &fakeAuth{},
		publish: &fakePublish{},
		page:    &probePage{},
	}
	f.service = NewService(storageManager, &probeBrowser{page: f.page}, registry, f.auth, f.publish, nil, logger)
	return f
}

func storedJar() models.CookieJar {
	return models.CookieJar{{Name: "sid", Value: "stored", Domain: ".tumblr.com"}}
}

func TestConnect_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.result = &models.AuthResult{
		State:    models.AuthAuthenticated,
		Success:  true,
		Artifact: models.NewSessionArtifact(models.PlatformTumblr, storedJar(), nil),
	}

	result, err := f.service.Connect(ctx, "tenant-1", models.PlatformTumblr, models.StoredCredentials{
		Username: "writer@example.com", Password: "hunter2",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.ConnectionConnected, record.Status)
	require.NotNil(t, record.Credentials)
	assert.Equal(t, "writer@example.com", record.Credentials.Username)

	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, "stored", artifact.Cookies[0].Value)
}

func TestConnect_RejectedCredentialsRecordedAsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.result = &models.AuthResult{
		State:   models.AuthCredentialRejected,
		Message: "platform rejected the credentials",
	}

	result, err := f.service.Connect(ctx, "tenant-1", models.PlatformTumblr, models.StoredCredentials{
		Username: "writer@example.com", Password: "wrong",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.ConnectionError, record.Status)
	assert.Equal(t, "platform rejected the credentials", record.LastError)

	// No session was stored
	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Nil(t, artifact)
}

func TestConnect_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Connect(ctx, "", models.PlatformTumblr, models.StoredCredentials{Username: "u", Password: "p"})
	assert.Error(t, err)

	_, err = f.service.Connect(ctx, "tenant-1", models.Platform("medium"), models.StoredCredentials{Username: "u", Password: "p"})
	assert.Error(t, err)

	_, err = f.service.Connect(ctx, "tenant-1", models.PlatformTumblr, models.StoredCredentials{})
	assert.Error(t, err)
}

func TestImportCookies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=abc; csrf=tok`))
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionConnected, record.Status)
	require.NotNil(t, record.Artifact)
	assert.Len(t, record.Artifact.Cookies, 2)

	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, "abc", artifact.Cookies[0].Value)
}

func TestImportCookies_RejectsGarbage(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ImportCookies(context.Background(), "tenant-1", models.PlatformTumblr, []byte("not a cookie jar"))
	assert.Error(t, err)
}

func TestVerify_NoStoredSession(t *testing.T) {
	f := newFixture(t)

	record, err := f.service.Verify(context.Background(), "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionDisconnected, record.Status)
	assert.Equal(t, "no stored session", record.LastError)
}

func TestVerify_SessionStillValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=stored`))
	require.NoError(t, err)

	// The probe lands on the dashboard and the platform rotated the token
	f.page.doc = "<html><body><main>feed</main></body></html>"
	f.page.cookies = models.CookieJar{{Name: "sid", Value: "rotated", Domain: ".tumblr.com"}}

	record, err := f.service.Verify(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionConnected, record.Status)
	assert.Equal(t, "stored", f.page.injected[0].Value)

	// The re-captured jar replaced the stored one
	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, "rotated", artifact.Cookies[0].Value)
}

func TestVerify_SessionExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=stale`))
	require.NoError(t, err)

	// The probe bounces to the login page
	f.page.redirectTo = "https://www.tumblr.com/login"
	f.page.doc = "<html><body><form></form></body></html>"

	record, err := f.service.Verify(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionError, record.Status)
	assert.Contains(t, record.LastError, "login_page")
}

func TestPublish_DelegatesAndPersistsRefreshedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=stored`))
	require.NoError(t, err)

	f.publish.result = &models.PublishResult{
		Success: true,
		PostID:  "712345",
		RefreshedSession: models.NewSessionArtifact(models.PlatformTumblr, models.CookieJar{
			{Name: "sid", Value: "rotated", Domain: ".tumblr.com"},
		}, nil),
	}

	result, err := f.service.Publish(ctx, "tenant-1", models.PlatformTumblr, "Hello", "<p>body</p>")
	require.NoError(t, err)
	assert.True(t, result.Success)

	// The pipeline got the stored artifact
	require.NotNil(t, f.publish.lastReq)
	assert.Equal(t, "stored", f.publish.lastReq.Artifact.Cookies[0].Value)

	// The rotated jar was persisted
	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, "rotated", artifact.Cookies[0].Value)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionConnected, record.Status)
}

func TestPublish_SessionExpiredMarksConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=stale`))
	require.NoError(t, err)

	f.publish.result = &models.PublishResult{
		Success:   false,
		ErrorCode: models.FailureSessionExpired,
		Error:     "stored session was rejected and no credentials are on file",
	}

	result, err := f.service.Publish(ctx, "tenant-1", models.PlatformTumblr, "Hello", "<p>body</p>")
	require.NoError(t, err)
	assert.False(t, result.Success)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionError, record.Status)
	assert.NotEmpty(t, record.LastError)
}

func TestPublish_FailureAlwaysRecordsLastError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=stored`))
	require.NoError(t, err)

	f.publish.result = &models.PublishResult{
		Success:   false,
		ErrorCode: models.FailureElementNotFound,
		Error:     "no selector strategy matched after 3 strategies",
	}

	result, err := f.service.Publish(ctx, "tenant-1", models.PlatformTumblr, "Hello", "<p>body</p>")
	require.NoError(t, err)
	assert.False(t, result.Success)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Equal(t, "no selector strategy matched after 3 strategies", record.LastError)
	// Selector drift says nothing about the session itself
	assert.Equal(t, models.ConnectionConnected, record.Status)
	assert.False(t, record.LastCheckedAt.IsZero())
}

func TestPublish_NoStoredSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Publish(context.Background(), "tenant-1", models.PlatformTumblr, "Hello", "<p>body</p>")
	assert.ErrorContains(t, err, "connect or import cookies first")
}

func TestPublish_UsesStoredCredentialsForReauth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.result = &models.AuthResult{
		State:    models.AuthAuthenticated,
		Success:  true,
		Artifact: models.NewSessionArtifact(models.PlatformTumblr, storedJar(), nil),
	}
	_, err := f.service.Connect(ctx, "tenant-1", models.PlatformTumblr, models.StoredCredentials{
		Username: "writer@example.com", Password: "hunter2",
	})
	require.NoError(t, err)

	f.publish.result = &models.PublishResult{Success: true}
	_, err = f.service.Publish(ctx, "tenant-1", models.PlatformTumblr, "Hello", "<p>body</p>")
	require.NoError(t, err)

	require.NotNil(t, f.publish.lastReq.Credentials)
	assert.Equal(t, "writer@example.com", f.publish.lastReq.Credentials.Username)
}

func TestList_ScopedToTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=a`))
	require.NoError(t, err)
	_, err = f.service.ImportCookies(ctx, "tenant-1", models.PlatformBlogger, []byte(`sid=b`))
	require.NoError(t, err)
	_, err = f.service.ImportCookies(ctx, "tenant-2", models.PlatformTumblr, []byte(`sid=c`))
	require.NoError(t, err)

	records, err := f.service.List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.ImportCookies(ctx, "tenant-1", models.PlatformTumblr, []byte(`sid=a`))
	require.NoError(t, err)

	require.NoError(t, f.service.Disconnect(ctx, "tenant-1", models.PlatformTumblr))

	artifact, err := f.storage.SessionStorage().GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Nil(t, artifact)

	record, err := f.storage.ConnectionStorage().GetConnection(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Nil(t, record)

	// Disconnecting again is a no-op
	assert.NoError(t, f.service.Disconnect(ctx, "tenant-1", models.PlatformTumblr))
}

package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSessionStorage(t *testing.T) interfaces.SessionStorage {
	t.Helper()
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)
	return NewSessionStorage(testDB(t), sealer, arbor.NewLogger())
}

func testJar() models.CookieJar {
	return models.CookieJar{
		{Name: "session_id", Value: "abc123", Domain: ".tumblr.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "csrf", Value: "tok", Domain: ".tumblr.com", Path: "/"},
	}
}

func TestSessionStorage_SaveAndGet(t *testing.T) {
	store := testSessionStorage(t)
	ctx := context.Background()

	artifact := models.NewSessionArtifact(models.PlatformTumblr, testJar(), &models.AccountInfo{DisplayName: "scribbler"})
	require.NoError(t, store.SaveArtifact(ctx, "tenant-1", artifact))

	got, err := store.GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, artifact.Cookies, got.Cookies)
	assert.Equal(t, "scribbler", got.Account.DisplayName)
	assert.Equal(t, models.PlatformTumblr, got.Platform)
}

func TestSessionStorage_GetMissingReturnsNil(t *testing.T) {
	store := testSessionStorage(t)

	got, err := store.GetArtifact(context.Background(), "tenant-1", models.PlatformBlogger)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStorage_TenantIsolation(t *testing.T) {
	store := testSessionStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveArtifact(ctx, "tenant-1", models.NewSessionArtifact(models.PlatformTumblr, testJar(), nil)))

	got, err := store.GetArtifact(ctx, "tenant-2", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStorage_ReplaceWholesale(t *testing.T) {
	store := testSessionStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveArtifact(ctx, "tenant-1", models.NewSessionArtifact(models.PlatformTumblr, testJar(), nil)))

	fresh := models.CookieJar{{Name: "session_id", Value: "rotated", Domain: ".tumblr.com", Path: "/"}}
	require.NoError(t, store.SaveArtifact(ctx, "tenant-1", models.NewSessionArtifact(models.PlatformTumblr, fresh, nil)))

	got, err := store.GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "rotated", got.Cookies[0].Value)
}

func TestSessionStorage_RejectsInvalidArtifact(t *testing.T) {
	store := testSessionStorage(t)
	ctx := context.Background()

	err := store.SaveArtifact(ctx, "tenant-1", &models.SessionArtifact{Platform: models.PlatformTumblr})
	assert.Error(t, err)

	err = store.SaveArtifact(ctx, "", models.NewSessionArtifact(models.PlatformTumblr, testJar(), nil))
	assert.Error(t, err)
}

func TestSessionStorage_Delete(t *testing.T) {
	store := testSessionStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveArtifact(ctx, "tenant-1", models.NewSessionArtifact(models.PlatformTumblr, testJar(), nil)))
	require.NoError(t, store.DeleteArtifact(ctx, "tenant-1", models.PlatformTumblr))

	got, err := store.GetArtifact(ctx, "tenant-1", models.PlatformTumblr)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is a no-op
	assert.NoError(t, store.DeleteArtifact(ctx, "tenant-1", models.PlatformTumblr))
}

func testConnectionStorage(t *testing.T) interfaces.ConnectionStorage {
	t.Helper()
	sealer, err := NewSealer(testKey(t))
	require.NoError(t, err)
	return NewConnectionStorage(testDB(t), sealer, arbor.NewLogger())
}

func TestConnectionStorage_UpsertAndGet(t *testing.T) {
	store := testConnectionStorage(t)
	ctx := context.Background()

	record := &models.ConnectionRecord{
		ID:       "conn_1",
		TenantID: "tenant-1",
		Platform: models.PlatformBlogger,
		Status:   models.ConnectionConnected,
		Credentials: &models.StoredCredentials{
			Username: "writer@example.com",
			Password: "hunter2",
		},
	}
	require.NoError(t, store.UpsertConnection(ctx, record))

	got, err := store.GetConnection(ctx, "tenant-1", models.PlatformBlogger)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "conn_1", got.ID)
	assert.Equal(t, models.ConnectionConnected, got.Status)
	require.NotNil(t, got.Credentials)
	assert.Equal(t, "writer@example.com", got.Credentials.Username)
	assert.Equal(t, "hunter2", got.Credentials.Password)
	assert.NotZero(t, got.CreatedAt)
	assert.NotZero(t, got.UpdatedAt)
}

func TestConnectionStorage_GetMissingReturnsNil(t *testing.T) {
	store := testConnectionStorage(t)

	got, err := store.GetConnection(context.Background(), "tenant-1", models.PlatformTypepad)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConnectionStorage_UpsertRequiresScope(t *testing.T) {
	store := testConnectionStorage(t)
	ctx := context.Background()

	assert.Error(t, store.UpsertConnection(ctx, &models.ConnectionRecord{Platform: models.PlatformBlogger}))
	assert.Error(t, store.UpsertConnection(ctx, &models.ConnectionRecord{TenantID: "tenant-1"}))
}

func TestConnectionStorage_ListScopedToTenant(t *testing.T) {
	store := testConnectionStorage(t)
	ctx := context.Background()

	for _, platform := range []models.Platform{models.PlatformBlogger, models.PlatformTumblr} {
		require.NoError(t, store.UpsertConnection(ctx, &models.ConnectionRecord{
			ID: "conn_" + platform.String(), TenantID: "tenant-1", Platform: platform, Status: models.ConnectionConnected,
		}))
	}
	require.NoError(t, store.UpsertConnection(ctx, &models.ConnectionRecord{
		ID: "conn_other", TenantID: "tenant-2", Platform: models.PlatformBlogger, Status: models.ConnectionError,
	}))

	records, err := store.ListConnections(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, "tenant-1", record.TenantID)
	}

	empty, err := store.ListConnections(ctx, "tenant-3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConnectionStorage_Delete(t *testing.T) {
	store := testConnectionStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertConnection(ctx, &models.ConnectionRecord{
		ID: "conn_1", TenantID: "tenant-1", Platform: models.PlatformBlogger, Status: models.ConnectionConnected,
	}))
	require.NoError(t, store.DeleteConnection(ctx, "tenant-1", models.PlatformBlogger))

	got, err := store.GetConnection(ctx, "tenant-1", models.PlatformBlogger)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, store.DeleteConnection(ctx, "tenant-1", models.PlatformBlogger))
}

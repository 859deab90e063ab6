package interfaces

import (
	"context"

	"github.com/ternarybob/scribo/internal/models"
)

// AuthService drives the automated login protocol for a platform. Expected
// failure states (wrong password, challenge) are terminal results, not
// errors; only infrastructure faults surface as errors.
type AuthService interface {
	Login(ctx context.Context, platform models.Platform, username, password string) (*models.AuthResult, error)
}

// PublishService drives content entry and submission against a platform's
// editor UI using a previously captured session artifact
type PublishService interface {
	Publish(ctx context.Context, req *models.PublishRequest) (*models.PublishResult, error)
}

// BrokerService manages human-operated remote login sessions for challenges
// automated login cannot pass
type BrokerService interface {
	StartSession(ctx context.Context, tenantID string, platform models.Platform) (*models.InteractiveSession, error)

	// CaptureSession returns (artifact, false, nil) once the human has
	// finished logging in, or (nil, true, nil) while login is still pending.
	// Only the starting tenant may capture a session.
	CaptureSession(ctx context.Context, tenantID, sessionID string) (*models.SessionArtifact, bool, error)

	// CloseSession is idempotent and tenant-scoped
	CloseSession(ctx context.Context, tenantID, sessionID string) error

	// ActiveSessions reports current broker occupancy
	ActiveSessions() int
}

// ConnectionService owns ConnectionRecord state transitions and is the
// engine-facing entrypoint used by the HTTP surface. It enforces tenant
// scoping: no operation ever touches a record for a different tenant than
// the one it was given.
type ConnectionService interface {
	Connect(ctx context.Context, tenantID string, platform models.Platform, creds models.StoredCredentials) (*models.AuthResult, error)
	ImportCookies(ctx context.Context, tenantID string, platform models.Platform, raw []byte) (*models.ConnectionRecord, error)
	Verify(ctx context.Context, tenantID string, platform models.Platform) (*models.ConnectionRecord, error)
	Publish(ctx context.Context, tenantID string, platform models.Platform, title, bodyHTML string) (*models.PublishResult, error)
	List(ctx context.Context, tenantID string) ([]*models.ConnectionRecord, error)
	Disconnect(ctx context.Context, tenantID string, platform models.Platform) error
}

package models

import "time"

// InteractiveSessionState tracks a human-operated remote login session
type InteractiveSessionState string

const (
	InteractivePending  InteractiveSessionState = "pending"
	InteractiveCaptured InteractiveSessionState = "captured"
	InteractiveClosed   InteractiveSessionState = "closed"
)

// InteractiveSession describes a time-boxed remote browser session handed to
// a human to complete a challenge automated login cannot pass
type InteractiveSession struct {
	ID          string                  `json:"id"`
	TenantID    string                  `json:"tenant_id"`
	Platform    Platform                `json:"platform"`
	LiveViewURL string                  `json:"live_view_url"`
	State       InteractiveSessionState `json:"state"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

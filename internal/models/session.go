package models

import "time"

// AccountInfo is account metadata captured opportunistically during login
// or verification. Both fields are best effort and may be empty.
type AccountInfo struct {
	DisplayName  string `json:"display_name,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

// StoredCredentials holds a username/password pair used only for automatic
// re-login after a session is confirmed expired
type StoredCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionArtifact is the persisted authentication state for one
// tenant/platform pair. Artifacts are replaced wholesale, never mutated in
// place, so a stored jar is always internally consistent.
type SessionArtifact struct {
	Platform   Platform     `json:"platform"`
	Cookies    CookieJar    `json:"cookies"`
	Account    *AccountInfo `json:"account,omitempty"`
	CapturedAt time.Time    `json:"captured_at"`
}

// NewSessionArtifact stamps a fresh artifact from a captured jar
func NewSessionArtifact(platform Platform, jar CookieJar, account *AccountInfo) *SessionArtifact {
	return &SessionArtifact{
		Platform:   platform,
		Cookies:    jar,
		Account:    account,
		CapturedAt: time.Now(),
	}
}

// Valid reports whether the artifact carries an injectable jar
func (a *SessionArtifact) Valid() bool {
	return a != nil && a.Platform != "" && a.Cookies.Valid()
}

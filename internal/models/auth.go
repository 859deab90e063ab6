package models

// AuthState is the state of an automated login attempt
type AuthState string

const (
	AuthNotAuthenticated      AuthState = "NOT_AUTHENTICATED"
	AuthSubmittingCredentials AuthState = "SUBMITTING_CREDENTIALS"
	AuthAuthenticated         AuthState = "AUTHENTICATED"
	AuthChallengeDetected     AuthState = "CHALLENGE_DETECTED"
	AuthCredentialRejected    AuthState = "CREDENTIAL_REJECTED"
)

// Terminal reports whether the state ends the login attempt. A terminal
// non-authenticated state requires a new external call to make progress.
func (s AuthState) Terminal() bool {
	switch s {
	case AuthAuthenticated, AuthChallengeDetected, AuthCredentialRejected:
		return true
	}
	return false
}

// ChallengeKind identifies the platform-imposed step automated login cannot pass
type ChallengeKind string

const (
	ChallengeNone         ChallengeKind = ""
	ChallengeCaptcha      ChallengeKind = "CAPTCHA"
	ChallengeSecondFactor ChallengeKind = "SECOND_FACTOR"
)

// AuthResult is the outcome of a login attempt. Expected failures (wrong
// password, challenge) are ordinary terminal results, not errors.
type AuthResult struct {
	State     AuthState        `json:"state"`
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Challenge ChallengeKind    `json:"challenge,omitempty"`
	Account   *AccountInfo     `json:"account,omitempty"`
	Artifact  *SessionArtifact `json:"-"`
}

package models

// FailureCode classifies a terminal publish failure. Only infrastructure
// failures are retried automatically; everything else is handed back for an
// operator decision since retrying without a changed root cause is pointless.
type FailureCode string

const (
	// FailureMissingTarget means no addressable destination exists (e.g. no blog on the account)
	FailureMissingTarget FailureCode = "MISSING_TARGET"
	// FailureSessionExpired means the injected session was rejected and no credentials are on file
	FailureSessionExpired FailureCode = "SESSION_EXPIRED_NO_CREDENTIALS"
	// FailureReauthFailed means the session expired and the single automatic re-login did not succeed
	FailureReauthFailed FailureCode = "REAUTH_FAILED"
	// FailureElementNotFound means every cascading selector strategy was exhausted - likely UI drift
	FailureElementNotFound FailureCode = "ELEMENT_NOT_FOUND"
	// FailureSubmitUnconfirmed means submission was attempted but success could not be verified
	FailureSubmitUnconfirmed FailureCode = "SUBMIT_UNCONFIRMED"
	// FailureInfrastructure covers browser launch, navigation and network faults
	FailureInfrastructure FailureCode = "INFRASTRUCTURE_ERROR"
)

// Retryable reports whether the whole operation may be retried automatically.
// Only infrastructure faults qualify.
func (c FailureCode) Retryable() bool {
	return c == FailureInfrastructure
}

// PublishRequest carries everything the pipeline needs for one submission
type PublishRequest struct {
	TenantID    string             `json:"tenant_id"`
	Platform    Platform           `json:"platform"`
	Artifact    *SessionArtifact   `json:"-"`
	Credentials *StoredCredentials `json:"-"`
	Title       string             `json:"title"`
	BodyHTML    string             `json:"body_html"`
}

// PublishResult is the outcome of a publish attempt. RefreshedSession is
// populated on every path, success or failure, so session rotation triggered
// mid-operation is never lost.
type PublishResult struct {
	Success          bool             `json:"success"`
	PostID           string           `json:"post_id,omitempty"`
	PostURL          string           `json:"post_url,omitempty"`
	ErrorCode        FailureCode      `json:"error_code,omitempty"`
	Error            string           `json:"error,omitempty"`
	RefreshedSession *SessionArtifact `json:"-"`
}

// Fail marks the result as a terminal failure with a classified code
func (r *PublishResult) Fail(code FailureCode, message string) {
	r.Success = false
	r.ErrorCode = code
	r.Error = message
}

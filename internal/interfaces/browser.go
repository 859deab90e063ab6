package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// Sentinel errors shared by the browser layer and the services that classify
// its failures.
var (
	// ErrBrowserUnavailable means the browser executable could not be launched.
	// This is a configuration fault, not an in-page automation error, and is
	// never retried.
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrNoSelectorMatched means every strategy in a selector chain was
	// exhausted without yielding a visible, interactable element
	ErrNoSelectorMatched = errors.New("no selector strategy matched")

	// ErrSharedContextForbidden means a credential-bearing operation was
	// attempted on the shared probe browser
	ErrSharedContextForbidden = errors.New("cookie operations require an isolated context")
)

// BrowserScope declares the risk class and bounds of one browser operation.
// Isolated must be true for any publish or credential-bearing operation: a
// brand-new browser process is created for the call and torn down afterward,
// so no tenant's DOM state or cookies can leak into another call.
type BrowserScope struct {
	Platform models.Platform
	Isolated bool
	Timeout  time.Duration
}

// Page drives a single browser page. Every method suspends on live browser
// round trips and honors the context's deadline.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)

	// Resolve tries each strategy in the chain in order and returns the first
	// query that yields a visible, interactable element. Returns
	// ErrNoSelectorMatched when the chain is exhausted.
	Resolve(ctx context.Context, chain platforms.SelectorChain) (string, error)

	Click(ctx context.Context, selector string) error

	// ClearAndType neutralizes any existing content and inherited formatting
	// in the element, then enters text via simulated input events. Rich-text
	// editors do not reliably recognize direct DOM mutation as user input.
	ClearAndType(ctx context.Context, selector, text string) error

	Text(ctx context.Context, selector string) (string, error)
	AttrHref(ctx context.Context, selector string) (string, error)

	// SetCookies injects a jar, scoping cookies without a domain to
	// defaultDomain. Rejects empty jars.
	SetCookies(ctx context.Context, jar models.CookieJar, defaultDomain string) error

	// Cookies extracts the full current cookie jar, including cookies set by
	// navigation after login
	Cookies(ctx context.Context) (models.CookieJar, error)

	// Snapshot returns a truncated HTML capture of the page for heuristic
	// classification and drift diagnostics
	Snapshot(ctx context.Context) (string, error)
}

// BrowserManager acquires browser resources for a single logical operation
// and guarantees their release on every exit path.
type BrowserManager interface {
	// WithPage acquires a page per the scope, runs fn, and always releases
	// the underlying browser resources, even when fn returns an error or the
	// timeout fires
	WithPage(ctx context.Context, scope BrowserScope, fn func(ctx context.Context, page Page) error) error

	// OpenInteractive opens a long-lived, human-viewable page outside the
	// single-call discipline. The returned handle must be closed by the
	// caller; Close is idempotent.
	OpenInteractive(ctx context.Context, platform models.Platform) (*InteractiveHandle, error)

	// Shutdown tears down any shared browser state
	Shutdown() error
}

// InteractiveHandle is a live browser page connected to a viewable remote
// endpoint, used by the interactive session broker
type InteractiveHandle struct {
	Page        Page
	LiveViewURL string
	Close       func()
}

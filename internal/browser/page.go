package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	cdpstorage "github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/ternarybob/scribo/internal/platforms"
)

// snapshotLimit bounds HTML captures so diagnostics stay loggable
const snapshotLimit = 64 * 1024

// page drives a single chromedp page. Cookie operations are rejected when the
// page rides the shared probe browser.
type page struct {
	browserCtx   context.Context
	credentialed bool
	navTimeout   time.Duration
	selTimeout   time.Duration
	logger       arbor.ILogger
}

func (p *page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := p.browserCtx
	var cancel context.CancelFunc

	// Honor the tighter of the caller's deadline and the step timeout
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	return chromedp.Run(runCtx, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *page) Location(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, p.selTimeout, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return location, nil
}

// Resolve tries each strategy in the chain in order. A strategy matches when
// its query yields a visible element within the per-selector timeout.
func (p *page) Resolve(ctx context.Context, chain platforms.SelectorChain) (string, error) {
	for _, selector := range chain {
		err := p.run(ctx, p.selTimeout, chromedp.WaitVisible(selector.Query, chromedp.ByQuery))
		if err == nil {
			p.logger.Debug().
				Str("kind", string(selector.Kind)).
				Str("query", selector.Query).
				Msg("Selector strategy matched")
			return selector.Query, nil
		}

		// A dead browser fails every remaining strategy the same way
		if p.browserCtx.Err() != nil {
			return "", fmt.Errorf("browser context lost while resolving selector: %w", p.browserCtx.Err())
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("cancelled while resolving selector: %w", ctx.Err())
		}

		p.logger.Debug().
			Str("kind", string(selector.Kind)).
			Str("query", selector.Query).
			Msg("Selector strategy did not match, trying next")
	}

	return "", fmt.Errorf("%w after %d strategies", interfaces.ErrNoSelectorMatched, len(chain))
}

func (p *page) Click(ctx context.Context, selector string) error {
	if err := p.run(ctx, p.selTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// ClearAndType selects and deletes any existing content, strips inherited
// formatting, then enters text through simulated key events. Rich-text
// editors ignore direct DOM writes, so everything goes through the input
// pipeline.
func (p *page) ClearAndType(ctx context.Context, selector, text string) error {
	clearScript := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el && el.isContentEditable) {
			document.execCommand('selectAll', false, null);
			document.execCommand('removeFormat', false, null);
		}
	})()`, selector)

	if err := p.run(ctx, p.selTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, kb.Control+"a", chromedp.ByQuery),
		chromedp.Evaluate(clearScript, nil),
		chromedp.SendKeys(selector, kb.Delete, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

func (p *page) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, p.selTimeout,
		chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (p *page) AttrHref(ctx context.Context, selector string) (string, error) {
	var href string
	var ok bool
	if err := p.run(ctx, p.selTimeout,
		chromedp.AttributeValue(selector, "href", &href, &ok, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to read href of %s: %w", selector, err)
	}
	if !ok {
		return "", fmt.Errorf("element %s has no href attribute", selector)
	}
	return href, nil
}

// SetCookies injects a jar via the CDP network domain. Cookies without a
// domain are scoped to defaultDomain; leading dots are stripped because the
// protocol rejects them.
func (p *page) SetCookies(ctx context.Context, jar models.CookieJar, defaultDomain string) error {
	if !p.credentialed {
		return interfaces.ErrSharedContextForbidden
	}
	if !jar.Valid() {
		return fmt.Errorf("refusing to inject empty cookie jar")
	}

	params := make([]*network.CookieParam, 0, len(jar))
	for _, c := range jar {
		domain := c.Domain
		if domain == "" {
			domain = defaultDomain
		}
		domain = strings.TrimPrefix(domain, ".")

		path := c.Path
		if path == "" {
			path = "/"
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}

		if c.Expires > 0 {
			expiresTime := time.Unix(c.Expires, 0)
			if expiresTime.After(time.Now()) {
				timestamp := cdp.TimeSinceEpoch(expiresTime)
				param.Expires = &timestamp
			}
		}

		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}

		params = append(params, param)
	}

	err := p.run(ctx, p.selTimeout,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, param := range params {
				if err := network.SetCookie(param.Name, param.Value).
					WithDomain(param.Domain).
					WithPath(param.Path).
					WithSecure(param.Secure).
					WithHTTPOnly(param.HTTPOnly).
					WithSameSite(param.SameSite).
					WithExpires(param.Expires).
					Do(ctx); err != nil {
					return fmt.Errorf("failed to inject cookie %s: %w", param.Name, err)
				}
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	p.logger.Debug().
		Int("cookie_count", len(params)).
		Str("default_domain", defaultDomain).
		Msg("Cookie jar injected")
	return nil
}

// Cookies extracts the full browser jar, not just cookies for the current
// URL, so refreshed tokens set during navigation are captured too.
func (p *page) Cookies(ctx context.Context) (models.CookieJar, error) {
	if !p.credentialed {
		return nil, interfaces.ErrSharedContextForbidden
	}

	var jar models.CookieJar
	err := p.run(ctx, p.selTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := cdpstorage.GetCookies().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to read browser cookies: %w", err)
			}
			for _, c := range cookies {
				cookie := models.Cookie{
					Name:     c.Name,
					Value:    c.Value,
					Domain:   c.Domain,
					Path:     c.Path,
					Secure:   c.Secure,
					HTTPOnly: c.HTTPOnly,
					SameSite: string(c.SameSite),
				}
				if c.Expires > 0 {
					cookie.Expires = int64(c.Expires)
				}
				jar = append(jar, cookie)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("cookie_count", len(jar)).
		Msg("Cookie jar extracted")
	return jar, nil
}

func (p *page) Snapshot(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, p.selTimeout,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to capture page snapshot: %w", err)
	}
	if len(html) > snapshotLimit {
		html = html[:snapshotLimit]
	}
	return html, nil
}

var _ interfaces.Page = (*page)(nil)

package platforms

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/scribo/internal/models"
)

// Definition describes how to drive one platform's web UI. Everything here
// is data, not control flow, so selector sets and URL patterns can be
// updated without touching the pipeline or state machine.
type Definition struct {
	Platform models.Platform `toml:"platform" json:"platform" validate:"required"`

	// CookieDomain scopes cookies that arrive without a domain (header-shape jars)
	CookieDomain string `toml:"cookie_domain" json:"cookie_domain" validate:"required"`

	// Login flow
	LoginURL         string        `toml:"login_url" json:"login_url" validate:"required,url"`
	PostLoginURL     string        `toml:"post_login_url" json:"post_login_url" validate:"required,url"`
	UsernameField    SelectorChain `toml:"username_field" json:"username_field"`
	UsernameNext     SelectorChain `toml:"username_next" json:"username_next"` // optional: two-step username/password flows
	PasswordField    SelectorChain `toml:"password_field" json:"password_field"`
	LoginSubmit      SelectorChain `toml:"login_submit" json:"login_submit"`
	LoginURLPatterns []string      `toml:"login_url_patterns" json:"login_url_patterns" validate:"min=1"`

	// Challenge and error markers are heuristic by nature. They match against
	// the page snapshot and are expected to need maintenance as platforms change.
	CaptchaMarkers      []string `toml:"captcha_markers" json:"captcha_markers"`
	SecondFactorMarkers []string `toml:"second_factor_markers" json:"second_factor_markers"`
	LoginErrorMarkers   []string `toml:"login_error_markers" json:"login_error_markers"`
	MissingTargetMarkers []string `toml:"missing_target_markers" json:"missing_target_markers"` // e.g. account has no blog to post to

	// Editor flow
	ComposeURL    string        `toml:"compose_url" json:"compose_url" validate:"required,url"`
	TitleField    SelectorChain `toml:"title_field" json:"title_field"`
	BodyField     SelectorChain `toml:"body_field" json:"body_field"`
	PublishButton SelectorChain `toml:"publish_button" json:"publish_button"`
	ConfirmButton SelectorChain `toml:"confirm_button" json:"confirm_button"` // optional second "confirm" action
	RichText      bool          `toml:"rich_text" json:"rich_text"`           // editor accepts rich markup

	// Post-submission verification
	ComposeURLPatterns  []string `toml:"compose_url_patterns" json:"compose_url_patterns" validate:"min=1"`
	PostURLPattern      string   `toml:"post_url_pattern" json:"post_url_pattern"` // regexp with post id capture group
	ListingURL          string   `toml:"listing_url" json:"listing_url"`
	ListingLinkSelector string   `toml:"listing_link_selector" json:"listing_link_selector"`

	// Opportunistic account metadata
	DisplayNameSelector string `toml:"display_name_selector" json:"display_name_selector"`
	ProfileURLSelector  string `toml:"profile_url_selector" json:"profile_url_selector"`

	postURLRegex *regexp.Regexp
}

var validate = validator.New()

// Validate checks the definition is complete and its selector chains are ordered
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("platform %s: %w", d.Platform, err)
	}

	chains := map[string]SelectorChain{
		"username_field": d.UsernameField,
		"password_field": d.PasswordField,
		"login_submit":   d.LoginSubmit,
		"title_field":    d.TitleField,
		"body_field":     d.BodyField,
		"publish_button": d.PublishButton,
	}
	for name, chain := range chains {
		if err := chain.Validate(); err != nil {
			return fmt.Errorf("platform %s: %s: %w", d.Platform, name, err)
		}
	}

	if d.PostURLPattern != "" {
		re, err := regexp.Compile(d.PostURLPattern)
		if err != nil {
			return fmt.Errorf("platform %s: post_url_pattern: %w", d.Platform, err)
		}
		d.postURLRegex = re
	}

	return nil
}

// ExtractPostID pulls the post identifier out of a post-submission URL.
// Returns empty when the pattern does not match; callers fall back to the
// listing view in that case.
func (d *Definition) ExtractPostID(location string) string {
	if d.postURLRegex == nil {
		return ""
	}
	match := d.postURLRegex.FindStringSubmatch(location)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

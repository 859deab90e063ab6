package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Cookie represents a single browser cookie captured from an authenticated session
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// ToHTTPCookie converts to a standard HTTP cookie
func (c *Cookie) ToHTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}

	if c.Expires > 0 {
		cookie.Expires = time.Unix(c.Expires, 0)
	}

	switch strings.ToLower(c.SameSite) {
	case "strict":
		cookie.SameSite = http.SameSiteStrictMode
	case "lax":
		cookie.SameSite = http.SameSiteLaxMode
	case "none":
		cookie.SameSite = http.SameSiteNoneMode
	default:
		cookie.SameSite = http.SameSiteDefaultMode
	}

	return cookie
}

// CookieJar is an ordered set of cookies. The engine round-trips jars without
// interpreting them except for domain scoping on injection.
type CookieJar []Cookie

// Valid reports whether the jar can be injected. An empty jar is never valid.
func (j CookieJar) Valid() bool {
	return len(j) > 0
}

// Names returns the cookie names in jar order
func (j CookieJar) Names() []string {
	names := make([]string, len(j))
	for i, c := range j {
		names[i] = c.Name
	}
	return names
}

// Serialize produces the canonical egress shape: a JSON array of cookie records.
// The flat "name=value; name=value" header shape is accepted on ingest only.
func (j CookieJar) Serialize() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("refusing to serialize empty cookie jar")
	}
	return json.Marshal(j)
}

// ParseCookieJar accepts both supported ingest shapes: a JSON array of
// {name, value, domain, path} records, or a flat "name=value; name=value"
// header string. The header shape carries no domain/path; the caller scopes
// those on injection.
func ParseCookieJar(data []byte) (CookieJar, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty cookie data")
	}

	if strings.HasPrefix(trimmed, "[") {
		var jar CookieJar
		if err := json.Unmarshal([]byte(trimmed), &jar); err != nil {
			return nil, fmt.Errorf("failed to parse cookie jar JSON: %w", err)
		}
		if !jar.Valid() {
			return nil, fmt.Errorf("cookie jar contains no cookies")
		}
		return jar, nil
	}

	return parseCookieHeader(trimmed)
}

// parseCookieHeader parses the flat "name=value; name=value" shape
func parseCookieHeader(header string) (CookieJar, error) {
	var jar CookieJar
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed cookie pair: %q", pair)
		}
		jar = append(jar, Cookie{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
			Path:  "/",
		})
	}
	if !jar.Valid() {
		return nil, fmt.Errorf("cookie header contained no pairs")
	}
	return jar, nil
}

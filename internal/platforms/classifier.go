package platforms

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Outcome is the classified result of inspecting a page after navigation.
// Classification is heuristic by nature: there is no formal protocol to rely
// on, so when a page is ambiguous the classifier prefers the failure-leaning
// reading (false negative over false positive).
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeLoginPage     Outcome = "login_page"
	OutcomeCaptcha       Outcome = "captcha"
	OutcomeSecondFactor  Outcome = "second_factor"
	OutcomeCredentialErr Outcome = "credential_error"
	OutcomeMissingTarget Outcome = "missing_target"
)

// Classification carries the outcome plus whatever diagnostic context the
// classifier could pull from the page
type Classification struct {
	Outcome   Outcome
	Marker    string // selector or pattern that matched
	ErrorText string // visible error message, when one was found
}

// Classifier inspects a location and page snapshot and decides what state
// the flow is in. Implementations are per platform and swappable.
type Classifier interface {
	Classify(location, snapshotHTML string) Classification
	// OnComposeSurface reports whether a location still matches the authoring
	// surface. Post-submission success is inferred from leaving it.
	OnComposeSurface(location string) bool
}

// SnapshotClassifier is the default classifier, driven entirely by the
// platform definition's URL patterns and page markers
type SnapshotClassifier struct {
	def *Definition
}

// NewSnapshotClassifier builds the default classifier for a definition
func NewSnapshotClassifier(def *Definition) *SnapshotClassifier {
	return &SnapshotClassifier{def: def}
}

// Classify applies, in order: challenge markers (most specific), credential
// error markers, missing-target markers, then login URL patterns. A page
// that matches nothing and sits outside the login URL space is considered
// authenticated.
func (c *SnapshotClassifier) Classify(location, snapshotHTML string) Classification {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshotHTML))
	if err != nil {
		// Unparseable snapshot: fall back to URL-only classification
		doc = nil
	}

	if doc != nil {
		if marker := firstMatch(doc, c.def.CaptchaMarkers); marker != "" {
			return Classification{Outcome: OutcomeCaptcha, Marker: marker}
		}
		if marker := firstMatch(doc, c.def.SecondFactorMarkers); marker != "" {
			return Classification{Outcome: OutcomeSecondFactor, Marker: marker}
		}
		if marker := firstMatch(doc, c.def.LoginErrorMarkers); marker != "" {
			text := strings.TrimSpace(doc.Find(marker).First().Text())
			return Classification{Outcome: OutcomeCredentialErr, Marker: marker, ErrorText: text}
		}
		if marker := firstMatch(doc, c.def.MissingTargetMarkers); marker != "" {
			return Classification{Outcome: OutcomeMissingTarget, Marker: marker}
		}
	}

	for _, pattern := range c.def.LoginURLPatterns {
		if strings.Contains(location, pattern) {
			return Classification{Outcome: OutcomeLoginPage, Marker: pattern}
		}
	}

	return Classification{Outcome: OutcomeAuthenticated}
}

// OnComposeSurface reports whether the location still matches the authoring
// surface's URL patterns
func (c *SnapshotClassifier) OnComposeSurface(location string) bool {
	for _, pattern := range c.def.ComposeURLPatterns {
		if strings.Contains(location, pattern) {
			return true
		}
	}
	return false
}

// firstMatch returns the first marker selector present in the document.
// Markers that fail to parse as selectors are skipped rather than failing
// the classification.
func firstMatch(doc *goquery.Document, markers []string) string {
	for _, marker := range markers {
		found := false
		func() {
			defer func() { _ = recover() }()
			found = doc.Find(marker).Length() > 0
		}()
		if found {
			return marker
		}
	}
	return ""
}

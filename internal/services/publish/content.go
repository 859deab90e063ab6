package publish

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// PrepareBody turns the caller's HTML body into text the editor can receive
// through simulated typing. Typed input carries no markup, so links are
// degraded to "text (url)" first; plain-text editors additionally get the
// whole body flattened through the markdown converter.
func PrepareBody(bodyHTML string, richText bool) (string, error) {
	degraded, err := degradeLinks(bodyHTML)
	if err != nil {
		return "", err
	}

	if richText {
		return extractText(degraded)
	}

	converter := md.NewConverter("", true, nil)
	plain, err := converter.ConvertString(degraded)
	if err != nil {
		return "", fmt.Errorf("failed to flatten body to plain text: %w", err)
	}
	return strings.TrimSpace(plain), nil
}

// degradeLinks rewrites anchors so the target URL stays visible once markup
// is lost. Anchors whose text already is the URL are left alone.
func degradeLinks(bodyHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse body HTML: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if href == "" || text == href || text == "" {
			if text == "" {
				sel.ReplaceWithHtml(href)
			}
			return
		}
		sel.ReplaceWithHtml(fmt.Sprintf("%s (%s)", text, href))
	})

	html, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render degraded body: %w", err)
	}
	return html, nil
}

// extractText flattens HTML to visible text, keeping paragraph breaks
func extractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse body HTML: %w", err)
	}

	var parts []string
	blocks := doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre")
	if blocks.Length() == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	blocks.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n"), nil
}

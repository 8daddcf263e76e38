// HTML extraction helpers for scraped profile and video pages.
//
// Parsing is separated from browser driving so selector behavior can be
// tested against captured page fixtures without a browser.
package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// musicSelectors are tried in order on a video page. TikTok rotates its
// class names, so substring class matches come before data attributes.
var musicSelectors = []string{
	`div[class*="DivMusicText"]`,
	`div[class*="MusicText"]`,
	`a[data-e2e="browse-music"]`,
	`a[data-e2e="video-music"]`,
	`[data-e2e="browse-music-name"]`,
}

// postItemSelector matches one tile in the profile's video grid.
const postItemSelector = `div[data-e2e="user-post-item"]`

// VideoLinks returns the video URLs in the profile grid, in page order.
// Relative hrefs are kept as-is; the engine resolves them against the page.
func VideoLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find(postItemSelector + " a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.Contains(href, "/video/") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})

	return links, nil
}

// AudioTitle extracts the audio title from a video page, trying each known
// selector in order. Returns "" when no selector matches or the matched
// element is empty.
func AudioTitle(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	for _, selector := range musicSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text, nil
		}
	}

	return "", nil
}

// IsBlocked reports whether the page is an anti-bot interstitial rather than
// profile content.
func IsBlocked(html string) bool {
	lower := strings.ToLower(html)

	for _, marker := range []string{
		"something went wrong",
		"access denied",
		"verify to continue",
		"captcha-verify",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// IsMissingProfile reports whether the page says the account does not exist.
func IsMissingProfile(html string) bool {
	lower := strings.ToLower(html)

	for _, marker := range []string{
		"couldn't find this account",
		"couldn&#39;t find this account",
		"page not available",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// IsEmptyProfile reports whether the profile exists but has posted nothing.
func IsEmptyProfile(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	if doc.Find(postItemSelector).Length() > 0 {
		return false
	}

	lower := strings.ToLower(html)
	return strings.Contains(lower, "no content") || strings.Contains(lower, "hasn't posted")
}

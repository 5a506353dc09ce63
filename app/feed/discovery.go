package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var feedLinkTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
	"application/feed+json": true,
}

// DiscoverFeedURL scans an HTML page for an RSS/Atom <link> declaration and
// returns the first advertised feed URL, resolved against the page URL.
// Returns an empty string when the page advertises no feed.
func DiscoverFeedURL(data []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}

	var found string
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkType, _ := s.Attr("type")
		if !feedLinkTypes[strings.ToLower(strings.TrimSpace(linkType))] {
			return true
		}

		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}

		found = base.ResolveReference(ref).String()
		return false
	})

	return found, nil
}

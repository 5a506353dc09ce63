package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// contentSelectors is the ordered list of containers commonly holding the
// article body. The first non-empty match wins.
var contentSelectors = []string{
	"article",
	".article-body",
	".post-content",
	".entry-content",
	".main-content",
	".content",
	".post-body",
	".blog-post-body",
}

// Scraper extracts the readable text of an article page.
type Scraper struct{}

func NewScraper() *Scraper {
	return &Scraper{}
}

// Run tries each content selector in order and returns the first match's
// text. When no selector matches, it falls back to readability extraction
// over the whole page, and finally to the raw document text.
func (s *Scraper) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := normalizeText(sel.Text()); text != "" {
			return text, nil
		}
	}

	if article, err := readability.FromReader(bytes.NewReader(data), nil); err == nil {
		if text := normalizeText(article.TextContent); text != "" {
			return text, nil
		}
	}

	if text := normalizeText(doc.Text()); text != "" {
		return text, nil
	}

	return "", fmt.Errorf("no content extracted from HTML data")
}

// normalizeText collapses the whitespace noise left behind by stripped
// markup into single spaces and newlines.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	normalized := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			normalized = append(normalized, line)
		}
	}
	return strings.Join(normalized, "\n")
}

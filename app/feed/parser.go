package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses feed data and returns metadata plus normalized entries in
// document order. Entries without a structured publish time keep a nil
// PublishedAt; the absence is meaningful for ordering and must not be
// defaulted to the current time.
func (p *Parser) Run(data []byte) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title: feed.Title,
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, p.normalizeEntry(item))
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeEntry(item *gofeed.Item) Entry {
	entry := Entry{
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	}

	return entry
}

package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
)

// Resolver turns a user-supplied URL into a subscribable feed. The URL may
// point at the feed document itself or at an HTML page advertising one via
// a <link> declaration.
type Resolver struct {
	client *Client
	parser *Parser
}

func NewResolver(client *Client, parser *Parser) *Resolver {
	return &Resolver{client: client, parser: parser}
}

// Resolve fetches the URL and returns the feed URL and its title. When the
// document is not a parseable feed, it falls back to feed-link discovery on
// the page. Feeds without a title get a placeholder.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, string, error) {
	data, err := r.client.FetchFeed(ctx, rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUpstreamFetch, err)
	}

	metadata, _, err := r.parser.Run(data)
	if err == nil {
		return rawURL, cmp.Or(metadata.Title, "Untitled Feed"), nil
	}

	slog.Debug("URL is not a feed, trying feed-link discovery", "url", rawURL, "error", err)

	feedURL, err := DiscoverFeedURL(data, rawURL)
	if err != nil || feedURL == "" {
		return "", "", fmt.Errorf("%w: no feed found at %s", ErrUpstreamFetch, rawURL)
	}

	feedData, err := r.client.FetchFeed(ctx, feedURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUpstreamFetch, err)
	}

	metadata, _, err = r.parser.Run(feedData)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUpstreamFetch, err)
	}

	return feedURL, cmp.Or(metadata.Title, "Untitled Feed"), nil
}

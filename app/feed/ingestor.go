package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/ykarpov/feedkeep/app/database"
)

// Ingestor pulls a feed's entries and merges them into the article store
// exactly once each. Re-running against an already-seen feed is a pure
// no-op for existing rows.
type Ingestor struct {
	client      *Client
	parser      *Parser
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
}

func NewIngestor(client *Client, parser *Parser, feedRepo database.FeedRepository,
	articleRepo database.ArticleRepository) *Ingestor {
	return &Ingestor{
		client:      client,
		parser:      parser,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
	}
}

// Ingest fetches the feed owned by token and stores its entries. A fetch or
// parse failure aborts before any write; a storage failure mid-way leaves
// earlier inserts in place (ingestion is entry-at-a-time, not transactional).
func (i *Ingestor) Ingest(ctx context.Context, token string, feedID int64) (*IngestResult, error) {
	feed, err := i.feedRepo.GetFeed(token, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up feed: %w", err)
	}
	if feed == nil {
		return nil, ErrFeedNotFound
	}

	data, err := i.client.FetchFeed(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFetch, err)
	}

	_, entries, err := i.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFetch, err)
	}

	result := &IngestResult{Total: len(entries)}

	for _, entry := range entries {
		if entry.Link == "" {
			result.Skipped++
			continue
		}

		inserted, err := i.articleRepo.InsertIfAbsent(database.Article{
			FeedID: feedID,
			Title:  entry.Title,
			URL:    entry.Link,
			// Full content is scraped on demand, never during ingestion;
			// the inline description (or the title) is enough to display.
			Content:     cmp.Or(entry.Description, entry.Title),
			PublishedAt: entry.PublishedAt,
			Token:       token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store article: %w", err)
		}

		if inserted {
			result.New++
		} else {
			result.Skipped++
		}
	}

	slog.Info("Feed ingested",
		"feed_id", feedID,
		"url", feed.URL,
		"total", result.Total,
		"new", result.New,
		"skipped", result.Skipped)

	return result, nil
}

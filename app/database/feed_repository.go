package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateFeed is returned when a (url, token) pair is already subscribed.
var ErrDuplicateFeed = errors.New("feed already exists")

// FeedRepo handles database operations for feed subscriptions. Every query
// is scoped by token; a token never sees another token's rows.
type FeedRepo struct {
	db *DB
}

func NewFeedRepo(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

// CreateFeed inserts a new subscription and returns its id. Duplicate
// detection rides on the UNIQUE (url, token) constraint, so concurrent
// subscribes to the same URL cannot race past a separate existence check.
func (r *FeedRepo) CreateFeed(token, url, title string) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO feeds (url, title, token)
		VALUES (?, ?, ?)
	`, url, title, token)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateFeed
		}
		return 0, fmt.Errorf("failed to insert feed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted feed id: %w", err)
	}

	return id, nil
}

// GetFeed retrieves a feed by id, scoped to the owning token. Returns
// (nil, nil) when no row matches, including ids owned by other tokens.
func (r *FeedRepo) GetFeed(token string, feedID int64) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, url, title, token, created_at
		FROM feeds
		WHERE id = ? AND token = ?
	`, feedID, token).Scan(&feed.ID, &feed.URL, &feed.Title, &feed.Token, &feed.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

// ListUnread returns the token's feeds that currently have at least one
// unread, listed article, ordered by unread count descending. Feeds with
// nothing new are omitted entirely.
func (r *FeedRepo) ListUnread(token string) ([]FeedUnread, error) {
	rows, err := r.db.Query(`
		SELECT f.id, f.url, f.title, COUNT(a.id) AS unread_count
		FROM feeds f
		JOIN articles a ON a.feed_id = f.id AND a.token = f.token
		WHERE f.token = ?
		  AND a.is_read = FALSE
		  AND a.unlisted = FALSE
		GROUP BY f.id, f.url, f.title
		ORDER BY unread_count DESC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread feeds: %w", err)
	}
	defer rows.Close()

	var feeds []FeedUnread
	for rows.Next() {
		var feed FeedUnread
		if err := rows.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// CountFeeds returns the total number of feeds across all tokens
func (r *FeedRepo) CountFeeds() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

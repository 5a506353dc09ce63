package database

import (
	"time"
)

type Feed struct {
	ID        int64
	URL       string
	Title     string // captured at subscribe time, never refreshed
	Token     string
	CreatedAt time.Time
}

// FeedUnread is a feed row joined with its current unread article count.
type FeedUnread struct {
	ID          int64
	URL         string
	Title       string
	UnreadCount int
}

type Article struct {
	ID          int64
	FeedID      int64
	Title       string
	URL         string
	Content     string
	PublishedAt *time.Time // nil when the source entry had no publish time
	IsRead      bool
	Starred     bool
	Unlisted    bool
	Token       string
	CreatedAt   time.Time
}

package feed

import (
	"errors"
	"time"
)

// ErrFeedNotFound is returned when a feed id is unknown or owned by a
// different token.
var ErrFeedNotFound = errors.New("feed not found")

// ErrUpstreamFetch marks failures of the outbound fetch or parse step, as
// opposed to local storage errors.
var ErrUpstreamFetch = errors.New("upstream fetch failure")

// Metadata describes the feed document itself.
type Metadata struct {
	Title string
}

// Entry is a single normalized feed entry.
type Entry struct {
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time // nil when the entry carries no publish time
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Total   int
	New     int
	Skipped int
}

package api

import (
	"time"

	"github.com/ykarpov/feedkeep/app/database"
)

type subscribeRequest struct {
	URL string `json:"url"`
}

type starRequest struct {
	Starred bool `json:"starred"`
}

type feedResponse struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unread_count"`
}

type articleResponse struct {
	ID          int64   `json:"id"`
	FeedID      int64   `json:"feed_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     string  `json:"content"`
	PublishedAt *string `json:"published_at"`
	IsRead      bool    `json:"is_read"`
	Starred     bool    `json:"starred"`
}

func newArticleResponse(article database.Article) articleResponse {
	resp := articleResponse{
		ID:      article.ID,
		FeedID:  article.FeedID,
		Title:   article.Title,
		URL:     article.URL,
		Content: article.Content,
		IsRead:  article.IsRead,
		Starred: article.Starred,
	}

	if article.PublishedAt != nil {
		formatted := article.PublishedAt.Format(time.RFC3339)
		resp.PublishedAt = &formatted
	}

	return resp
}

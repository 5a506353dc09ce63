package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ykarpov/feedkeep/app/cfg"
	"github.com/ykarpov/feedkeep/app/database"
	"github.com/ykarpov/feedkeep/app/feed"
	"github.com/ykarpov/feedkeep/app/suggestions"
)

type Handler struct {
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	ingestor    *feed.Ingestor
	resolver    *feed.Resolver
	client      *feed.Client
	scraper     *feed.Scraper
	suggestions []suggestions.Suggestion
}

func NewHandler(feedRepo database.FeedRepository, articleRepo database.ArticleRepository,
	ingestor *feed.Ingestor, resolver *feed.Resolver, client *feed.Client,
	scraper *feed.Scraper, suggested []suggestions.Suggestion) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		ingestor:    ingestor,
		resolver:    resolver,
		client:      client,
		scraper:     scraper,
		suggestions: suggested,
	}
}

// Index serves the browser client. First-time visitors get a fresh token
// cookie; a feed_url query parameter subscribes immediately, mirroring the
// share-a-link flow.
func (h *Handler) Index(c *gin.Context) {
	token, err := c.Cookie(tokenCookieName)
	if err != nil || token == "" {
		token, err = generateToken()
		if err != nil {
			slog.Error("Token generation failed", "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	if feedURL := c.Query("feed_url"); feedURL != "" {
		h.subscribeQuietly(c, token, feedURL)
	}

	c.SetCookie(tokenCookieName, token, tokenCookieMaxAge, "/", "", false, true)
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

// subscribeQuietly performs a best-effort subscription for the index
// feed_url shortcut; failures are logged, never surfaced.
func (h *Handler) subscribeQuietly(c *gin.Context, token, feedURL string) {
	resolvedURL, title, err := h.resolver.Resolve(c.Request.Context(), feedURL)
	if err != nil {
		slog.Error("Feed resolution failed", "url", feedURL, "error", err)
		return
	}

	if _, err := h.feedRepo.CreateFeed(token, resolvedURL, title); err != nil &&
		!errors.Is(err, database.ErrDuplicateFeed) {
		slog.Error("Database error", "operation", "create_feed", "url", resolvedURL, "error", err)
	}
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	token := tokenFrom(c)

	feedURL, title, err := h.resolver.Resolve(c.Request.Context(), req.URL)
	if err != nil {
		slog.Error("Feed resolution failed", "url", req.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not fetch or parse feed"})
		return
	}

	feedID, err := h.feedRepo.CreateFeed(token, feedURL, title)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateFeed) {
			c.JSON(http.StatusConflict, gin.H{"error": "Feed already exists"})
			return
		}
		slog.Error("Database error", "operation", "create_feed", "url", feedURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": feedID, "url": feedURL, "title": title})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	token := tokenFrom(c)

	unread, err := h.feedRepo.ListUnread(token)
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]feedResponse, 0, len(unread))
	for _, f := range unread {
		feeds = append(feeds, feedResponse{
			ID:          f.ID,
			URL:         f.URL,
			Title:       f.Title,
			UnreadCount: f.UnreadCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds})
}

func (h *Handler) RefreshFeed(c *gin.Context) {
	feedID, ok := idParam(c)
	if !ok {
		return
	}

	token := tokenFrom(c)

	result, err := h.ingestor.Ingest(c.Request.Context(), token, feedID)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrFeedNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		case errors.Is(err, feed.ErrUpstreamFetch):
			slog.Error("Feed fetch failed", "feed_id", feedID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not fetch or parse feed"})
		default:
			slog.Error("Ingestion failed", "feed_id", feedID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   result.Total,
		"new":     result.New,
		"skipped": result.Skipped,
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	feedID, ok := idParam(c)
	if !ok {
		return
	}

	token := tokenFrom(c)

	owned, err := h.feedRepo.GetFeed(token, feedID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", feedID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if owned == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	articles, err := h.articleRepo.ListByFeed(token, feedID)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "feed_id", feedID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": toArticleResponses(articles)})
}

func (h *Handler) ListStarred(c *gin.Context) {
	token := tokenFrom(c)

	articles, err := h.articleRepo.ListStarred(token)
	if err != nil {
		slog.Error("Database error", "operation", "list_starred", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": toArticleResponses(articles)})
}

func (h *Handler) MarkRead(c *gin.Context) {
	articleID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.articleRepo.MarkRead(tokenFrom(c), articleID); err != nil {
		slog.Error("Database error", "operation", "mark_read", "article_id", articleID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) MarkAllStarredRead(c *gin.Context) {
	if err := h.articleRepo.MarkAllStarredRead(tokenFrom(c)); err != nil {
		slog.Error("Database error", "operation", "mark_all_starred_read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ToggleStarred(c *gin.Context) {
	articleID, ok := idParam(c)
	if !ok {
		return
	}

	var req starRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.articleRepo.SetStarred(tokenFrom(c), articleID, req.Starred); err != nil {
		slog.Error("Database error", "operation", "toggle_starred", "article_id", articleID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// FetchContent scrapes the article's page on demand and stores the result.
// A failed fetch or scrape degrades to an empty content response; the
// stored content is left untouched.
func (h *Handler) FetchContent(c *gin.Context) {
	articleID, ok := idParam(c)
	if !ok {
		return
	}

	token := tokenFrom(c)

	article, err := h.articleRepo.GetArticle(token, articleID)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "article_id", articleID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	data, err := h.client.FetchPage(c.Request.Context(), article.URL)
	if err != nil {
		slog.Error("Page fetch failed", "article_id", articleID, "url", article.URL, "error", err)
		c.JSON(http.StatusOK, gin.H{"content": ""})
		return
	}

	content, err := h.scraper.Run(data)
	if err != nil {
		slog.Error("Content extraction failed", "article_id", articleID, "url", article.URL, "error", err)
		c.JSON(http.StatusOK, gin.H{"content": ""})
		return
	}

	if err := h.articleRepo.UpdateContent(token, articleID, content); err != nil {
		slog.Error("Database error", "operation", "update_content", "article_id", articleID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *Handler) PurgeFeed(c *gin.Context) {
	feedID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.articleRepo.Purge(tokenFrom(c), feedID); err != nil {
		slog.Error("Database error", "operation", "purge_feed", "feed_id", feedID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetSuggestions(c *gin.Context) {
	suggested := h.suggestions
	if suggested == nil {
		suggested = []suggestions.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggested})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	}

	if feedCount, err := h.feedRepo.CountFeeds(); err == nil {
		health["feeds"] = feedCount
	}
	if articleCount, err := h.articleRepo.CountArticles(); err == nil {
		health["articles"] = articleCount
	}

	c.JSON(http.StatusOK, health)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id parameter"})
		return 0, false
	}
	return id, true
}

func toArticleResponses(articles []database.Article) []articleResponse {
	responses := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		responses = append(responses, newArticleResponse(article))
	}
	return responses
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ykarpov/feedkeep/app/database"
	"github.com/ykarpov/feedkeep/app/feed"
	"github.com/ykarpov/feedkeep/app/suggestions"
)

const apiTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>API Test Feed</title>
    <item>
      <title>First</title>
      <link>https://example.com/first</link>
      <description>first article</description>
      <pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Second</title>
      <link>https://example.com/second</link>
      <description>second article</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Third</title>
      <link>https://example.com/third</link>
      <description>third article</description>
    </item>
  </channel>
</rss>`

type testEnv struct {
	router      *gin.Engine
	feedRepo    *database.FeedRepo
	articleRepo *database.ArticleRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	feedRepo := database.NewFeedRepo(db)
	articleRepo := database.NewArticleRepo(db)

	client := feed.NewClient("FeedKeep test", 5*time.Second)
	parser := feed.NewParser()
	resolver := feed.NewResolver(client, parser)
	ingestor := feed.NewIngestor(client, parser, feedRepo, articleRepo)
	scraper := feed.NewScraper()

	suggested := []suggestions.Suggestion{
		{Title: "Example Blog", URL: "https://example.com/feed.xml"},
	}

	handler := NewHandler(feedRepo, articleRepo, ingestor, resolver, client, scraper, suggested)

	return &testEnv{
		router:      NewServer(handler),
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func newUpstreamFeed(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(apiTestFeed))
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func (e *testEnv) subscribe(t *testing.T, token, url string) int64 {
	t.Helper()

	w := e.request(t, "POST", "/api/feeds", token, fmt.Sprintf(`{"url": %q}`, url))
	if w.Code != http.StatusOK {
		t.Fatalf("Subscribe failed with status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, w, &resp)
	return resp.ID
}

func TestTokenRequired(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/api/feeds"},
		{"POST", "/api/feeds"},
		{"GET", "/api/articles/starred"},
		{"POST", "/api/articles/1/read"},
		{"GET", "/api/suggestions"},
	}

	for _, p := range paths {
		w := env.request(t, p.method, p.path, "", "")
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s without token: expected 403, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestIndexIssuesTokenCookie(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "GET", "/", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var token string
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			token = cookie.Value
		}
	}
	if token == "" {
		t.Fatal("Expected a token cookie to be issued")
	}
}

func TestIndexKeepsExistingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "GET", "/", "existing-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" && cookie.Value != "existing-token" {
			t.Errorf("Returning visitor got a new token: %s", cookie.Value)
		}
	}
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t)
	upstream := newUpstreamFeed(t)

	w := env.request(t, "POST", "/api/feeds", "token-a", fmt.Sprintf(`{"url": %q}`, upstream.URL))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID    int64  `json:"id"`
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	decodeBody(t, w, &resp)

	if resp.ID <= 0 {
		t.Errorf("Expected a positive feed id, got %d", resp.ID)
	}
	if resp.URL != upstream.URL {
		t.Errorf("Expected feed URL '%s', got '%s'", upstream.URL, resp.URL)
	}
	if resp.Title != "API Test Feed" {
		t.Errorf("Expected title 'API Test Feed', got '%s'", resp.Title)
	}
}

func TestSubscribeValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "POST", "/api/feeds", "token-a", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing URL: expected 400, got %d", w.Code)
	}

	w = env.request(t, "POST", "/api/feeds", "token-a", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: expected 400, got %d", w.Code)
	}
}

func TestSubscribeDuplicate(t *testing.T) {
	env := newTestEnv(t)
	upstream := newUpstreamFeed(t)

	env.subscribe(t, "token-a", upstream.URL)

	w := env.request(t, "POST", "/api/feeds", "token-a", fmt.Sprintf(`{"url": %q}`, upstream.URL))
	if w.Code != http.StatusConflict {
		t.Errorf("Duplicate subscription: expected 409, got %d", w.Code)
	}

	// A different token may subscribe to the same URL
	w = env.request(t, "POST", "/api/feeds", "token-b", fmt.Sprintf(`{"url": %q}`, upstream.URL))
	if w.Code != http.StatusOK {
		t.Errorf("Other token subscribing to the same URL: expected 200, got %d", w.Code)
	}
}

func TestSubscribeUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	w := env.request(t, "POST", "/api/feeds", "token-a", fmt.Sprintf(`{"url": %q}`, upstream.URL))
	if w.Code != http.StatusBadGateway {
		t.Errorf("Unreachable upstream: expected 502, got %d", w.Code)
	}
}

func TestFeedLifecycle(t *testing.T) {
	env := newTestEnv(t)
	upstream := newUpstreamFeed(t)

	feedID := env.subscribe(t, "token-a", upstream.URL)

	// Refresh pulls all three entries
	w := env.request(t, "POST", fmt.Sprintf("/api/feeds/%d/refresh", feedID), "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Refresh failed with status %d: %s", w.Code, w.Body.String())
	}
	var refreshResp struct {
		Total int `json:"total"`
		New   int `json:"new"`
	}
	decodeBody(t, w, &refreshResp)
	if refreshResp.Total != 3 || refreshResp.New != 3 {
		t.Fatalf("Expected 3 total / 3 new, got %d / %d", refreshResp.Total, refreshResp.New)
	}

	// The feed shows up with three unread articles
	if got := env.unreadCount(t, "token-a", feedID); got != 3 {
		t.Errorf("Expected 3 unread, got %d", got)
	}

	// Newest first, the undated entry last
	articles := env.listArticles(t, "token-a", feedID)
	if len(articles) != 3 {
		t.Fatalf("Expected 3 articles, got %d", len(articles))
	}
	if articles[0].URL != "https://example.com/first" ||
		articles[1].URL != "https://example.com/second" ||
		articles[2].URL != "https://example.com/third" {
		t.Fatalf("Unexpected initial ordering: %s, %s, %s",
			articles[0].URL, articles[1].URL, articles[2].URL)
	}
	byURL := map[string]int64{}
	for _, a := range articles {
		byURL[a.URL] = a.ID
	}

	// Mark the first read
	w = env.request(t, "POST", fmt.Sprintf("/api/articles/%d/read", byURL["https://example.com/first"]), "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("MarkRead failed with status %d", w.Code)
	}
	if got := env.unreadCount(t, "token-a", feedID); got != 2 {
		t.Errorf("Expected 2 unread after mark read, got %d", got)
	}

	// Star the second; starring implies read
	w = env.request(t, "POST", fmt.Sprintf("/api/articles/%d/star", byURL["https://example.com/second"]), "token-a", `{"starred": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Star failed with status %d", w.Code)
	}
	if got := env.unreadCount(t, "token-a", feedID); got != 1 {
		t.Errorf("Expected 1 unread after starring, got %d", got)
	}

	// Unread first, then read, then starred
	articles = env.listArticles(t, "token-a", feedID)
	if articles[0].URL != "https://example.com/third" ||
		articles[1].URL != "https://example.com/first" ||
		articles[2].URL != "https://example.com/second" {
		t.Fatalf("Unexpected ordering after state changes: %s, %s, %s",
			articles[0].URL, articles[1].URL, articles[2].URL)
	}

	// Purge hides everything except the starred article
	w = env.request(t, "POST", fmt.Sprintf("/api/feeds/%d/purge", feedID), "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Purge failed with status %d", w.Code)
	}
	articles = env.listArticles(t, "token-a", feedID)
	if len(articles) != 1 || articles[0].URL != "https://example.com/second" {
		t.Fatalf("Expected only the starred article to survive purge, got %d articles", len(articles))
	}

	// The purged feed no longer appears in the unread list
	if got := env.unreadCount(t, "token-a", feedID); got != -1 {
		t.Errorf("Expected the feed to drop out of the unread list, found count %d", got)
	}

	// The starred view still lists it
	w = env.request(t, "GET", "/api/articles/starred", "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ListStarred failed with status %d", w.Code)
	}
	var starredResp struct {
		Articles []articleResponse `json:"articles"`
	}
	decodeBody(t, w, &starredResp)
	if len(starredResp.Articles) != 1 || starredResp.Articles[0].URL != "https://example.com/second" {
		t.Fatalf("Expected the starred article in the starred view, got %+v", starredResp.Articles)
	}

	w = env.request(t, "POST", "/api/articles/starred/read", "token-a", "")
	if w.Code != http.StatusOK {
		t.Errorf("MarkAllStarredRead failed with status %d", w.Code)
	}
}

// unreadCount returns the feed's unread count from the feed list, or -1
// when the feed is absent from it.
func (e *testEnv) unreadCount(t *testing.T, token string, feedID int64) int {
	t.Helper()

	w := e.request(t, "GET", "/api/feeds", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("ListFeeds failed with status %d", w.Code)
	}

	var resp struct {
		Feeds []feedResponse `json:"feeds"`
	}
	decodeBody(t, w, &resp)

	for _, f := range resp.Feeds {
		if f.ID == feedID {
			return f.UnreadCount
		}
	}
	return -1
}

func (e *testEnv) listArticles(t *testing.T, token string, feedID int64) []articleResponse {
	t.Helper()

	w := e.request(t, "GET", fmt.Sprintf("/api/feeds/%d/articles", feedID), token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("ListArticles failed with status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Articles []articleResponse `json:"articles"`
	}
	decodeBody(t, w, &resp)
	return resp.Articles
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	upstream := newUpstreamFeed(t)

	feedID := env.subscribe(t, "token-a", upstream.URL)

	// Another token sees an empty feed list
	w := env.request(t, "GET", "/api/feeds", "token-b", "")
	var resp struct {
		Feeds []feedResponse `json:"feeds"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Feeds) != 0 {
		t.Errorf("Foreign token sees %d feeds", len(resp.Feeds))
	}

	// And cannot touch the other token's feed
	w = env.request(t, "GET", fmt.Sprintf("/api/feeds/%d/articles", feedID), "token-b", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Foreign article listing: expected 404, got %d", w.Code)
	}
	w = env.request(t, "POST", fmt.Sprintf("/api/feeds/%d/refresh", feedID), "token-b", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Foreign refresh: expected 404, got %d", w.Code)
	}
}

func TestInvalidIDParam(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/articles/abc/read",
		"/api/articles/0/read",
		"/api/articles/-1/read",
	} {
		w := env.request(t, "POST", path, "token-a", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestRefreshUnknownFeed(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "POST", "/api/feeds/42/refresh", "token-a", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestToggleStarredValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "POST", "/api/articles/1/star", "token-a", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: expected 400, got %d", w.Code)
	}
}

func TestFetchContent(t *testing.T) {
	env := newTestEnv(t)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><article>Full text of the article.</article></body></html>`)
	}))
	defer page.Close()

	articleID := env.insertArticle(t, "token-a", page.URL)

	w := env.request(t, "POST", fmt.Sprintf("/api/articles/%d/content", articleID), "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("FetchContent failed with status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Content string `json:"content"`
	}
	decodeBody(t, w, &resp)
	if resp.Content != "Full text of the article." {
		t.Errorf("Unexpected content: %q", resp.Content)
	}

	// The scraped text replaces the stored content
	article, err := env.articleRepo.GetArticle("token-a", articleID)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: article=%v err=%v", article, err)
	}
	if article.Content != "Full text of the article." {
		t.Errorf("Stored content not updated: %q", article.Content)
	}
}

func TestFetchContentDegradesOnFailure(t *testing.T) {
	env := newTestEnv(t)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer page.Close()

	articleID := env.insertArticle(t, "token-a", page.URL)

	w := env.request(t, "POST", fmt.Sprintf("/api/articles/%d/content", articleID), "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on fetch failure, got %d", w.Code)
	}

	var resp struct {
		Content string `json:"content"`
	}
	decodeBody(t, w, &resp)
	if resp.Content != "" {
		t.Errorf("Expected empty content on fetch failure, got %q", resp.Content)
	}

	// Stored content is untouched
	article, err := env.articleRepo.GetArticle("token-a", articleID)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: article=%v err=%v", article, err)
	}
	if article.Content != "summary text" {
		t.Errorf("Stored content was modified: %q", article.Content)
	}
}

func TestFetchContentUnknownArticle(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "POST", "/api/articles/42/content", "token-a", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func (e *testEnv) insertArticle(t *testing.T, token, url string) int64 {
	t.Helper()

	feedID, err := e.feedRepo.CreateFeed(token, "https://example.com/feed.xml", "Example")
	if err != nil {
		t.Fatalf("CreateFeed failed: %v", err)
	}

	inserted, err := e.articleRepo.InsertIfAbsent(database.Article{
		FeedID:  feedID,
		Title:   "Example Article",
		URL:     url,
		Content: "summary text",
		Token:   token,
	})
	if err != nil || !inserted {
		t.Fatalf("InsertIfAbsent failed: inserted=%v err=%v", inserted, err)
	}

	articles, err := e.articleRepo.ListByFeed(token, feedID)
	if err != nil || len(articles) != 1 {
		t.Fatalf("ListByFeed failed: articles=%d err=%v", len(articles), err)
	}
	return articles[0].ID
}

func TestGetSuggestions(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, "GET", "/api/suggestions", "token-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Suggestions []suggestions.Suggestion `json:"suggestions"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].Title != "Example Blog" {
		t.Errorf("Unexpected suggestions: %+v", resp.Suggestions)
	}
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t)
	upstream := newUpstreamFeed(t)
	env.subscribe(t, "token-a", upstream.URL)

	w := env.request(t, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Feeds     int    `json:"feeds"`
		Articles  int    `json:"articles"`
		Version   string `json:"version"`
		Timestamp string `json:"timestamp"`
	}
	decodeBody(t, w, &resp)

	if resp.Feeds != 1 {
		t.Errorf("Expected 1 feed, got %d", resp.Feeds)
	}
	if resp.Version == "" {
		t.Error("Expected a version string")
	}
	if resp.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	b, err := generateToken()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if a == b {
		t.Error("Expected distinct tokens")
	}
	if len(a) < 32 {
		t.Errorf("Token too short: %d characters", len(a))
	}
}

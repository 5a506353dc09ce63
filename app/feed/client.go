package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client performs outbound HTTP fetches for feed documents and article
// pages. Every fetch is bounded by the configured timeout and carries the
// configured user agent.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// FetchFeed retrieves the raw bytes of a feed document.
func (c *Client) FetchFeed(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url)
}

// FetchPage retrieves an HTML page for scraping or feed-link discovery.
// Non-HTML responses are rejected.
func (c *Client) FetchPage(ctx context.Context, url string) ([]byte, error) {
	data, contentType, err := c.fetchWithContentType(ctx, url)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	return data, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	data, _, err := c.fetchWithContentType(ctx, url)
	return data, err
}

func (c *Client) fetchWithContentType(ctx context.Context, url string) ([]byte, string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

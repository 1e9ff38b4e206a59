package dou

import (
	"bytes"
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultFeedURL = "https://jobs.dou.ua/vacancies/feeds/"
	maxAttempts    = 3
	retryDelay     = 2 * time.Second
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches the jobs.dou.ua vacancies RSS feed.
type Client struct {
	feedURL     string
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
	retryDelay  time.Duration
}

func NewClient(feedURL string) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Client{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: retryDelay,
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *Client) SetRetryDelay(delay time.Duration) {
	c.retryDelay = delay
}

// Fetch downloads and parses the feed for the city and category query fragments.
// Entries keep feed order, newest first.
func (c *Client) Fetch(ctx context.Context, cityParam, categoryParam string) ([]models.FeedEntry, error) {

	feedURL, err := c.FeedURL(cityParam, categoryParam)
	if err != nil {
		return nil, err
	}

	var body []byte
	_, _, err = lo.AttemptWhileWithDelay(maxAttempts, c.retryDelay, func(_ int, _ time.Duration) (error, bool) {
		var reqErr error
		body, reqErr = c.sendRequest(ctx, feedURL)
		var tErr *transientError
		return reqErr, errors.As(reqErr, &tErr) && ctx.Err() == nil
	})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		content := item.Description
		if content == "" {
			content = item.Content
		}
		entries = append(entries, models.FeedEntry{
			Title:       item.Title,
			Body:        content,
			Link:        item.Link,
			PublishedAt: item.PublishedParsed,
		})
	}
	return entries, nil
}

// FeedURL builds "<feed url>?<category>&<city>" with the fragments re-encoded.
func (c *Client) FeedURL(cityParam, categoryParam string) (string, error) {
	query := url.Values{}
	for _, param := range []string{categoryParam, cityParam} {
		values, err := url.ParseQuery(param)
		if err != nil {
			return "", fmt.Errorf("invalid feed parameter %q: %w", param, err)
		}
		for key, vals := range values {
			for _, val := range vals {
				query.Add(key, val)
			}
		}
	}

	if len(query) == 0 {
		return c.feedURL, nil
	}
	return c.feedURL + "?" + query.Encode(), nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func (c *Client) sendRequest(ctx context.Context, rawURL string) ([]byte, error) {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "dou-jobs-bot")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("error sending request: %w", err)}
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("error reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &transientError{err: err}
		}
		return nil, err
	}

	return body, nil
}

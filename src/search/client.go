package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Easy-Infra-Ltd/easy-web-search/src/config"
	"github.com/Easy-Infra-Ltd/easy-web-search/src/errs"
)

// maxBodyBytes bounds how much of a results page is read.
const maxBodyBytes = 5 << 20

// Client fetches and parses DuckDuckGo results. The rate limiter belongs to
// the Client, so every caller sharing one Client shares one request budget.
// A Client is safe for concurrent use.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the limiter derived from the config.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a Client from cfg. Requests are spaced at least
// cfg.MinRequestInterval() apart; the first one goes out immediately.
func NewClient(cfg config.SearchConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		limiter:    NewLimiter(cfg.MinRequestInterval()),
		logger:     logger.With("area", "search"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLimiter returns a limiter that lets one request through per interval.
// A non-positive interval disables limiting.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Search runs q and returns its organic results.
func (c *Client) Search(ctx context.Context, q Query) ([]Result, error) {
	q = q.Normalized()

	target, err := BuildURL(c.endpoint, q)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(err, errs.CodeSearchRateLimitCancelled, "waiting for rate limiter")
	}

	reqID := uuid.NewString()
	log := c.logger.With("request_id", reqID)
	log.Debug("search request", "query", q.Text, "count", q.Count, "region", q.Region, "safe", string(q.Safe))

	started := time.Now()
	body, err := c.fetch(ctx, target)
	if err != nil {
		log.Warn("search failed", "err", err)
		return nil, err
	}

	results, err := ParseResults(body, q.Count)
	if err != nil {
		return nil, err
	}

	log.Info("search complete", "results", len(results), "elapsed", time.Since(started))
	return results, nil
}

func (c *Client) fetch(ctx context.Context, target string) (io.Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeSearchRequestInvalid, "building request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeSearchFetchFailure, "fetching results")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(errs.CodeSearchFetchStatus,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			errs.Field("status", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeSearchFetchFailure, "reading response body")
	}
	return bytes.NewReader(data), nil
}

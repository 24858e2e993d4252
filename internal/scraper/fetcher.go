// Package scraper fetches live listings from a guest job-search endpoint,
// with retry, pacing and classification of each listing.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/metrics"
	"jobmate/recommendation-service/internal/model"
)

const (
	defaultBaseURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	detailHost     = "https://www.linkedin.com"
	pageSize       = 25
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Fetcher returns raw listings for a query.
type Fetcher interface {
	FetchListings(ctx context.Context, keywords, location string, maxItems int, filters model.Filters) ([]model.RawListing, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	itemDelay  time.Duration
	pageDelay  time.Duration
	sleep      SleepFunc
	classifier *Classifier
	redFlags   RedFlags
	log        *logging.Logger
	metrics    *metrics.Collector
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client. Its Timeout bounds each request.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithDelays sets the pause between detail requests and between pages.
func WithDelays(item, page time.Duration) ClientOption {
	return func(c *Client) {
		c.itemDelay = item
		c.pageDelay = page
	}
}

// WithSleep replaces the wait used for backoff and pacing.
func WithSleep(fn SleepFunc) ClientOption {
	return func(c *Client) { c.sleep = fn }
}

func WithClassifier(cl *Classifier) ClientOption {
	return func(c *Client) { c.classifier = cl }
}

func WithRedFlags(flags []string) ClientOption {
	return func(c *Client) { c.redFlags = flags }
}

func WithLogger(l *logging.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a fetcher with 3 retries, 500ms item and 2s page delays.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
		itemDelay:  500 * time.Millisecond,
		pageDelay:  2 * time.Second,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.classifier == nil {
		c.classifier = NewClassifier(nil, nil)
	}
	if c.log == nil {
		c.log = logging.NewNop()
	}
	return c
}

func (c *Client) Classifier() *Classifier { return c.classifier }

// FetchListings pages through search results until maxItems qualifying
// listings are collected, a page yields none, or a request fails for good.
// Listings gathered before a failure are returned alongside the error.
func (c *Client) FetchListings(ctx context.Context, keywords, location string, maxItems int, filters model.Filters) ([]model.RawListing, error) {
	if maxItems <= 0 {
		return nil, nil
	}
	log := c.log.With("keywords", keywords, "location", location)
	log.Info("fetch started", "max_items", maxItems, "trusted_only", filters.TrustedOnly)

	var out []model.RawListing
	for start := 0; len(out) < maxItems; start += pageSize {
		body, err := c.getWithRetry(ctx, c.searchURL(keywords, location, start, filters.JobType))
		if err != nil {
			return out, fmt.Errorf("search page at %d: %w", start, err)
		}
		cards, err := parseCards(bytes.NewReader(body))
		if err != nil {
			return out, fmt.Errorf("parse search page at %d: %w", start, err)
		}
		if len(cards) == 0 {
			log.Debug("no more cards", "start", start)
			break
		}

		added := 0
		for _, cd := range cards {
			if len(out) >= maxItems {
				break
			}
			raw, ok, err := c.buildListing(ctx, cd, filters)
			if err != nil {
				return out, err
			}
			if !ok {
				continue
			}
			out = append(out, raw)
			added++
		}
		if added == 0 {
			log.Debug("no qualifying listings on page", "start", start)
			break
		}
		if len(out) < maxItems {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				return out, err
			}
		}
	}

	log.Info("fetch complete", "listings", len(out))
	return out, nil
}

// buildListing enriches one card and waits the item delay after its detail
// request. ok is false when the card does not qualify. Only context
// cancellation is returned as an error; a failed detail page leaves the
// listing with summary fields only.
func (c *Client) buildListing(ctx context.Context, cd card, filters model.Filters) (model.RawListing, bool, error) {
	trusted := c.classifier.IsTrusted(cd.Company)
	if filters.TrustedOnly && !trusted {
		return model.RawListing{}, false, nil
	}

	raw := model.RawListing{
		Title:           cd.Title,
		Company:         cd.Company,
		Location:        cd.Location,
		URL:             cd.URL,
		PostedDate:      cd.PostedDate,
		JobType:         JobType(cd.Title),
		ExperienceLevel: ExperienceLevel(cd.Title),
		EmploymentType:  EmploymentType(cd.Metadata),
		Trusted:         trusted,
	}

	if cd.URL != "" {
		d, err := c.fetchDetail(ctx, cd.URL)
		switch {
		case err == nil:
			raw.Description = d.Description
			raw.Requirements = d.Requirements
			raw.Skills = d.Skills
			raw.Salary = d.Salary
		case ctx.Err() != nil:
			return model.RawListing{}, false, ctx.Err()
		default:
			c.log.Warn("detail page failed", "url", cd.URL, "error", err)
		}
		// pace every detail request, including ones whose listing is dropped
		if err := c.sleep(ctx, c.itemDelay); err != nil {
			return model.RawListing{}, false, err
		}
	}

	if term, hit := c.redFlags.Match(raw.Title, raw.Company, raw.Description); hit {
		c.log.Debug("listing dropped by red flag", "title", raw.Title, "term", term)
		return model.RawListing{}, false, nil
	}

	raw.Category = c.classifier.Category(raw.Title, raw.Description)
	if filters.Category != "" && !strings.EqualFold(filters.Category, "all") && raw.Category != filters.Category {
		return model.RawListing{}, false, nil
	}
	return raw, true, nil
}

func (c *Client) fetchDetail(ctx context.Context, link string) (detail, error) {
	if !strings.HasPrefix(link, "http") {
		link = detailHost + link
	}
	body, err := c.getWithRetry(ctx, link)
	if err != nil {
		return detail{}, err
	}
	return parseDetail(bytes.NewReader(body))
}

func (c *Client) searchURL(keywords, location string, start int, jobType string) string {
	q := url.Values{}
	q.Set("keywords", keywords)
	q.Set("location", location)
	q.Set("start", strconv.Itoa(start))
	q.Set("count", strconv.Itoa(pageSize))
	q.Set("f_TPR", "")
	q.Set("f_JT", jobTypeCode(jobType))
	return c.baseURL + "?" + q.Encode()
}

// getWithRetry performs a GET, retrying 429, 5xx and network failures with
// waits of 1s, 2s, 4s... up to maxRetries extra attempts.
func (c *Client) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			c.log.Warn("retrying upstream request", "attempt", attempt, "wait", wait, "error", lastErr)
			c.metrics.RecordFetchRetry()
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("scraper: context cancelled: %w", err)
			}
		}

		body, err := c.get(ctx, u)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d retries: %w", ErrFetchExhausted, c.maxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordFetchRequest("network_error")
		return nil, &retryableError{err: fmt.Errorf("scraper: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordFetchRequest("network_error")
		return nil, &retryableError{err: fmt.Errorf("scraper: read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.RecordFetchRequest("rate_limited")
		return nil, &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, u)}
	case resp.StatusCode >= 500:
		c.metrics.RecordFetchRequest("server_error")
		return nil, &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, u)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.metrics.RecordFetchRequest("client_error")
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, u)
	}

	c.metrics.RecordFetchRequest("ok")
	return body, nil
}

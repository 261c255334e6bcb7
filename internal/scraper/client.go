// Package scraper fetches directory exports and calendar feeds over HTTP.
//
// Every request carries the caller's deadline, a rotating browser
// User-Agent and optional host politeness through a token bucket.
// Transient failures (timeouts, 429, 5xx) are retried with exponential
// backoff when retries are enabled; 401/403/404 are never retried.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"

	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
	"github.com/garyellow/campus-assist-go/internal/ratelimit"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 16 << 20

// Recorder receives one call per completed request.
type Recorder interface {
	RecordSourceRequest(source, status string, duration time.Duration)
	RecordSingleflightDedup(module string)
}

// Client is an HTTP client for fetching upstream sources.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	flight     *CacheWrapper
	recorder   Recorder
	maxRetries int
	retryDelay time.Duration
	userAgent  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithRetries enables up to n retries starting at delay.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.retryDelay = delay
	}
}

// WithRateLimit spaces requests through a token bucket.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		flight:     NewCacheWrapper(),
		retryDelay: time.Second,
		userAgent:  uarand.GetRandom,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request with rate limiting and retries.
// The caller is responsible for closing the response body.
func (c *Client) Get(ctx context.Context, source, url string) (*http.Response, error) {
	start := time.Now()
	var resp *http.Response

	err := RetryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent())
		req.Header.Set("Accept", "text/html,text/csv,application/json,text/calendar;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip")

		r, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if r.StatusCode < 200 || r.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			return statusError(source, url, r.StatusCode)
		}

		resp = r
		return nil
	})

	c.record(source, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBytes fetches url and returns its body decoded to UTF-8 together with
// the response media type. Concurrent calls for the same URL share one request.
func (c *Client) GetBytes(ctx context.Context, source, url string) ([]byte, string, error) {
	type payload struct {
		body      []byte
		mediaType string
	}

	v, err, shared := c.flight.Do(ctx, url, func(ctx context.Context) (any, error) {
		resp, err := c.Get(ctx, source, url)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, mediaType, err := readBody(resp)
		if err != nil {
			return nil, domerrors.NewSourceError(source, url, resp.StatusCode, err)
		}
		return payload{body: body, mediaType: mediaType}, nil
	})
	if shared && c.recorder != nil {
		c.recorder.RecordSingleflightDedup("scraper")
	}
	if err != nil {
		return nil, "", err
	}
	p := v.(payload)
	return p.body, p.mediaType, nil
}

// GetDocument fetches url and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, source, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, source, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	reader, _, err := decodedReader(resp)
	if err != nil {
		return nil, domerrors.NewSourceError(source, url, resp.StatusCode, err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, domerrors.NewSourceError(source, url, resp.StatusCode, fmt.Errorf("failed to parse HTML: %w", err))
	}
	return doc, nil
}

func (c *Client) record(source string, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordSourceRequest(source, statusLabel(err), d)
}

// statusError builds the error for a non-2xx response. Client errors that
// will not change on retry are marked permanent.
func statusError(source, url string, code int) error {
	err := domerrors.NewSourceError(source, url, code, fmt.Errorf("unexpected status %d", code))
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return permanent(err)
	default:
		return err
	}
}

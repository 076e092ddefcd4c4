// Package httpclient provides the HTTP client used to download sources
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/ukstats/sourcefetch/internal/logger"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 60 * time.Second

	// DefaultMaxResponseSize is the default maximum response size (512MB)
	DefaultMaxResponseSize = 512 * 1024 * 1024

	// UserAgent is the default user agent string for HTTP requests.
	// Several statistics portals reject requests without a browser-like agent.
	UserAgent = "Mozilla/5.0 (compatible; sourcefetch/1.0)"

	// DefaultInitialBackoff is the wait before the first retry
	DefaultInitialBackoff = 500 * time.Millisecond
)

// Client is an interface for HTTP operations
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	// Do performs the request and returns the fully read response
	Do(ctx context.Context, req Request) (*Response, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client          *http.Client
	userAgent       string
	maxResponseSize int64
	retries         uint
	initialBackoff  time.Duration

	// rateLimit is requests per second per host, zero disables limiting
	rateLimit float64
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *DefaultClient) {
		c.userAgent = ua
	}
}

// WithMaxResponseSize sets the maximum number of body bytes accepted
func WithMaxResponseSize(n int64) Option {
	return func(c *DefaultClient) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// WithRetries sets the number of additional attempts made after a retryable failure
func WithRetries(n uint) Option {
	return func(c *DefaultClient) {
		c.retries = n
	}
}

// WithInitialBackoff sets the wait before the first retry
func WithInitialBackoff(d time.Duration) Option {
	return func(c *DefaultClient) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithRateLimit limits requests to rps per second for each host
func WithRateLimit(rps float64) Option {
	return func(c *DefaultClient) {
		c.rateLimit = rps
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:       UserAgent,
		maxResponseSize: DefaultMaxResponseSize,
		initialBackoff:  DefaultInitialBackoff,
		limiters:        make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request, retrying network errors, 429 and 5xx responses
// up to the configured number of retries with exponential backoff
func (c *DefaultClient) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	operation := func() (*Response, error) {
		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			return nil, backoff.Permanent(err)
		}
		if errors.Is(err, errResponseTooLarge) || ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.retries+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warnf("Request to %s failed, retrying in %s: %v", req.URL, wait, err)
		}),
	)
}

var errResponseTooLarge = errors.New("response too large")

func (c *DefaultClient) do(ctx context.Context, r Request) (*Response, error) {
	if err := c.wait(ctx, r.URL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(r.Method), r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPError(resp.StatusCode, r.URL, resp.Status)
	}

	// Check Content-Length header if available
	if resp.ContentLength > c.maxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			errResponseTooLarge, resp.ContentLength, c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))
	}

	limitedReader := io.LimitReader(resp.Body, c.maxResponseSize+1) // +1 to detect if limit exceeded
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > c.maxResponseSize {
		return nil, fmt.Errorf("%w: exceeds maximum allowed size of %d bytes (%.2f MB)",
			errResponseTooLarge, c.maxResponseSize, float64(c.maxResponseSize)/(1024*1024))
	}

	return &Response{
		Body:        body,
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// wait blocks until the per-host limiter admits a request
func (c *DefaultClient) wait(ctx context.Context, rawURL string) error {
	if c.rateLimit <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	c.mu.Lock()
	limiter, ok := c.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
		c.limiters[u.Host] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}

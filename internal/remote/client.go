package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"artcache/internal/fingerprint"
	"artcache/internal/logging"
)

const (
	defaultReadTimeout    = 8 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultRetryCount     = 2
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultSearchLimit    = 5
	maxSearchLimit        = 50
	artistCandidateLimit  = 10
	artistSearchKeyRunes  = 4
	maxResponseBytes      = 1 << 20
	userAgent             = "artcache/1"
)

// Config captures the settings required to talk to the shared store.
type Config struct {
	BaseURL        string
	APIKey         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RetryCount     int
	RetryBaseDelay time.Duration
	SearchLimit    int
}

// Client talks to the shared artwork store over HTTP.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       *slog.Logger
	generator    *fingerprint.Generator
	readTimeout  time.Duration
	writeTimeout time.Duration
	searchLimit  int

	retryCount     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)

	inflight sync.WaitGroup
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger; the client logs under the "remote" component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGenerator overrides the fingerprint generator used for artist matching.
func WithGenerator(generator *fingerprint.Generator) Option {
	return func(c *Client) {
		if generator != nil {
			c.generator = generator
		}
	}
}

// WithRetryMaxDelay caps any single retry wait, including server Retry-After hints.
func WithRetryMaxDelay(maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New creates a shared store client.
func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("remote store base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote store base url: %w", err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("remote store api key required")
	}
	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		httpClient:     &http.Client{},
		readTimeout:    cfg.ReadTimeout,
		writeTimeout:   cfg.WriteTimeout,
		searchLimit:    cfg.SearchLimit,
		retryCount:     cfg.RetryCount,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	if client.readTimeout <= 0 {
		client.readTimeout = defaultReadTimeout
	}
	if client.writeTimeout <= 0 {
		client.writeTimeout = defaultWriteTimeout
	}
	if client.searchLimit <= 0 {
		client.searchLimit = defaultSearchLimit
	}
	if client.searchLimit > maxSearchLimit {
		client.searchLimit = maxSearchLimit
	}
	if client.retryCount < 0 {
		client.retryCount = 0
	}
	if client.retryBaseDelay < 0 {
		client.retryBaseDelay = 0
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.generator == nil {
		client.generator = fingerprint.New()
	}
	client.logger = logging.NewComponentLogger(client.logger, "remote")
	return client, nil
}

// DefaultConfig returns the built-in client settings for baseURL and apiKey.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		ReadTimeout:    defaultReadTimeout,
		WriteTimeout:   defaultWriteTimeout,
		RetryCount:     defaultRetryCount,
		RetryBaseDelay: defaultRetryBaseDelay,
		SearchLimit:    defaultSearchLimit,
	}
}

// Wait blocks until detached background requests finish or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any
}

// send issues a single request and classifies the outcome.
func (c *Client) send(ctx context.Context, req request) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Op: req.op, Kind: KindBadRequest, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return &Error{Op: req.op, Kind: KindBadRequest, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id, ok := logging.RequestIDFromContext(ctx); ok {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Op: req.op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Op: req.op, Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &Error{
			Op:         req.op,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		if delay, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			statusErr.RetryAfter = delay
		}
		return statusErr
	}

	if req.out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &Error{Op: req.op, Kind: KindInvalidResponse, StatusCode: resp.StatusCode, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(raw, req.out); err != nil {
		return &Error{Op: req.op, Kind: KindInvalidResponse, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// sendWithRetry runs send under a per-attempt timeout, retrying transient
// failures up to retryCount additional times.
func (c *Client) sendWithRetry(ctx context.Context, req request, timeout time.Duration) error {
	attempts := c.retryCount + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := c.send(attemptCtx, req)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == attempts || ctx.Err() != nil {
			break
		}
		delay := c.retryDelay(err, attempt)
		c.logger.Debug("remote request retry",
			logging.String(logging.FieldOperation, req.op),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			break
		}
	}
	return lastErr
}

// read issues a lookup under the read timeout, once or under the retry policy.
func (c *Client) read(ctx context.Context, req request, retry bool) error {
	if retry {
		return c.sendWithRetry(ctx, req, c.readTimeout)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	return c.send(attemptCtx, req)
}

// retryDelay returns the wait before the next attempt: attempt n waits
// n*base unless the server supplied a Retry-After hint.
func (c *Client) retryDelay(err error, attempt int) time.Duration {
	var remoteErr *Error
	if errors.As(err, &remoteErr) && remoteErr.RetryAfter > 0 {
		return c.capDelay(remoteErr.RetryAfter)
	}
	if attempt <= 0 {
		attempt = 1
	}
	return c.capDelay(c.retryBaseDelay * time.Duration(attempt))
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

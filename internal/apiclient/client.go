// Package apiclient sends JSON requests to one BudgetBuddy service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"budgetbuddy/internal/apierr"
	"budgetbuddy/internal/log"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// MaxBodyBytes caps how much of a response body is read. A larger body fails
// with apierr.ErrResponseTooLarge.
const MaxBodyBytes = 4 << 20

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Response is a received HTTP response with its body fully read.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Client talks to a single service base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = log.OrDiscard(l)
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// PostJSON sends body as JSON to path.
// A non-nil error means no usable response was received.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, "", bytes.NewReader(payload))
}

// Get sends a GET to path, with a bearer token when token is non-empty.
// A non-nil error means no usable response was received.
func (c *Client) Get(ctx context.Context, path string, query url.Values, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, token, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body io.Reader) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With(log.FieldRequestID, requestID, log.FieldMethod, method, log.FieldURL, target.Redacted())
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "request failed", log.FieldError, err, log.FieldDuration, time.Since(start).Milliseconds())
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		logger.WarnContext(ctx, "read response body", log.FieldError, err, log.FieldStatusCode, resp.StatusCode)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		logger.ErrorContext(ctx, "response body too large",
			log.FieldStatusCode, resp.StatusCode,
			log.FieldLimitBytes, MaxBodyBytes)
		return nil, fmt.Errorf("%w: more than %d bytes", apierr.ErrResponseTooLarge, MaxBodyBytes)
	}

	logger.DebugContext(ctx, "request completed",
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	return &Response{Status: resp.StatusCode, Body: data, RequestID: requestID}, nil
}

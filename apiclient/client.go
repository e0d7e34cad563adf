package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

const (
	headerUserAgent = "User-Agent"
	userAgent       = "ailab-go/1.0"

	defaultTimeout = 30 * time.Second
)

// Client talks JSON to the AI Lab REST API through the authenticated
// request pipeline:
//
//	metrics -> Authenticator -> ExpiryDetector -> retry once -> transport
type Client struct {
	baseURL    string
	httpClient *http.Client
	endpoints  Endpoints

	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	publicPaths    []string
	base           http.RoundTripper
	notifier       ExpiryNotifier
	registerer     prometheus.Registerer
	metrics        *Metrics
}

// Option configures the client.
type Option func(*Client)

// WithTimeouts sets the connect, read and write timeouts.
func WithTimeouts(connect, read, write time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = connect
		c.readTimeout = read
		c.writeTimeout = write
	}
}

// WithPublicPaths adds public path fragments to DefaultPublicPaths.
func WithPublicPaths(paths ...string) Option {
	return func(c *Client) {
		c.publicPaths = append(c.publicPaths, paths...)
	}
}

// WithExpiryNotifier signals n whenever a private request's token is rejected.
func WithExpiryNotifier(n ExpiryNotifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// WithTransport replaces the base transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// New builds a client for baseURL that authenticates private requests with
// tokens.
func New(baseURL string, tokens oauth2.TokenSource, options ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("[apiclient New] token source is required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		connectTimeout: defaultTimeout,
		readTimeout:    defaultTimeout,
		writeTimeout:   defaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.registerer != nil {
		m, err := NewMetrics(c.registerer)
		if err != nil {
			return nil, fmt.Errorf("[apiclient New] register metrics: %w", err)
		}
		c.metrics = m
	}

	c.endpoints = NewEndpoints(c.publicPaths...)

	var rt http.RoundTripper = c.base
	if rt == nil {
		rt = NewTransport(c.connectTimeout, c.readTimeout, c.writeTimeout)
	}
	rt = retryTransport{next: rt}
	if c.notifier != nil {
		rt = NewExpiryDetector(rt, c.endpoints, c.notifier, c.metrics)
	}
	rt = NewAuthenticator(rt, tokens, c.endpoints)
	rt = c.metrics.instrument(rt)

	c.httpClient = &http.Client{Transport: rt}
	return c, nil
}

// HTTPClient returns the underlying authenticated http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Endpoints returns the public/private classifier in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Do sends body (JSON encoded when non-nil) to path and decodes the response
// into result when result is non-nil. Non-2xx responses return *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerUserAgent, userAgent)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

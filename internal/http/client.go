// Package http wraps net/http with the pooled client, request builder and
// authentication calls used by the load harness.
package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Default client settings.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPoolSize = 60

	idleConnTimeout = 90 * time.Second
)

// Client represents an HTTP client bound to one backend.
//
// The underlying transport keeps a pool of persistent connections so that
// concurrent requests reuse connections instead of dialing per request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	timeout    time.Duration
	poolSize   int
	transport  http.RoundTripper
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		headers:  make(map[string]string),
		timeout:  DefaultTimeout,
		poolSize: DefaultPoolSize,
	}

	for _, option := range options {
		option(client)
	}

	transport := client.transport
	if transport == nil {
		transport = newPooledTransport(client.poolSize)
	}

	client.httpClient = &http.Client{
		Transport: transport,
		Timeout:   client.timeout,
	}

	return client
}

// newPooledTransport sizes idle and active connection limits to poolSize.
func newPooledTransport(poolSize int) *http.Transport {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = poolSize
	base.MaxIdleConnsPerHost = poolSize
	base.MaxConnsPerHost = poolSize
	base.IdleConnTimeout = idleConnTimeout
	return base
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPoolSize sets how many persistent connections are kept per host.
// It should be at least the number of concurrent requests.
func WithPoolSize(n int) ClientOption {
	return func(c *Client) {
		c.poolSize = n
	}
}

// WithTransport replaces the pooled transport, mostly for tests.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithHeader adds a header sent on every request
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CloseIdleConnections releases pooled connections once a run is over.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Do executes an HTTP request and reads the whole response body.
//
// A non-nil error means no response was received (dial failure, timeout,
// protocol error, or a body that could not be read to the end).
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	var connReused bool
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			connReused = info.Reused
		},
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:   httpResp.StatusCode,
		Status:       httpResp.Status,
		Headers:      httpResp.Header,
		ResponseTime: time.Since(start),
		ConnReused:   connReused,
		body:         body,
	}, nil
}

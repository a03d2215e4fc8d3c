// Package httpx provides the HTTP transport used by the auth SDK: a client
// wrapping a base URL, default JSON headers, a timeout, a cookie jar for
// credential forwarding, and an ordered interceptor chain.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultTimeout bounds every request unless overridden via WithTimeout.
const DefaultTimeout = 15 * time.Second

// Client is a configured HTTP client for a single backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithInterceptors appends interceptors to the transport chain. The first
// interceptor is outermost: it sees requests first and responses last.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(c *Client) {
		c.httpClient.Transport = Chain(c.httpClient.Transport, interceptors...)
	}
}

// WithTransport replaces the base RoundTripper, mainly for test doubles.
// Apply before WithInterceptors so the chain wraps the replacement.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient creates a Client for baseURL. The client carries a cookie jar so
// implicit cookie sessions survive across requests.
func NewClient(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Jar:       jar,
			Transport: http.DefaultTransport,
		},
		headers: http.Header{},
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// URL builds a complete URL by appending path to the base URL.
func (c *Client) URL(path string) string { return c.baseURL + path }

// Do performs a request with the client's defaults. A non-nil body is
// JSON-encoded. The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range c.headers {
		for i, value := range values {
			if i == 0 {
				req.Header.Set(key, value)
			} else {
				req.Header.Add(key, value)
			}
		}
	}

	return c.httpClient.Do(req)
}

func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// DecodeJSON decodes resp's body into target and closes it. Callers must
// have already checked the status code.
func DecodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ReadBody drains and closes resp's body, returning the raw bytes.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

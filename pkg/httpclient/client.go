package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
)

// Config defines the setup for the HTTP Client.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero means DefaultMaxRedirects,
	// a negative value disables following.
	MaxRedirects int
	// Transport is used as-is when set, e.g. for uTLS fingerprinting.
	Transport http.RoundTripper
	// Header is sent on every request unless the request sets the key itself.
	Header http.Header
}

// Client is an http.Client with a redirect policy and default headers.
type Client struct {
	hc     *http.Client
	header http.Header
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		hc.Transport = cfg.Transport
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects < 0 {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		hc.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}

	return &Client{hc: hc, header: cfg.Header.Clone()}
}

// Get issues a GET for rawURL bound to ctx. Extra headers override the
// defaults. The caller closes the response body.
func (c *Client) Get(ctx context.Context, rawURL string, extra http.Header) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range extra {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}

	return c.Do(req)
}

// Do sends req as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Package fetch defines the outbound-request contract the orchestration uses
// for every provider call. The hardened implementation (host allowlisting,
// private-IP blocking, per-hop redirect re-validation, content-type and size
// ceilings) is supplied by the embedding application; this package only
// carries the interface and a plain client for development use.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is the subset of an HTTP response the orchestration consumes.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Fetcher performs one verified outbound request.
type Fetcher interface {
	Do(ctx context.Context, req *http.Request) (*Response, error)
}

// Client is a plain http.Client-backed Fetcher with a request timeout.
// It performs none of the hardening the production collaborator provides.
type Client struct {
	HTTPClient *http.Client
}

// NewClient creates a Client with a default timeout.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do executes the request.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := c.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Get is a convenience wrapper around Do for GET requests.
func Get(ctx context.Context, f Fetcher, url string) (*Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", url, err)
	}
	return f.Do(ctx, req)
}

// Package httpclient is a small HTTP helper used by the credential pool's
// usage-limit queries and by dispatch to issue the upstream call and read
// back its streamed body.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClient is a shared *http.Client tuned for a handful of long-lived
// upstream connections rather than bursty fan-out.
var DefaultClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client wraps an *http.Client with a base URL and default headers.
type Client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		if cfg.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Timeout, Transport: DefaultClient.Transport}
		} else {
			client = DefaultClient
		}
	}
	return &Client{client: client, baseURL: cfg.BaseURL, headers: cfg.Headers}
}

// Request is one HTTP call. Sign, when set, is applied to the built
// *http.Request after headers are set but before it is sent — used for
// AWS SigV4 credentials, which must sign over the final header set.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
	Query   map[string]string
	Sign    func(*http.Request) error
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	url := c.baseURL + req.Path
	if len(req.Query) > 0 {
		first := true
		for k, v := range req.Query {
			sep := "&"
			if first {
				sep = "?"
				first = false
			}
			url += fmt.Sprintf("%s%s=%s", sep, k, v)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Sign != nil {
		if err := req.Sign(httpReq); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}
	return httpReq, nil
}

// Do issues req and reads the full response body into memory.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: respBody}, nil
}

// DoJSON issues req and decodes a JSON response into result.
func (c *Client) DoJSON(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("decode json response: %w", err)
	}
	return nil
}

// DoStream issues req and returns the live *http.Response for the caller to
// stream-read; the caller owns Body and must close it.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		errBody, _ := io.ReadAll(httpResp.Body)
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: errBody}
	}
	return httpResp, nil
}

// StatusError is returned by DoStream for non-2xx responses so callers can
// inspect the status code and body without string-parsing an error.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, string(e.Body))
}

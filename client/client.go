package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phynance/phyn/db"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the API root used when none is configured.
	DefaultBaseURL = "http://localhost:8080/api/v1"
	// DefaultTimeout bounds every call and every refresh exchange.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the CLI to the API.
	DefaultUserAgent = "phyn-cli"
)

// CredentialStore holds the access/refresh token pair. db.TokenRepository satisfies it.
type CredentialStore interface {
	Get(ctx context.Context) (*db.Token, error)
	Upsert(ctx context.Context, token *db.Token) error
	Clear(ctx context.Context) error
}

// Client is an authenticated JSON client for the Phynance API.
// It is safe for concurrent use; all calls share one RefreshCoordinator.
type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	userAgent   string
	store       CredentialStore
	refresher   TokenRefresher
	coordinator *RefreshCoordinator
}

// New creates a Client for baseURL backed by store.
func New(baseURL string, store CredentialStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		store:     store,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.refresher == nil {
		c.refresher = &httpRefresher{client: c}
	}
	c.coordinator = NewRefreshCoordinator(store, c.refresher, c.timeout)
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the credential store.
func (c *Client) Store() CredentialStore { return c.store }

// Coordinator exposes the refresh coordinator, mainly for inspection.
func (c *Client) Coordinator() *RefreshCoordinator { return c.coordinator }

// Get performs a GET and decodes the JSON reply into out (nil discards it).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post sends body as JSON and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put sends body as JSON and decodes the reply into out.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete performs a DELETE and decodes the reply into out.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// GetAs is Get with a typed result.
func GetAs[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Get(ctx, path, &out, opts...)
	return out, err
}

// PostAs is Post with a typed result.
func PostAs[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (T, error) {
	var out T
	err := c.Post(ctx, path, body, &out, opts...)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	req, err := c.newRequest(method, path, body, opts...)
	if err != nil {
		return err
	}
	resp, err := c.execute(ctx, req)
	if err != nil {
		return err
	}
	return decodeInto(req, resp, out)
}

func (c *Client) newRequest(method, path string, body any, opts ...RequestOption) (*request, error) {
	req := &request{
		method:  method,
		path:    path,
		header:  make(http.Header),
		query:   make(url.Values),
		timeout: c.timeout,
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindRequest, Method: method, Path: path, Message: "cannot encode request body", Err: err}
		}
		req.body = payload
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

func (c *Client) endpoint(req *request) string {
	path := req.path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + req.query.Encode()
	}
	return u
}

func (c *Client) newHTTPRequest(ctx context.Context, req *request) (*http.Request, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req), bytes.NewReader(req.body))
	if err != nil {
		log.Error().Err(err).Str("method", req.method).Str("path", req.path).Msg("Failed to create HTTP request object")
		return nil, &Error{Kind: KindRequest, Method: req.method, Path: req.path, Message: "cannot build request", Err: err}
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range req.header {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	return hreq, nil
}

func decodeInto(req *request, resp *response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		log.Error().Err(err).Str("path", req.path).Str("body_preview", string(resp.body[:min(len(resp.body), 200)])).Msg("Failed to parse response JSON")
		return fmt.Errorf("failed to decode response of %s %s: %w", req.method, req.path, err)
	}
	return nil
}

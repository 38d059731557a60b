package client

import (
	"net/http"
	"net/url"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDefaultTimeout sets the per-call timeout used when a call does not override it.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRefresher overrides how refresh tokens are exchanged.
func WithRefresher(r TokenRefresher) Option {
	return func(c *Client) {
		if r != nil {
			c.refresher = r
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every call.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// RequestOption adjusts a single call.
type RequestOption func(*request)

// WithHeader sets an extra header. Authorization set here is replaced by the stored token
// unless WithoutAuth is also given.
func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.header.Set(key, value) }
}

// WithQuery merges query parameters into the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithTimeout overrides the client's timeout for this call.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *request) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithoutAuth sends the call without credentials and never runs the refresh protocol.
// Login uses it.
func WithoutAuth() RequestOption {
	return func(r *request) { r.skipAuth = true }
}

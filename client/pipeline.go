package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// request is one logical call. It survives a retry, so the body is kept as bytes.
type request struct {
	method   string
	path     string
	body     []byte
	header   http.Header
	query    url.Values
	timeout  time.Duration
	skipAuth bool
	retried  bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// execute runs the pipeline: attachAuth, send, classify, then recoverUnauthorized on a 401.
func (c *Client) execute(ctx context.Context, req *request) (*response, error) {
	token, err := c.attachAuth(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.attempt(ctx, req, token)
	if err == nil {
		return resp, nil
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return nil, err
	}
	return c.recoverUnauthorized(ctx, req, token, apiErr)
}

// attachAuth returns the access token the call should carry, or "" when the call is
// anonymous or nothing is stored.
func (c *Client) attachAuth(ctx context.Context, req *request) (string, error) {
	if req.skipAuth {
		return "", nil
	}
	creds, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read stored credentials: %w", err)
	}
	if !creds.HasAccessToken() {
		return "", nil
	}
	return creds.AccessToken, nil
}

func (c *Client) attempt(ctx context.Context, req *request, token string) (*response, error) {
	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if err := classify(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// send performs one HTTP round trip under the call's timeout and reads the whole body.
func (c *Client) send(ctx context.Context, req *request, token string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	hreq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	} else if !req.skipAuth {
		hreq.Header.Del("Authorization")
	}

	log.Debug().Str("method", req.method).Str("url", hreq.URL.String()).Bool("retry", req.retried).Msg("Sending HTTP request")
	hresp, err := c.http.Do(hreq)
	if err != nil {
		log.Error().Err(err).Str("method", req.method).Str("path", req.path).Msg("HTTP request failed")
		return nil, &Error{
			Kind:    KindNetwork,
			Method:  req.method,
			Path:    req.path,
			Message: "API unreachable or did not respond in time",
			Retried: req.retried,
			Err:     err,
		}
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		log.Error().Err(err).Str("path", req.path).Msg("Failed to read response body")
		return nil, &Error{
			Kind:    KindNetwork,
			Method:  req.method,
			Path:    req.path,
			Status:  hresp.StatusCode,
			Message: "response body interrupted",
			Retried: req.retried,
			Err:     err,
		}
	}
	return &response{status: hresp.StatusCode, header: hresp.Header, body: body}, nil
}

// classify turns a non-2xx response into an *Error.
func classify(req *request, resp *response) error {
	if resp.status >= 200 && resp.status < 300 {
		log.Debug().Str("method", req.method).Str("path", req.path).Int("status", resp.status).Msg("HTTP request successful")
		return nil
	}
	apiErr := &Error{
		Kind:    kindForStatus(resp.status),
		Method:  req.method,
		Path:    req.path,
		Status:  resp.status,
		Message: serverMessage(resp.body),
		Retried: req.retried,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.status)
	}
	log.Debug().Str("method", req.method).Str("path", req.path).Int("status", resp.status).Str("kind", string(apiErr.Kind)).Msg("HTTP request returned non-OK status")
	return apiErr
}

// recoverUnauthorized handles a 401. A call that already went through a refresh, or that
// was sent without credentials, fails as is. Otherwise the coordinator supplies a fresh
// access token and the call is retried exactly once.
func (c *Client) recoverUnauthorized(ctx context.Context, req *request, sentToken string, cause *Error) (*response, error) {
	if req.skipAuth || req.retried {
		return nil, cause
	}
	token, err := c.coordinator.Recover(ctx, sentToken)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Method, apiErr.Path = req.method, req.path
			if apiErr.Kind == KindAuthentication {
				apiErr.Status = cause.Status
			}
		}
		return nil, err
	}

	req.retried = true
	log.Debug().Str("method", req.method).Str("path", req.path).Msg("Retrying request with refreshed access token")
	return c.attempt(ctx, req, token)
}

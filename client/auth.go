package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phynance/phyn/db"
	"github.com/rs/zerolog/log"
)

// TokenPair is the reply of /auth/login and /auth/refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credentials converts the pair into a storable token, filling ExpiresAt from the
// access token's exp claim when it is a JWT.
func (p TokenPair) Credentials() *db.Token {
	token := &db.Token{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
	if exp, ok := AccessTokenExpiry(p.AccessToken); ok {
		token.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return token
}

// UserProfile is returned by /auth/me.
type UserProfile struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// AccessTokenExpiry reads the exp claim without verifying the signature. The CLI never
// holds the signing key; this is only used for display and status.
func AccessTokenExpiry(accessToken string) (time.Time, bool) {
	if accessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Login exchanges a username and password for a token pair. It does not touch the
// credential store and never triggers a refresh.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password cannot be empty")
	}
	body := map[string]string{"username": username, "password": password}
	var pair TokenPair
	if err := c.Post(ctx, "/auth/login", body, &pair, WithoutAuth()); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, &Error{Kind: KindAuthentication, Method: http.MethodPost, Path: "/auth/login", Message: "login reply is missing a token"}
	}
	return &pair, nil
}

// Me fetches the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	if err := c.Get(ctx, "/auth/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// httpRefresher calls /auth/refresh on the client's own API. It bypasses the 401
// recovery path, so a rejected refresh token fails instead of recursing.
type httpRefresher struct {
	client *Client
}

func (r *httpRefresher) Refresh(ctx context.Context, refreshToken string) (*db.Token, error) {
	req, err := r.client.newRequest(http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refreshToken}, WithoutAuth())
	if err != nil {
		return nil, err
	}
	resp, err := r.client.attempt(ctx, req, "")
	if err != nil {
		return nil, fmt.Errorf("refresh exchange failed: %w", err)
	}
	var pair TokenPair
	if err := decodeInto(req, resp, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("refresh reply is missing a token")
	}
	log.Debug().Msg("Refresh exchange returned a new token pair")
	return pair.Credentials(), nil
}

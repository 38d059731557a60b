package mock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are carried by mock access tokens.
type Claims struct {
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	Generation int64    `json:"gen"`
	jwt.RegisteredClaims
}

type refreshGrant struct {
	username  string
	expiresAt time.Time
}

// TokenIssuer mints HS256 access tokens and opaque single-use refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu         sync.Mutex
	generation int64
	grants     map[string]refreshGrant
	now        func() time.Time
}

// NewTokenIssuer creates an issuer. accessTTL bounds access tokens; refresh tokens
// live for refreshTTL or until used.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		grants:     make(map[string]refreshGrant),
		now:        time.Now,
	}
}

// Issue mints a fresh pair for u.
func (ti *TokenIssuer) Issue(u User) (access, refresh string, err error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.issueLocked(u)
}

func (ti *TokenIssuer) issueLocked(u User) (string, string, error) {
	now := ti.now()
	claims := Claims{
		Username:   u.Username,
		Roles:      u.Roles,
		Generation: ti.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "phyn-mock",
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	refresh := uuid.NewString()
	ti.grants[refresh] = refreshGrant{username: u.Username, expiresAt: now.Add(ti.refreshTTL)}
	return access, refresh, nil
}

// Rotate consumes refresh and issues a new pair to its owner.
// A refresh token can be rotated once.
func (ti *TokenIssuer) Rotate(refresh string, lookup func(string) (User, bool)) (string, string, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	grant, ok := ti.grants[refresh]
	if !ok {
		return "", "", ErrInvalidToken
	}
	delete(ti.grants, refresh)
	if ti.now().After(grant.expiresAt) {
		return "", "", ErrExpiredToken
	}
	u, ok := lookup(grant.username)
	if !ok {
		return "", "", ErrInvalidToken
	}
	return ti.issueLocked(u)
}

// Validate parses and checks an access token.
func (ti *TokenIssuer) Validate(access string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(access, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.clock))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	ti.mu.Lock()
	gen := ti.generation
	ti.mu.Unlock()
	if claims.Generation < gen {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh tokens
// stay usable, so clients recover through the refresh endpoint.
func (ti *TokenIssuer) ExpireAccessTokens() {
	ti.mu.Lock()
	ti.generation++
	ti.mu.Unlock()
}

// RevokeRefreshTokens drops every outstanding refresh grant.
func (ti *TokenIssuer) RevokeRefreshTokens() {
	ti.mu.Lock()
	ti.grants = make(map[string]refreshGrant)
	ti.mu.Unlock()
}

func (ti *TokenIssuer) clock() time.Time {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.now()
}

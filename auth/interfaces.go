package auth

import (
	"context"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/db"
)

// API is the part of the Phynance API the auth service needs. *client.Client satisfies it.
type API interface {
	Login(ctx context.Context, username, password string) (*client.TokenPair, error)
	Me(ctx context.Context) (*client.UserProfile, error)
}

// TokenStore persists the credential pair.
type TokenStore interface {
	Get(ctx context.Context) (*db.Token, error)
	Upsert(ctx context.Context, token *db.Token) error
	Clear(ctx context.Context) error
}

// ProfileStore caches the logged-in user's profile.
type ProfileStore interface {
	Get(ctx context.Context) (*db.Profile, error)
	Upsert(ctx context.Context, profile *db.Profile) error
	Clear(ctx context.Context) error
}

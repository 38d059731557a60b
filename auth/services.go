package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/db"
	"github.com/rs/zerolog/log"
)

// ErrProfileUnavailable is returned by Login when the credentials were saved but the
// profile could not be fetched. The session is usable.
var ErrProfileUnavailable = errors.New("logged in, but the user profile could not be fetched")

// Service handles the login lifecycle: it writes the credentials the API client reads.
type Service struct {
	API      API
	Tokens   TokenStore
	Profiles ProfileStore
	now      func() time.Time
}

// NewService is the constructor for our auth service.
func NewService(api API, tokens TokenStore, profiles ProfileStore) *Service {
	return &Service{API: api, Tokens: tokens, Profiles: profiles, now: time.Now}
}

// NewServiceWithRepo wires the service to the database repositories.
func NewServiceWithRepo(api API, tokens db.TokenRepository, profiles db.ProfileRepository) *Service {
	return NewService(api, tokens, profiles)
}

// Login exchanges credentials for a token pair and stores it. Any stored pair is
// cleared first, so a failed login leaves the user logged out. The profile is then
// fetched and cached; when that fails the tokens stay stored and the error wraps
// ErrProfileUnavailable.
func (s *Service) Login(ctx context.Context, username, password string) (*db.Profile, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password cannot be empty")
	}
	if err := s.clear(ctx); err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Msg("Logging in")
	pair, err := s.API.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.Tokens.Upsert(ctx, pair.Credentials()); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	profile, err := s.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Logged in, but the user profile could not be fetched")
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	log.Info().Str("username", profile.Username).Msg("Login successful")
	return profile, nil
}

// Logout drops the stored credentials and cached profile.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}
	log.Info().Msg("Logged out")
	return nil
}

// Me fetches the profile from the API and refreshes the cache.
func (s *Service) Me(ctx context.Context) (*db.Profile, error) {
	me, err := s.API.Me(ctx)
	if err != nil {
		return nil, err
	}
	profile := profileFrom(me, s.now())
	if err := s.Profiles.Upsert(ctx, profile); err != nil {
		log.Warn().Err(err).Msg("Failed to cache user profile")
	}
	return profile, nil
}

func (s *Service) clear(ctx context.Context) error {
	if err := s.Tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	if err := s.Profiles.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cached profile: %w", err)
	}
	return nil
}

func profileFrom(me *client.UserProfile, fetchedAt time.Time) *db.Profile {
	return &db.Profile{
		UserID:    me.ID,
		Username:  me.Username,
		Email:     me.Email,
		Roles:     db.JoinRoles(me.Roles),
		FetchedAt: fetchedAt,
	}
}

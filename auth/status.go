package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/phynance/phyn/client"
	"github.com/phynance/phyn/db"
	"github.com/rs/zerolog/log"
)

// expiryMargin is how close to expiry an access token counts as expiring.
const expiryMargin = 5 * time.Minute

// Status is a local view of the stored session. It never contacts the API.
type Status struct {
	LoggedIn        bool
	HasRefreshToken bool
	ExpiresAt       time.Time // zero when unknown
	Expired         bool
	ExpiringSoon    bool
	Profile         *db.Profile
}

// Status reports what is stored. An expired access token still counts as logged in
// while a refresh token is present, since the client refreshes on demand.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	token, err := s.Tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token record: %w", err)
	}
	st := &Status{
		LoggedIn:        token.HasAccessToken() || token.HasRefreshToken(),
		HasRefreshToken: token.HasRefreshToken(),
	}
	if token != nil {
		st.ExpiresAt = expiryOf(token)
	}
	if !st.ExpiresAt.IsZero() {
		now := s.now()
		st.Expired = !now.Before(st.ExpiresAt)
		st.ExpiringSoon = !st.Expired && now.Add(expiryMargin).After(st.ExpiresAt)
	}

	profile, err := s.Profiles.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read cached profile")
	}
	st.Profile = profile
	return st, nil
}

// expiryOf prefers the stored expiry and falls back to the JWT exp claim.
func expiryOf(token *db.Token) time.Time {
	if token.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, token.ExpiresAt)
		if err == nil {
			return t
		}
		log.Error().Err(err).Msgf("Failed to parse expiration time: %s", token.ExpiresAt)
	}
	if t, ok := client.AccessTokenExpiry(token.AccessToken); ok {
		return t
	}
	return time.Time{}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phynance/phyn/db"
	"github.com/rs/zerolog/log"
)

// TokenRefresher exchanges a refresh token for a new credential pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*db.Token, error)
}

type refreshState int

const (
	stateIdle refreshState = iota
	stateRefreshing
)

func (s refreshState) String() string {
	if s == stateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// refreshOutcome is delivered to each waiter when a refresh settles.
// position is the waiter's place in the flush order.
type refreshOutcome struct {
	token    string
	cause    error
	position int
}

// RefreshCoordinator serializes token refreshes for one client. While an exchange is in
// flight, callers that hit a 401 queue up and receive its outcome in arrival order.
type RefreshCoordinator struct {
	mu        sync.Mutex
	state     refreshState
	queue     []chan refreshOutcome
	store     CredentialStore
	refresher TokenRefresher
	timeout   time.Duration
	exchanges atomic.Int64
}

// NewRefreshCoordinator creates an idle coordinator. timeout bounds each exchange.
func NewRefreshCoordinator(store CredentialStore, refresher TokenRefresher, timeout time.Duration) *RefreshCoordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RefreshCoordinator{store: store, refresher: refresher, timeout: timeout}
}

// Refreshing reports whether an exchange is in flight.
func (rc *RefreshCoordinator) Refreshing() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state == stateRefreshing
}

// Pending returns the number of queued waiters.
func (rc *RefreshCoordinator) Pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.queue)
}

// Exchanges returns how many refresh exchanges have been started.
func (rc *RefreshCoordinator) Exchanges() int64 { return rc.exchanges.Load() }

// Recover returns an access token to retry with after staleToken was rejected.
// It either joins the exchange in flight, reuses a token stored by an exchange that
// finished after staleToken was sent, or runs a new exchange as its owner.
func (rc *RefreshCoordinator) Recover(ctx context.Context, staleToken string) (string, error) {
	rc.mu.Lock()
	if rc.state == stateRefreshing {
		slot := rc.enqueue()
		rc.mu.Unlock()
		return rc.wait(ctx, slot)
	}

	creds, err := rc.store.Get(context.WithoutCancel(ctx))
	if err != nil {
		rc.mu.Unlock()
		return "", newAuthError("", "", "cannot read stored credentials", err)
	}
	if creds.HasAccessToken() && creds.AccessToken != staleToken {
		rc.mu.Unlock()
		log.Debug().Msg("Access token was already refreshed, reusing stored token")
		return creds.AccessToken, nil
	}
	if !creds.HasRefreshToken() {
		rc.mu.Unlock()
		return "", newAuthError("", "", "no refresh token stored; please log in", nil)
	}
	rc.state = stateRefreshing
	rc.mu.Unlock()

	log.Info().Msg("Access token expired, refreshing...")
	refreshed, err := rc.exchange(ctx, creds.RefreshToken)
	out := rc.settle(ctx, refreshed, err)
	if out.cause != nil {
		return "", newAuthError("", "", "token refresh failed", out.cause)
	}
	return out.token, nil
}

// enqueue must be called with rc.mu held.
func (rc *RefreshCoordinator) enqueue() chan refreshOutcome {
	slot := make(chan refreshOutcome, 1)
	rc.queue = append(rc.queue, slot)
	log.Debug().Int("position", len(rc.queue)-1).Msg("Waiting for token refresh in flight")
	return slot
}

func (rc *RefreshCoordinator) wait(ctx context.Context, slot <-chan refreshOutcome) (string, error) {
	select {
	case out := <-slot:
		if out.cause != nil {
			return "", newAuthError("", "", "token refresh failed", out.cause)
		}
		return out.token, nil
	case <-ctx.Done():
		return "", &Error{Kind: KindNetwork, Message: "stopped waiting for token refresh", Err: ctx.Err()}
	}
}

// exchange runs outside the lock. It ignores the owner's cancellation so that waiters
// still get an outcome, and is bounded by rc.timeout instead.
func (rc *RefreshCoordinator) exchange(ctx context.Context, refreshToken string) (*db.Token, error) {
	rc.exchanges.Add(1)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
	defer cancel()
	return rc.refresher.Refresh(ctx, refreshToken)
}

// settle stores or clears credentials and flushes the queue, all under the lock.
func (rc *RefreshCoordinator) settle(ctx context.Context, refreshed *db.Token, err error) refreshOutcome {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	storeCtx := context.WithoutCancel(ctx)
	if err == nil && (!refreshed.HasAccessToken() || !refreshed.HasRefreshToken()) {
		err = errors.New("refresh reply is missing a token")
	}
	if err == nil {
		if upErr := rc.store.Upsert(storeCtx, refreshed); upErr != nil {
			err = fmt.Errorf("failed to save refreshed tokens: %w", upErr)
		}
	}

	var out refreshOutcome
	if err != nil {
		log.Warn().Err(err).Int("waiters", len(rc.queue)).Msg("Token refresh failed, clearing stored credentials")
		if clearErr := rc.store.Clear(storeCtx); clearErr != nil {
			log.Error().Err(clearErr).Msg("Failed to clear stored credentials")
		}
		out.cause = err
	} else {
		log.Info().Int("waiters", len(rc.queue)).Msg("Token refreshed and saved successfully.")
		out.token = refreshed.AccessToken
	}

	for i, slot := range rc.queue {
		o := out
		o.position = i
		slot <- o
	}
	rc.queue = nil
	rc.state = stateIdle
	return out
}

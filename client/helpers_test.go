package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/phynance/phyn/db"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory CredentialStore that records how it was used.
type memStore struct {
	mu         sync.Mutex
	token      *db.Token
	upserts    int
	clears     int
	failUpsert error
}

func newMemStore(access, refresh string) *memStore {
	s := &memStore{}
	if access != "" || refresh != "" {
		s.token = &db.Token{AccessToken: access, RefreshToken: refresh}
	}
	return s
}

func (m *memStore) Get(ctx context.Context) (*db.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil, nil
	}
	cp := *m.token
	return &cp, nil
}

func (m *memStore) Upsert(ctx context.Context, token *db.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert != nil {
		return m.failUpsert
	}
	cp := *token
	m.token = &cp
	m.upserts++
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.clears++
	return nil
}

func (m *memStore) snapshot() (db.Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return db.Token{}, false
	}
	return *m.token, true
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message, "timestamp": "2024-01-31T10:45:00Z"})
}

// newTestClient starts a server with the given routes and returns a client pointing at it.
func newTestClient(t *testing.T, store *memStore, routes map[string]http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, store, opts...)
	require.NoError(t, err)
	return c, srv
}

// refreshHandler rotates old into next, and counts calls.
func refreshHandler(t *testing.T, calls *counter, old string, next TokenPair) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.inc()
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken != old {
			writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "refresh token rejected")
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("refresh exchange must not carry an Authorization header")
		}
		writeJSON(w, http.StatusOK, next)
	}
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

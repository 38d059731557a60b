package mock

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/phynance/phyn/client"
	"github.com/rs/zerolog/log"
)

// APIPrefix is where the mock mounts its routes, matching client.DefaultBaseURL.
const APIPrefix = "/api/v1"

const maxFailedLogins = 5

// Options configures a Server. Zero values take defaults.
type Options struct {
	Secret       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	RefreshDelay time.Duration // artificial latency of /auth/refresh
	RateLimit    int           // requests per hour per user on data endpoints, 0 disables
	Users        []User
}

// Server is an in-process stand-in for the Phynance API.
type Server struct {
	router       *mux.Router
	issuer       *TokenIssuer
	usersMu      sync.RWMutex
	users        map[string]User
	nextUserID   int64
	limiter      *RateLimiter
	refreshDelay time.Duration

	refreshes atomic.Int64
	logins    atomic.Int64

	mu     sync.Mutex
	failed map[string]int
}

type ctxKey struct{}

// NewServer builds the router and token issuer.
func NewServer(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "phyn-mock-secret"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if len(opts.Users) == 0 {
		opts.Users = DemoUsers
	}

	s := &Server{
		router:       mux.NewRouter(),
		issuer:       NewTokenIssuer(opts.Secret, opts.AccessTTL, opts.RefreshTTL),
		users:        make(map[string]User, len(opts.Users)),
		limiter:      NewRateLimiter(opts.RateLimit, time.Hour),
		refreshDelay: opts.RefreshDelay,
		failed:       make(map[string]int),
	}
	for _, u := range opts.Users {
		s.users[u.Username] = u
		s.nextUserID = max(s.nextUserID, u.ID)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestLogger)
	s.router.HandleFunc("/health", s.health).Methods("GET")

	api := s.router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/auth/login", s.login).Methods("POST")
	api.HandleFunc("/auth/refresh", s.refresh).Methods("POST")
	api.Handle("/auth/me", s.requireAuth(http.HandlerFunc(s.me))).Methods("GET")

	api.Handle("/market-data", s.requireAuth(s.limited(s.marketData))).Methods("GET")
	api.Handle("/stocks/search", s.requireAuth(http.HandlerFunc(s.search))).Methods("GET")

	api.Handle("/viewer/market-summary/{symbol}", s.requireAuth(s.limited(s.marketSummary))).Methods("GET")
	api.Handle("/viewer/available-symbols", s.requireAuth(http.HandlerFunc(s.availableSymbols))).Methods("GET")
	api.Handle("/viewer/harmonic-oscillator/{symbol}", s.requireAuth(s.limited(s.basicHarmonic))).Methods("GET")
	api.Handle("/viewer/usage-stats", s.requireAuth(http.HandlerFunc(s.usageStats))).Methods("GET")

	api.Handle("/physics/harmonic-oscillator", s.requireAuth(s.limited(s.harmonic))).Methods("POST")
	api.Handle("/analysis/wave-physics", s.requireAuth(s.limited(s.wave))).Methods("POST")
	api.Handle("/analysis/thermodynamics", s.requireAuth(s.limited(s.thermo))).Methods("POST")

	api.Handle("/users", s.requireAuth(s.requireRole(http.HandlerFunc(s.listUsers), "ADMIN"))).Methods("GET")
	api.Handle("/users", s.requireAuth(s.requireRole(http.HandlerFunc(s.createUser), "ADMIN"))).Methods("POST")

	api.Handle("/admin/performance", s.requireAuth(s.requireRole(http.HandlerFunc(s.adminPerformance), "ADMIN"))).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Issuer exposes token controls such as ExpireAccessTokens.
func (s *Server) Issuer() *TokenIssuer { return s.issuer }

// RefreshCount returns how many refresh exchanges the server has received.
func (s *Server) RefreshCount() int64 { return s.refreshes.Load() }

// LoginCount returns how many successful logins the server has handled.
func (s *Server) LoginCount() int64 { return s.logins.Load() }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info().Str("addr", ln.Addr().String()).Str("prefix", APIPrefix).Msg("Mock API listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down mock API")
		return srv.Shutdown(shutdownCtx)
	}
}

// --- middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Mock API request")
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Full authentication is required to access this resource")
			return
		}
		claims, err := s.issuer.Validate(token)
		if err != nil {
			msg := "Invalid access token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "Access token expired"
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
			return
		}
		u, ok := s.lookupUser(claims.Username)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func (s *Server) requireRole(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).hasRole(roles...) {
			writeError(w, http.StatusForbidden, "ACCESS_DENIED", "Access is denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(currentUser(r).Username) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded. Please try again later.")
			return
		}
		h(w, r)
	})
}

func (s *Server) lookupUser(name string) (User, bool) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[name]
	return u, ok
}

func currentUser(r *http.Request) User {
	u, _ := r.Context().Value(ctxKey{}).(User)
	return u
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode mock response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body")
		return false
	}
	return true
}

func pathSymbol(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
}

// --- handlers ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "phyn-mock",
		"status":    "UP",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password are required")
		return
	}

	s.mu.Lock()
	locked := s.failed[body.Username] >= maxFailedLogins
	s.mu.Unlock()
	if locked {
		writeError(w, http.StatusUnauthorized, "ACCOUNT_LOCKED", "Account is locked. Try again later.")
		return
	}

	u, ok := s.lookupUser(body.Username)
	if !ok || u.Password != body.Password {
		s.mu.Lock()
		s.failed[body.Username]++
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid credentials")
		return
	}

	s.mu.Lock()
	delete(s.failed, body.Username)
	s.mu.Unlock()

	access, refresh, err := s.issuer.Issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	s.logins.Add(1)
	writeJSON(w, http.StatusOK, client.TokenPair{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Refresh token is required")
		return
	}
	if s.refreshDelay > 0 {
		select {
		case <-time.After(s.refreshDelay):
		case <-r.Context().Done():
			return
		}
	}
	access, refresh, err := s.issuer.Rotate(body.RefreshToken, s.lookupUser)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, client.TokenPair{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r).profile())
}

func (s *Server) marketData(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Symbol is required")
		return
	}
	bars, ok := barsFor(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No historical data found for symbol: "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, client.Envelope[[]client.MarketBar]{
		Data:      bars,
		Status:    "success",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, searchSymbols(r.URL.Query().Get("q")))
}

func (s *Server) marketSummary(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	summary, ok := summaryFor(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No historical data found for symbol: "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) availableSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, client.SymbolList{
		Symbols: append([]string(nil), availableSymbols...),
		Count:   len(availableSymbols),
		Message: "Basic symbol list. Upgrade to TRADER+ for extended symbol access.",
	})
}

func (s *Server) basicHarmonic(w http.ResponseWriter, r *http.Request) {
	symbol := pathSymbol(r)
	if _, ok := companyNames[symbol]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No historical data found for symbol: "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, basicHarmonicFor(symbol))
}

func (s *Server) usageStats(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	used, limit := s.limiter.Usage(u.Username)
	if limit == 0 {
		limit = 10
	}
	writeJSON(w, http.StatusOK, usageFor(u, used, limit))
}

// analysisTarget validates the common symbol field of analysis requests.
func analysisTarget(w http.ResponseWriter, symbol string) (string, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Symbol is required")
		return "", false
	}
	if _, ok := companyNames[symbol]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No historical data found for symbol: "+symbol)
		return "", false
	}
	return symbol, true
}

func (s *Server) harmonic(w http.ResponseWriter, r *http.Request) {
	var req client.HarmonicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	symbol, ok := analysisTarget(w, req.Symbol)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, harmonicFor(symbol, req.StartDate, req.EndDate))
}

func (s *Server) wave(w http.ResponseWriter, r *http.Request) {
	var req client.WaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	symbol, ok := analysisTarget(w, req.Symbol)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, waveFor(symbol, req.StartDate, req.EndDate))
}

func (s *Server) thermo(w http.ResponseWriter, r *http.Request) {
	var req client.ThermoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	symbol, ok := analysisTarget(w, req.Symbol)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, thermoFor(symbol, req.StartDate, req.EndDate))
}

func (s *Server) adminPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshExchanges": s.refreshes.Load(),
		"logins":           s.logins.Load(),
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.usersMu.RLock()
	out := make([]client.UserProfile, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.profile())
	}
	s.usersMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body client.NewUser
	if !decodeBody(w, r, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	body.Email = strings.TrimSpace(body.Email)
	if body.Username == "" || body.Email == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username and email are required")
		return
	}
	if !strings.Contains(body.Email, "@") {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email is not valid")
		return
	}
	roles := body.Roles
	if len(roles) == 0 {
		roles = []string{"VIEWER"}
	}
	for i, role := range roles {
		roles[i] = strings.ToUpper(strings.TrimSpace(role))
		if !knownRoles[roles[i]] {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown role "+role)
			return
		}
	}
	password := body.Password
	if password == "" {
		password = uuid.NewString()
	}

	s.usersMu.Lock()
	if _, taken := s.users[body.Username]; taken {
		s.usersMu.Unlock()
		writeError(w, http.StatusConflict, "USER_EXISTS", "Username is already taken")
		return
	}
	s.nextUserID++
	u := User{ID: s.nextUserID, Username: body.Username, Password: password, Email: body.Email, Roles: roles}
	s.users[u.Username] = u
	s.usersMu.Unlock()

	log.Info().Str("username", u.Username).Strs("roles", roles).Msg("Mock user created")
	writeJSON(w, http.StatusCreated, u.profile())
}

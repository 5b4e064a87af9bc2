// Package server implements hydra-stubwaf, a self-contained stand-in for
// the Web Hydra WAF backend. It serves the full API surface the console
// consumes from seeded fixture data, issues HS256 bearer tokens on login,
// and can optionally archive its event log to PostgreSQL.
//
// Route layout:
//
//	POST /api/login                – credential check, issues a JWT (public)
//	GET  /api/health               – liveness probe (public)
//	GET  /api/{kpis,alerts,traffic,owasp,heatmap,logs,syslog,rules,settings}
//	PUT  /api/rules/{id}           – toggle a rule        (JWT required)
//	PUT  /api/settings             – replace settings     (JWT required)
//	POST /api/train, GET /api/train/status                (JWT required)
//	GET  /api/ti/...               – TI lookups and feeds (public)
//	POST /api/patch/recommend      – generated analysis   (public)
//	GET  /*                        – static assets with SPA fallback
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/server/storage"
)

// tokenTTL is the lifetime of issued bearer tokens.
const tokenTTL = 24 * time.Hour

// account is one login the stub accepts.
type account struct {
	hash []byte
	role model.Role
}

// Server is the stub WAF backend. Construct with New, mount with Router.
type Server struct {
	logger   *slog.Logger
	secret   []byte
	accounts map[string]account
	data     *dataset
	archive  *storage.Archive
	static   string
}

// Option configures a Server.
type Option func(*Server)

// WithSeed fixes the fixture generator seed.
func WithSeed(seed int64) Option {
	return func(s *Server) { s.data = newDataset(seed, s.data.trainTick) }
}

// WithTrainTick overrides the interval between training progress steps.
func WithTrainTick(d time.Duration) Option {
	return func(s *Server) { s.data.trainTick = d }
}

// WithArchive wires a PostgreSQL event archive. When set, the log and
// syslog endpoints serve from the archive instead of the in-memory
// fixtures.
func WithArchive(a *storage.Archive) Option {
	return func(s *Server) { s.archive = a }
}

// WithStaticDir enables static asset serving from dir on non-API paths.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.static = dir }
}

// WithAccount adds a login the stub accepts. The password is stored as a
// bcrypt hash.
func WithAccount(username, password string, role model.Role) Option {
	return func(s *Server) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic(fmt.Sprintf("server: hash account password: %v", err))
		}
		s.accounts[username] = account{hash: hash, role: role}
	}
}

// New builds a stub server. The default dataset seed is 1 and the default
// account set contains admin/admin123 and analyst/analyst123.
func New(logger *slog.Logger, secret []byte, opts ...Option) *Server {
	s := &Server{
		logger:   logger,
		secret:   secret,
		accounts: map[string]account{},
		data:     newDataset(1, 500*time.Millisecond),
	}
	WithAccount("admin", "admin123", model.RoleAdmin)(s)
	WithAccount("analyst", "analyst123", model.RoleAnalyst)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedEvents returns the fixture logs and syslogs as archive events, for
// preloading a fresh archive.
func (s *Server) SeedEvents() []storage.Event {
	var events []storage.Event
	for _, l := range s.data.logs {
		events = append(events, storage.Event{
			Kind:      storage.KindRequestLog,
			SourceID:  l.ID,
			Type:      l.Type,
			Severity:  string(l.Severity),
			Message:   l.Message,
			Timestamp: time.UnixMilli(l.Timestamp),
		})
	}
	for _, l := range s.data.syslogs {
		events = append(events, storage.Event{
			Kind:      storage.KindSyslog,
			SourceID:  l.ID,
			Type:      l.Type,
			Severity:  string(l.Severity),
			Message:   l.Message,
			Timestamp: time.UnixMilli(l.Timestamp),
		})
	}
	return events
}

// Router returns the configured chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/health", s.handleHealth)

		r.Route("/ti", func(r chi.Router) {
			r.Get("/virustotal", s.handleLookup("virustotal"))
			r.Get("/otx", s.handleLookup("otx"))
			r.Get("/abuseipdb", s.handleAbuseIPDB)
			r.Get("/feed/abuseipdb", s.handleFeed("abuseipdb"))
			r.Get("/feed/otx", s.handleFeed("otx"))
		})
		r.Post("/patch/recommend", s.handlePatchRecommend)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/kpis", s.handleKPIs)
			r.Get("/alerts", s.handleAlerts)
			r.Get("/traffic", s.handleTraffic)
			r.Get("/owasp", s.handleOWASP)
			r.Get("/heatmap", s.handleHeatmap)
			r.Get("/logs", s.handleLogs)
			r.Get("/syslog", s.handleSyslog)
			r.Get("/rules", s.handleRules)
			r.Put("/rules/{id}", s.handleToggleRule)
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
			r.Post("/train", s.handleTrain)
			r.Get("/train/status", s.handleTrainStatus)
		})
	})

	if s.static != "" {
		r.NotFound(s.handleStatic)
	}
	return r
}

// ─── Auth ────────────────────────────────────────────────────────────────────

// tokenClaims is the JWT payload the stub issues and verifies.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// handleLogin checks credentials and issues an HS256 bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "message": "Missing credentials",
		})
		return
	}

	acct, ok := s.accounts[body.Username]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(body.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "message": "Invalid credentials",
		})
		return
	}

	now := time.Now()
	claims := tokenClaims{
		Role: string(acct.role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   body.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("server: sign token", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "message": "Token generation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user": map[string]string{
			"username": body.Username,
			"role":     string(acct.role),
		},
	})
}

// requireToken verifies the Bearer token on protected routes. Failures get
// HTTP 401 with a JSON error body; the next handler is never called.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token is missing"})
			return
		}
		tokenStr := strings.TrimPrefix(raw, "Bearer ")

		var claims tokenClaims
		_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("server: unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil {
			s.logger.Warn("server: token rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── WAF resource handlers ───────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "hydra-stubwaf",
	})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.kpis)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", len(s.data.alerts))
	alerts := s.data.alerts
	if limit < len(alerts) {
		alerts = alerts[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trafficData": s.data.traffic})
}

func (s *Server) handleOWASP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.owasp)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"heatmap": s.data.heatmap})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.serveLog(w, r, storage.KindRequestLog, s.data.logs)
}

func (s *Server) handleSyslog(w http.ResponseWriter, r *http.Request) {
	s.serveLog(w, r, storage.KindSyslog, s.data.syslogs)
}

// serveLog answers a paginated log query from the archive when one is
// wired, falling back to the in-memory fixtures.
func (s *Server) serveLog(w http.ResponseWriter, r *http.Request, kind storage.EventKind, fallback []model.LogEntry) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	if s.archive != nil {
		events, total, err := s.archive.QueryEvents(r.Context(), storage.EventQuery{
			Kind: kind, Limit: limit, Offset: offset,
		})
		if err != nil {
			s.logger.Error("server: archive query", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive query failed"})
			return
		}
		logs := make([]model.LogEntry, 0, len(events))
		for _, e := range events {
			logs = append(logs, model.LogEntry{
				ID:        e.SourceID,
				Type:      e.Type,
				Severity:  model.Severity(e.Severity),
				Message:   e.Message,
				Timestamp: e.Timestamp.UnixMilli(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "total": total})
		return
	}

	total := len(fallback)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": fallback[offset:end], "total": total})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": s.data.Rules()})
}

func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid rule id"})
		return
	}
	enabled := r.URL.Query().Get("enabled") == "true"

	rule, ok := s.data.ToggleRule(id, enabled)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Rule not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule": rule})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid settings payload"})
		return
	}
	writeJSON(w, http.StatusOK, s.data.SetSettings(settings))
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"started": s.data.StartTraining()})
}

func (s *Server) handleTrainStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.TrainingStatus())
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

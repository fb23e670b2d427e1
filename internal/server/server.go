// Package server is the HTTP surface of the duel service: match lifecycle
// endpoints, puzzle generation and checking, profile lookup and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/storage"
	"github.com/dyluth/hecto/pkg/channel"
)

const (
	// DefaultRateLimit is the request budget per DefaultRateWindow.
	DefaultRateLimit  = 100
	DefaultRateWindow = time.Minute

	maxBodyBytes = 64 << 10
)

// Deps are the services the handlers call. Profiles and Storage are
// optional: without them the profile route is not registered and health
// skips the database check.
type Deps struct {
	Duel      *duel.Service
	Generator *puzzle.Generator
	Transport channel.Transport
	Profiles  *storage.Profiles
	Storage   Pinger
}

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to the duel service.
type Server struct {
	deps        Deps
	logger      *slog.Logger
	corsOrigins []string
	limiter     *rate.Limiter
	router      *mux.Router
	handler     http.Handler
	http        *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithRateLimit allows requests per window across all clients, bursting to
// requests.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests > 0 && window > 0 {
			s.limiter = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
		}
	}
}

// New builds the router and middleware chain.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		logger:      slog.Default(),
		corsOrigins: []string{"*"},
		limiter:     rate.NewLimiter(rate.Every(DefaultRateWindow/DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "http")
	s.router = s.routes()

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = s.rateLimit(c.Handler(s.logRequests(s.router)))
	s.http = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.handleCreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games", s.handleListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/move", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/submit", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/leave", s.handleLeave).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/end", s.handleEnd).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/spectate", s.handleSpectate).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}/unspectate", s.handleUnspectate).Methods(http.MethodPost)

	api.HandleFunc("/puzzles", s.handleGeneratePuzzle).Methods(http.MethodGet)
	api.HandleFunc("/puzzles/check", s.handleCheckPuzzle).Methods(http.MethodPost)
	api.HandleFunc("/puzzles/hint", s.handleHint).Methods(http.MethodGet)

	api.HandleFunc("/ranks", s.handleRanks).Methods(http.MethodGet)
	if s.deps.Profiles != nil {
		api.HandleFunc("/profiles/{id}", s.handleProfile).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Code: "NotFound"})
	})
	return r
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server_listening", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: "RateLimited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microarena/duelcore/internal/duel"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/internal/stream"
	"github.com/microarena/duelcore/pkg/cache"
	"github.com/microarena/duelcore/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the engine operations over HTTP, plus metrics and health
// probes.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Registry      *duel.Registry
	Book          *duel.Book
	Ledger        *ledger.Ledger
	Hub           *stream.Hub

	// DuelCache is the read-through cache for GET duel requests; nil disables
	// caching.
	DuelCache    cache.Cache
	DuelCacheTTL time.Duration

	// OpeningBalance is granted to accounts created without an explicit one.
	OpeningBalance int64
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := newEngineHandler(cfg)

	// Operational routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	// Engine routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts", h.handleCreateAccount)
		r.Get("/accounts/{accountID}", h.handleGetAccount)

		r.Post("/duels", h.handleCreateDuel)
		r.Get("/duels", h.handleListDuels)
		r.Get("/duels/{duelID}", h.handleGetDuel)
		r.Post("/duels/{duelID}/start", h.handleStartDuel)
		r.Post("/duels/{duelID}/resolve", h.handleResolveDuel)
		r.Post("/duels/{duelID}/cancel", h.handleCancelDuel)
		r.Put("/duels/{duelID}/state", h.handleUpdateExternalState)

		r.Post("/duels/{duelID}/bets", h.handlePlaceBet)
		r.Get("/duels/{duelID}/bets", h.handleListBets)
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{server: server, logger: cfg.Logger}
}

// Start begins serving. Blocks until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-stopping")
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying handler. Used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

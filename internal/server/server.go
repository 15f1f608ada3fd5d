package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/me/shopadmin/internal/config"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/store"
	"github.com/me/shopadmin/internal/ui"
)

// Version is reported by the health endpoint.
var Version = "dev"

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = 10 * time.Minute
)

// Server is the shopadmin web panel.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	gw        *gateway.Client
	ui        *ui.UI

	cleanupEvery time.Duration
}

// Option configures optional Server settings.
type Option func(*Server)

// WithCleanupInterval sets how often expired sessions are purged.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Server) {
		s.cleanupEvery = d
	}
}

// New creates a Server with all routes registered.
func New(cfg config.Config, st store.Store, gw *gateway.Client, logger *slog.Logger, opts ...Option) *Server {
	logger = logging.OrDiscard(logger)
	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger.With("component", "server"),
		config:       cfg.Server,
		startTime:    time.Now(),
		gw:           gw,
		cleanupEvery: cleanupInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ui = ui.New(st, gw, logger, ui.Config{
		Secure:     cfg.Server.Secure,
		SessionTTL: cfg.Server.SessionTTL,
		PageSize:   cfg.UI.PageSize,
		Debounce:   cfg.UI.Debounce,
	})

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(tagRequests)
	r.Use(accessLog(s.logger))

	r.Get("/healthz", s.handleHealth)

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)

	r.NotFound(s.handleNotFound)
}

// Run serves on the configured address until ctx is canceled, purging
// expired sessions in the background. It returns after a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", "addr", s.config.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		s.cleanupSessions(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// cleanupSessions deletes expired sessions every cleanupEvery until ctx ends.
func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ui.Sessions().Purge(ctx)
			if err != nil {
				s.logger.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired sessions removed", "count", n)
			}
		}
	}
}

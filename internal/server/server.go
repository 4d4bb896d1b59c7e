// AngelaMos | 2026
// server.go

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/health"
)

const readHeaderTimeout = 10 * time.Second

type Config struct {
	ServerConfig  config.ServerConfig
	HealthHandler *health.Handler
	Logger        *slog.Logger
}

type Server struct {
	httpServer *http.Server
	router     chi.Router
	health     *health.Handler
	logger     *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)

	addr := net.JoinHostPort(cfg.ServerConfig.Host, strconv.Itoa(cfg.ServerConfig.Port))

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadTimeout:       cfg.ServerConfig.ReadTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      cfg.ServerConfig.WriteTimeout,
			IdleTimeout:       cfg.ServerConfig.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		router: router,
		health: cfg.HealthHandler,
		logger: logger,
	}
}

func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown fails readiness first, waits drainDelay so load balancers stop
// routing here, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context, drainDelay time.Duration) error {
	if s.health != nil {
		s.health.Drain()
	}

	if drainDelay > 0 {
		s.logger.Info("draining before shutdown", "delay", drainDelay)
		timer := time.NewTimer(drainDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/contacts-backend/internal/auth"
	"github.com/carterperez-dev/contacts-backend/internal/avatar"
	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/contact"
	"github.com/carterperez-dev/contacts-backend/internal/core"
	"github.com/carterperez-dev/contacts-backend/internal/health"
	"github.com/carterperez-dev/contacts-backend/internal/mail"
	"github.com/carterperez-dev/contacts-backend/internal/metrics"
	"github.com/carterperez-dev/contacts-backend/internal/middleware"
	"github.com/carterperez-dev/contacts-backend/internal/server"
	"github.com/carterperez-dev/contacts-backend/internal/user"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	hasher, err := core.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token issuer initialized",
		"algorithm", "HS256",
		"session_expire", cfg.JWT.SessionExpire,
	)

	avatars, err := avatar.NewManager(cfg.Avatar)
	if err != nil {
		return err
	}

	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTPSender(cfg.Mail, logger)
		logger.Info("smtp sender configured", "addr", cfg.Mail.Address())
	} else {
		logger.Warn("mail.host not set, verification mail is logged only")
	}
	dispatcher := mail.NewDispatcher(sender, cfg.Mail, logger)
	dispatcher.Start()

	if cfg.Metrics.Enabled {
		metrics.MustRegister(prometheus.DefaultRegisterer, cfg.App.Name)
		metrics.RegisterPools(prometheus.DefaultRegisterer, db.SQL(), "contacts", redis.PoolStats)
	}

	userRepo := user.NewRepository(db.DB)
	authSvc := auth.NewService(
		userRepo,
		hasher,
		issuer,
		avatars,
		dispatcher,
		auth.ServiceConfig{
			RequireVerification: cfg.Auth.RequireVerification,
			VerifyBaseURL:       cfg.Auth.VerifyBaseURL,
			MutationTimeout:     cfg.Server.MutationTimeout,
		},
		logger,
	)
	authHandler := auth.NewHandler(authSvc, avatars)

	contactRepo := contact.NewRepository(db.DB)
	contactSvc := contact.NewService(contactRepo, cfg.Server.MutationTimeout)
	contactHandler := contact.NewHandler(contactSvc)

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Checker: db},
		health.Check{Name: "redis", Checker: redis},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()
	limiter := middleware.NewLimiter(redis.Client)
	router.Use(globalMiddleware(cfg, logger, limiter)...)

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	avatarFiles := http.FileServer(http.Dir(avatars.PublicDir()))
	router.Handle("/"+avatar.Dir+"/*", avatarFiles)

	authenticator := middleware.Authenticator(authSvc)
	authAttempts := limiter.PerClient(cfg.RateLimit.Auth, true)
	tiered := limiter.PerSubscription(cfg.RateLimit)

	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(
			r,
			authenticator,
			[]func(http.Handler) http.Handler{authAttempts},
			[]func(http.Handler) http.Handler{tiered},
		)
		contactHandler.RegisterRoutes(r, authenticator, tiered)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("mail dispatcher shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// globalMiddleware runs on every request. CORS must precede the limiter:
// preflights never reach it and 429 responses still carry CORS headers.
func globalMiddleware(
	cfg *config.Config,
	logger *slog.Logger,
	limiter *middleware.Limiter,
) []func(http.Handler) http.Handler {
	mw := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Logger(logger),
	}
	if cfg.Metrics.Enabled {
		mw = append(mw, middleware.Metrics)
	}

	return append(mw,
		middleware.CORS(cfg.CORS),
		middleware.SecurityHeaders(cfg.IsProduction()),
		limiter.PerClient(cfg.RateLimit.Global, false),
	)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

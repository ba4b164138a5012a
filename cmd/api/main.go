// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/examprep/internal/access"
	"github.com/carterperez-dev/examprep/internal/admin"
	"github.com/carterperez-dev/examprep/internal/auth"
	"github.com/carterperez-dev/examprep/internal/batch"
	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/content"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/enrollment"
	"github.com/carterperez-dev/examprep/internal/health"
	"github.com/carterperez-dev/examprep/internal/identity"
	"github.com/carterperez-dev/examprep/internal/mail"
	"github.com/carterperez-dev/examprep/internal/middleware"
	"github.com/carterperez-dev/examprep/internal/otp"
	"github.com/carterperez-dev/examprep/internal/payment"
	"github.com/carterperez-dev/examprep/internal/server"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

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

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return err
	}
	logger.Info("mailer initialized", "provider", cfg.Mail.Provider)

	identitySvc := identity.NewService(identity.NewRepository(db.DB), logger)
	identityHandler := identity.NewHandler(identitySvc)

	authSvc := auth.NewService(
		auth.NewRepository(db.DB),
		jwtManager,
		identitySvc,
		auth.NewRedisRevocations(redis),
	)
	authHandler := auth.NewHandler(authSvc)

	otpSvc := otp.NewService(otp.ServiceConfig{
		Repo:       otp.NewRepository(db.DB),
		Identities: identitySvc,
		Mailer:     mailer,
		Limiter:    otp.NewRedisIssueLimiter(redis, cfg.OTP),
		OTP:        cfg.OTP,
		AppName:    cfg.App.Name,
		Logger:     logger,
	})
	otpHandler := otp.NewHandler(otpSvc)

	enrollmentSvc := enrollment.NewService(enrollment.NewRepository(db.DB))
	enrollmentHandler := enrollment.NewHandler(enrollmentSvc)

	batchSvc := batch.NewService(batch.NewRepository(db.DB), enrollmentSvc, logger)
	batchHandler := batch.NewHandler(batchSvc)

	gate := access.NewGate(enrollmentSvc, logger)

	contentSvc := content.NewService(content.NewRepository(db.DB), batchSvc, gate, logger)
	contentHandler := content.NewHandler(contentSvc)

	paymentSvc := payment.NewService(payment.ServiceConfig{
		Repo:    payment.NewRepository(db.DB),
		Batches: batchSvc,
		Ledger:  enrollmentSvc,
		Gateway: payment.NewRazorpayGateway(cfg.Gateway),
		Config:  cfg.Gateway,
		Logger:  logger,
	})
	paymentHandler := payment.NewHandler(paymentSvc)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Repo:       admin.NewRepository(db.DB),
		Reconciler: paymentSvc,
		Tokens:     authSvc,
		OTPs:       otpSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Logger:     logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin
	studentOnly := middleware.RequireStudent

	// Endpoints that reveal whether an email is registered share a tight per-IP
	// budget.
	strictLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.StrictRequests, cfg.RateLimit.StrictRequests),
		KeyFunc:  middleware.KeyByIPAndRoute("identity"),
		FailOpen: false,
	}).Handler

	orderLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.OrderRequests, cfg.RateLimit.OrderRequests),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: false,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(strictLimiter)

			identityHandler.RegisterPublicRoutes(r)
			otpHandler.RegisterRoutes(r)
		})

		authHandler.RegisterRoutes(r, authenticator)

		identityHandler.RegisterRoutes(r, authenticator)
		identityHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		batchHandler.RegisterRoutes(r)
		batchHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		contentHandler.RegisterRoutes(r, optionalAuth)
		contentHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		enrollmentHandler.RegisterRoutes(r, authenticator, studentOnly)
		enrollmentHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		paymentHandler.RegisterRoutes(r, authenticator, studentOnly, orderLimiter)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
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

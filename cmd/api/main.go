// Package main is the entrypoint for the Reimagine API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/reimagine/reimagine/internal/alert"
	"github.com/reimagine/reimagine/internal/auth"
	"github.com/reimagine/reimagine/internal/cache"
	"github.com/reimagine/reimagine/internal/config"
	"github.com/reimagine/reimagine/internal/handler"
	"github.com/reimagine/reimagine/internal/metrics"
	"github.com/reimagine/reimagine/internal/middleware"
	"github.com/reimagine/reimagine/internal/provider"
	"github.com/reimagine/reimagine/internal/repository"
	"github.com/reimagine/reimagine/internal/server"
	"github.com/reimagine/reimagine/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize ledger store
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize image provider
	editor, err := provider.NewGemini(ctx, provider.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize image provider", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("image provider ready", "model", cfg.GeminiModel)

	// Initialize alerting
	var alerter alert.Alerter = alert.NewNoop()
	if cfg.AlertWebhookURL != "" {
		alerter = alert.NewWebhook(cfg.AlertWebhookURL, cfg.AlertWebhookSecret, logger)
	}

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	editService := service.NewEditService(service.EditServiceConfig{
		Ledger:          repo,
		Locker:          cacheClient,
		Editor:          editor,
		Alerter:         alerter,
		Metrics:         metricsRecorder,
		Logger:          logger,
		ProviderTimeout: cfg.ProviderTimeout,
		MaxInstruction:  cfg.MaxInstructionLength,
	})
	accountService := service.NewAccountService(repo, metricsRecorder, logger, cfg.SignupCredits)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	editHandler := handler.NewEditHandler(editService, logger)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	hookHandler := handler.NewHookHandler(accountService, cfg.IdentityWebhookSecret, cfg.CheckoutWebhookSecret, logger)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder, cfg.OpsKeyHash, logger)

	// Setup router
	verifier := auth.NewVerifier(cfg.AuthJWTSecret)
	r := setupRouter(h, healthHandler, editHandler, accountHandler, hookHandler, metricsHandler, verifier, cacheClient, cfg, logger)

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"provider_timeout", cfg.ProviderTimeout.String(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	editHandler *handler.EditHandler,
	accountHandler *handler.AccountHandler,
	hookHandler *handler.HookHandler,
	metricsHandler *handler.MetricsHandler,
	verifier *auth.Verifier,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Cross-origin browser clients need CORS with preflight handling.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Verifier: verifier,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:         logger,
		Cache:          cacheClient,
		EditEnabled:    cfg.RateLimitEditEnabled,
		EditPerMinute:  cfg.RateLimitEditPerMinute,
		EditBurst:      cfg.RateLimitEditBurst,
		WebhookEnabled: cfg.RateLimitWebhookEnabled,
		WebhookRPS:     cfg.RateLimitWebhookRPS,
		WebhookBurst:   cfg.RateLimitWebhookBurst,
	}

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.With(middleware.RateLimitUser(rateLimitCfg)).Post("/edits", editHandler.Create)
		r.Get("/account", accountHandler.Get)
	})

	// Signed collaborator webhooks (HMAC-authenticated, IP rate limited)
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))

		r.Post("/identity", hookHandler.Identity)
		r.Post("/checkout", hookHandler.Checkout)
	})

	// Operator endpoints
	r.Get("/internal/metrics", metricsHandler.Snapshot)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

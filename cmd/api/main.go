package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atelierlumen/leadgate/internal/api/router"
	"github.com/atelierlumen/leadgate/internal/audit"
	appconfig "github.com/atelierlumen/leadgate/internal/config"
	"github.com/atelierlumen/leadgate/internal/http/handlers"
	httpmiddleware "github.com/atelierlumen/leadgate/internal/http/middleware"
	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/internal/notify"
	"github.com/atelierlumen/leadgate/internal/observability/metrics"
	"github.com/atelierlumen/leadgate/internal/security"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	var logger *logging.Logger
	if cfg.IsDevelopment() {
		logger = logging.NewText(cfg.LogLevel)
	} else {
		logger = logging.New(cfg.LogLevel)
	}
	logger.Info("starting leadgate API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Blocklists: embedded defaults, optionally replaced from disk and
	// hot-reloaded on change.
	ruleset := security.DefaultRuleset()
	if cfg.BlocklistPath != "" {
		rs, err := security.LoadRuleset(cfg.BlocklistPath)
		if err != nil {
			logger.Error("failed to load blocklists, using embedded defaults", "path", cfg.BlocklistPath, "error", err)
		} else {
			ruleset = rs
		}
	}
	lists := security.NewBlocklistStore(ruleset)
	if cfg.BlocklistReload && cfg.BlocklistPath != "" {
		go func() {
			if err := security.WatchBlocklists(ctx, cfg.BlocklistPath, lists, logger); err != nil {
				logger.Error("blocklist watcher stopped", "error", err)
			}
		}()
	}

	// Storage: postgres when configured, in-memory otherwise (development).
	var (
		repo     leads.Repository
		recorder audit.Recorder
		events   handlers.EventLister
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to reach postgres", "error", err)
			os.Exit(1)
		}
		repo = leads.NewPostgresRepository(pool)

		auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open audit db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = auditDB.Close() }()
		store := audit.NewStore(auditDB)
		recorder = store
		events = store
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		repo = leads.NewInMemoryRepository()
		mem := audit.NewMemoryRecorder()
		recorder = mem
		events = mem
	}

	// Metrics
	gateMetrics := metrics.NewGateMetrics(prometheus.DefaultRegisterer)

	// Inbound gate
	verifier := security.NewTurnstileVerifier(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, cfg.IsDevelopment(), logger)
	gate := security.NewGate(lists, verifier, recorder, gateMetrics, logger)

	// Email notifications
	notifier := notify.NewService(newEmailSender(ctx, cfg, logger), cfg.NotifyToEmail, cfg.NotifyToName, cfg.QuoteReplyTo, logger)

	// Rate limiting: shared redis window when configured, in-process token
	// bucket otherwise.
	var limiter httpmiddleware.Limiter
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		limiter = httpmiddleware.NewRedisRateLimiter(client, cfg.RateLimitPerMinute, cfg.RateLimitWindow, logger)
	} else {
		limiter = httpmiddleware.NewRateLimiter(float64(cfg.RateLimitPerMinute)/cfg.RateLimitWindow.Seconds(), cfg.RateLimitBurst)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Contact:            handlers.NewContactHandler(gate, repo, notifier, logger),
		AdminLeads:         handlers.NewAdminLeadsHandler(repo, notifier, logger),
		AdminSecurity:      handlers.NewAdminSecurityHandler(events, logger),
		RateLimiter:        limiter,
		RateLimitEvents:    recorder,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newEmailSender picks the delivery backend from EMAIL_PROVIDER. The stub
// sender only logs, which is what development wants.
func newEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set, falling back to stub sender")
			return notify.NewStubEmailSender(logger)
		}
		return sender
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub sender", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	default:
		return notify.NewStubEmailSender(logger)
	}
}

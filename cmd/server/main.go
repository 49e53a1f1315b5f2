package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/database"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/settings"
	"github.com/hugh/chronos/internal/storage"
	"github.com/hugh/chronos/internal/tasks"
	"github.com/hugh/chronos/internal/web"
	"github.com/hugh/chronos/pkg/config"
	"github.com/hugh/chronos/pkg/crypto"
	"github.com/hugh/chronos/pkg/queue"
	"github.com/hugh/chronos/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, "server")
	slog.SetDefault(logger)

	logger.Info("starting Chronos server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
		"auth_mode", cfg.Auth.Mode,
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, commission accrual runs inline", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	if err := cfg.RequireEncryptionKey(); err != nil {
		logger.Error("refusing to start", "error", err)
		os.Exit(1)
	}
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using a generated development key, owner PINs will be unreadable after restart")
	}

	authOpts := auth.Options{TrialPeriod: cfg.Trial.Duration()}
	var tokens auth.TokenService
	if cfg.Auth.UsesJWT() {
		jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
		authOpts.JWT = jwtService
		tokens = jwtService
	} else {
		logger.Warn("AUTH_MODE=header: the x-user-email header is trusted without verification, strip it at the edge")
	}
	if cfg.Google.VerifyTokens {
		authOpts.Google = auth.NewUserinfoVerifier()
	}
	authService := auth.NewService(db, encryptor, authOpts)

	var gateway billing.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = billing.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, portal and checkout are disabled")
	}
	billingService := billing.NewService(db, gateway, billing.Prices{
		Monthly: cfg.Stripe.PriceIDMonthly,
		Yearly:  cfg.Stripe.PriceIDYearly,
	}, cfg.Stripe.FrontendURL)

	ledger := referral.NewLedger(db, cfg.Referral.CommissionPercent)

	routerCfg := api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		AuthService:    authService,
		Tokens:         tokens,
		Billing:        billingService,
		Ledger:         ledger,
		Settings:       settings.NewStore(db),
		Analytics:      analytics.NewService(db, ledger),
		Dispatcher:     tasks.NewDispatcher(asynqClient, ledger, logger),
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		SecureCookies:  !cfg.Server.IsDevelopment(),
		SessionMaxAge:  cfg.JWT.Expiry(),
	}

	if cfg.Storage.Enabled() {
		store, err := storage.NewS3Store(context.Background(), &cfg.Storage)
		if err != nil {
			logger.Error("failed to configure avatar storage", "error", err)
			os.Exit(1)
		}
		routerCfg.Avatars = store
	}

	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	routerCfg.Templates = templates

	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}
	routerCfg.StaticFS = staticFS

	router := api.NewRouter(routerCfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go router.RunJanitor(ctx, time.Minute)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	database.Close(db)

	logger.Info("server stopped")
}

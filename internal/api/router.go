package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api/handlers"
	"github.com/hugh/chronos/internal/api/middleware"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/settings"
	"github.com/hugh/chronos/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router

	limiter *middleware.RateLimiter
	csrf    *middleware.CSRFStore
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	AuthService *auth.Service
	Tokens      auth.TokenService // nil selects header identity
	Billing     *billing.Service
	Ledger      *referral.Ledger
	Settings    *settings.Store
	Analytics   *analytics.Service
	Dispatcher  handlers.CommissionDispatcher
	Avatars     storage.AvatarStore
	Templates   handlers.Renderer
	StaticFS    fs.FS

	WebhookSecret  string
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
	SecureCookies  bool
	SessionMaxAge  time.Duration
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		router.limiter = middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		r.Use(middleware.RateLimit(router.limiter))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Auth-Token", middleware.IdentityHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.ReferralCapture)

	if cfg.Tokens != nil {
		r.Use(middleware.TokenIdentity(cfg.Tokens))
		router.csrf = middleware.NewCSRFStore()
		r.Use(middleware.CSRF(router.csrf))
	} else {
		r.Use(middleware.HeaderIdentity())
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Billing, cfg.Avatars, cfg.Logger, handlers.SessionCookies{
		Secure: cfg.SecureCookies,
		MaxAge: cfg.SessionMaxAge,
	})
	settingsHandler := handlers.NewSettingsHandler(cfg.AuthService, cfg.Settings, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(cfg.AuthService, cfg.Ledger, cfg.Billing, cfg.Analytics, cfg.Logger)
	stripeHandler := handlers.NewStripeHandler(cfg.AuthService, cfg.Billing, cfg.Dispatcher, cfg.WebhookSecret, cfg.Logger)
	referralHandler := handlers.NewReferralHandler(cfg.AuthService, cfg.Ledger, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(cfg.AuthService, cfg.Analytics, cfg.Templates, cfg.Tokens == nil, cfg.Logger)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Public
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)
	r.Post("/auth/google-login", authHandler.GoogleLogin)
	r.Post("/referral/capture", referralHandler.Capture)
	r.Post("/stripe/webhook", stripeHandler.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/update-owner-pin", authHandler.UpdateOwnerPin)
		r.Post("/auth/avatar", authHandler.UploadAvatar)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Put)

		r.Get("/referral", referralHandler.Get)
		r.Get("/dashboard/stats", dashboardHandler.Stats)

		r.Post("/stripe/create-portal", stripeHandler.CreatePortal)
		r.Post("/stripe/create-checkout", stripeHandler.CreateCheckout)
		r.Get("/stripe/subscription", stripeHandler.Subscription)
	})

	r.Route("/admin", func(r chi.Router) {
		// Promotion is self-service, so it sits outside the admin gate.
		r.With(middleware.RequireIdentity).Post("/grant-access", adminHandler.GrantAccess)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AuthService))

			r.Post("/approve-commission", adminHandler.ApproveCommission)
			r.Post("/reset-subscription", adminHandler.ResetSubscription)
			r.Post("/cleanup-subscriptions", adminHandler.CleanupSubscriptions)
			r.Get("/commissions", adminHandler.ListCommissions)
			r.Get("/stats", adminHandler.Stats)
		})
	})

	// Web pages
	r.Get("/login", dashboardHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.DashboardGuard)
		r.Get("/", dashboardHandler.Index)
		r.Get("/dashboard", dashboardHandler.Index)
		r.Get("/dashboard/*", dashboardHandler.Index)
	})

	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return router
}

// RunJanitor prunes rate-limit and CSRF state until ctx is done.
func (rt *Router) RunJanitor(ctx context.Context, every time.Duration) {
	var stores []middleware.Pruner
	if rt.limiter != nil {
		stores = append(stores, rt.limiter)
	}
	if rt.csrf != nil {
		stores = append(stores, rt.csrf)
	}
	if len(stores) == 0 {
		return
	}
	middleware.RunJanitor(ctx, every, stores...)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Stripe     StripeConfig
	Referral   ReferralConfig
	Trial      TrialConfig
	Worker     WorkerConfig
	Google     GoogleConfig
	Storage    StorageConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// AuthConfig selects how request identity is established. "header" trusts the
// x-user-email header as-is, "jwt" requires a signed session token.
type AuthConfig struct {
	Mode string
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	PriceIDMonthly string
	PriceIDYearly  string
	FrontendURL    string
}

type ReferralConfig struct {
	CommissionPercent int
}

type TrialConfig struct {
	Days int
}

type WorkerConfig struct {
	Concurrency    int
	TrialSweepCron string
}

type GoogleConfig struct {
	VerifyTokens bool
}

type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (a *AuthConfig) UsesJWT() bool {
	return a.Mode == AuthModeJWT
}

func (t *TrialConfig) Duration() time.Duration {
	return time.Duration(t.Days) * 24 * time.Hour
}

// RequireEncryptionKey fails outside development when no ENCRYPTION_KEY is
// set. A generated key would not survive a restart, leaving sealed owner PINs
// unreadable.
func (c *Config) RequireEncryptionKey() error {
	if c.Encryption.Key == "" && !c.Server.IsDevelopment() {
		return fmt.Errorf("ENCRYPTION_KEY is required when SERVER_ENV=%s", c.Server.Env)
	}
	return nil
}

// Enabled reports whether avatar uploads have somewhere to go.
func (s *StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "chronos")
	v.SetDefault("DATABASE_PASSWORD", "chronos_secret")
	v.SetDefault("DATABASE_NAME", "chronos")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("AUTH_MODE", AuthModeHeader)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("STRIPE_FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("REFERRAL_COMMISSION_PERCENT", 30)
	v.SetDefault("TRIAL_DAYS", 14)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("WORKER_TRIAL_SWEEP_CRON", "0 * * * *")
	v.SetDefault("GOOGLE_VERIFY_TOKENS", false)
	v.SetDefault("STORAGE_REGION", "us-east-1")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Auth: AuthConfig{
			Mode: strings.ToLower(v.GetString("AUTH_MODE")),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
			PriceIDMonthly: v.GetString("STRIPE_PRICE_ID_MONTHLY"),
			PriceIDYearly:  v.GetString("STRIPE_PRICE_ID_YEARLY"),
			FrontendURL:    strings.TrimRight(v.GetString("STRIPE_FRONTEND_URL"), "/"),
		},
		Referral: ReferralConfig{
			CommissionPercent: v.GetInt("REFERRAL_COMMISSION_PERCENT"),
		},
		Trial: TrialConfig{
			Days: v.GetInt("TRIAL_DAYS"),
		},
		Worker: WorkerConfig{
			Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
			TrialSweepCron: v.GetString("WORKER_TRIAL_SWEEP_CRON"),
		},
		Google: GoogleConfig{
			VerifyTokens: v.GetBool("GOOGLE_VERIFY_TOKENS"),
		},
		Storage: StorageConfig{
			Bucket:        v.GetString("STORAGE_BUCKET"),
			Region:        v.GetString("STORAGE_REGION"),
			Endpoint:      v.GetString("STORAGE_ENDPOINT"),
			AccessKey:     v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:     v.GetString("STORAGE_SECRET_KEY"),
			PublicBaseURL: strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		},
	}

	if cfg.Auth.Mode != AuthModeHeader && cfg.Auth.Mode != AuthModeJWT {
		return nil, fmt.Errorf("invalid AUTH_MODE %q", cfg.Auth.Mode)
	}
	if cfg.Referral.CommissionPercent < 0 || cfg.Referral.CommissionPercent > 100 {
		return nil, fmt.Errorf("REFERRAL_COMMISSION_PERCENT out of range: %d", cfg.Referral.CommissionPercent)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

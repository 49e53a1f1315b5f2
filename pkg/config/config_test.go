package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_MODE", "header")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AuthModeHeader, cfg.Auth.Mode)
	assert.False(t, cfg.Auth.UsesJWT())
	assert.Equal(t, 30, cfg.Referral.CommissionPercent)
	assert.Equal(t, 14*24*time.Hour, cfg.Trial.Duration())
	assert.Equal(t, "0 * * * *", cfg.Worker.TrialSweepCron)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://app.chronos.test, https://admin.chronos.test")
	t.Setenv("STRIPE_FRONTEND_URL", "https://app.chronos.test/")
	t.Setenv("STORAGE_BUCKET", "avatars")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Auth.UsesJWT())
	assert.Equal(t, []string{"https://app.chronos.test", "https://admin.chronos.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://app.chronos.test", cfg.Stripe.FrontendURL)
	assert.True(t, cfg.Storage.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown auth mode", func(t *testing.T) {
		t.Setenv("AUTH_MODE", "cookie")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("commission percent out of range", func(t *testing.T) {
		t.Setenv("AUTH_MODE", "header")
		t.Setenv("REFERRAL_COMMISSION_PERCENT", "150")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestConfig_RequireEncryptionKey(t *testing.T) {
	dev := &Config{Server: ServerConfig{Env: "development"}}
	assert.NoError(t, dev.RequireEncryptionKey())

	prod := &Config{Server: ServerConfig{Env: "production"}}
	assert.Error(t, prod.RequireEncryptionKey())

	prod.Encryption.Key = "AGE-SECRET-KEY-1TEST"
	assert.NoError(t, prod.RequireEncryptionKey())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "chronos", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=chronos sslmode=disable", d.DSN())
}

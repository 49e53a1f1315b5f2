//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/database"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/pkg/config"
	"github.com/hugh/chronos/pkg/crypto"
	"github.com/hugh/chronos/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, "seed")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if cfg.Encryption.Key == "" {
		log.Fatal("ENCRYPTION_KEY must be set, otherwise the seeded owner PIN cannot be read back")
	}
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("failed to create encryptor: %v", err)
	}

	authService := auth.NewService(db, encryptor, auth.Options{TrialPeriod: cfg.Trial.Duration()})
	ledger := referral.NewLedger(db, cfg.Referral.CommissionPercent)
	ctx := context.Background()

	email := envOr("ADMIN_EMAIL", "owner@example.com")
	password := envOr("ADMIN_PASSWORD", "chronos-owner-123")
	name := envOr("ADMIN_NAME", "Owner")
	pin := envOr("OWNER_PIN", "2580")

	_, err = authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
	})
	switch {
	case err == nil:
		fmt.Printf("Owner user created: %s\n", email)
	case errors.Is(err, auth.ErrUserExists):
		fmt.Printf("Owner user already exists: %s\n", email)
	default:
		log.Fatalf("failed to create owner user: %v", err)
	}

	user, err := authService.GetUserByEmail(ctx, email)
	if err != nil {
		log.Fatalf("failed to load owner user: %v", err)
	}

	if err := authService.UpdateOwnerPin(ctx, user.ID, pin); err != nil {
		log.Fatalf("failed to set owner pin: %v", err)
	}
	if _, err := authService.GrantAdminAccess(ctx, email, pin); err != nil {
		log.Fatalf("failed to grant admin access: %v", err)
	}

	ref, err := ledger.EnsureReferral(ctx, user.ID)
	if err != nil {
		log.Fatalf("failed to issue referral code: %v", err)
	}

	fmt.Printf("Admin access granted\n")
	fmt.Printf("Referral code: %s\n", ref.Code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

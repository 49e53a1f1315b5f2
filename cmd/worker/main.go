package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/database"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/tasks"
	"github.com/hugh/chronos/pkg/config"
	"github.com/hugh/chronos/pkg/queue"
	"github.com/hugh/chronos/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, "worker")
	slog.SetDefault(logger)

	logger.Info("starting Chronos worker", "concurrency", cfg.Worker.Concurrency)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Sweeps only touch local rows, so no processor gateway is needed.
	billingService := billing.NewService(db, nil, billing.Prices{}, cfg.Stripe.FrontendURL)
	ledger := referral.NewLedger(db, cfg.Referral.CommissionPercent)
	handler := tasks.NewHandler(ledger, billingService, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	scheduler := queue.NewScheduler(&cfg.Redis)
	if err := util.ValidateCronExpr(cfg.Worker.TrialSweepCron); err != nil {
		logger.Error("invalid trial sweep schedule", "cron", cfg.Worker.TrialSweepCron, "error", err)
		os.Exit(1)
	}
	entryID, err := scheduler.Register(cfg.Worker.TrialSweepCron, tasks.NewTrialSweepTask())
	if err != nil {
		logger.Error("failed to register trial sweep", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Worker.TrialSweepCron, time.Now()); err == nil {
		logger.Info("trial sweep scheduled", "entry_id", entryID, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	database.Close(db)
	logger.Info("worker stopped")
}

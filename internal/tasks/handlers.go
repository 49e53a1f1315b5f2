package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/referral"
)

type Handler struct {
	ledger  *referral.Ledger
	billing *billing.Service
	logger  *slog.Logger
}

func NewHandler(ledger *referral.Ledger, billingService *billing.Service, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:  ledger,
		billing: billingService,
		logger:  logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCommissionAccrue, h.HandleCommissionAccrue)
	mux.HandleFunc(TypeTrialSweep, h.HandleTrialSweep)
}

func (h *Handler) HandleCommissionAccrue(ctx context.Context, t *asynq.Task) error {
	var payload CommissionAccruePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	return h.accrue(ctx, payload)
}

func (h *Handler) accrue(ctx context.Context, payload CommissionAccruePayload) error {
	commission, created, err := h.ledger.Accrue(ctx, referral.AccrualInput{
		ReferredUserEmail: payload.ReferredUserEmail,
		InvoiceID:         payload.InvoiceID,
		AmountPaidCents:   payload.AmountPaidCents,
	})
	if errors.Is(err, referral.ErrNotReferred) {
		h.logger.Debug("invoice has no referrer", "invoice_id", payload.InvoiceID)
		return nil
	}
	if err != nil {
		h.logger.Error("commission accrual failed", "invoice_id", payload.InvoiceID, "error", err)
		return err
	}

	if created {
		h.logger.Info("commission accrued",
			"commission_id", commission.ID,
			"referral_id", commission.ReferralID,
			"invoice_id", payload.InvoiceID,
			"amount_cents", commission.AmountCents,
		)
	}
	return nil
}

func (h *Handler) HandleTrialSweep(ctx context.Context, _ *asynq.Task) error {
	expired, err := h.billing.ExpireTrials(ctx)
	if err != nil {
		h.logger.Error("trial sweep failed", "error", err)
		return err
	}

	h.logger.Info("trial sweep complete", "expired", expired)
	return nil
}

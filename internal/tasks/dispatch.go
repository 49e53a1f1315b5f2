package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/internal/referral"
)

// Dispatcher hands accrual work to the worker, or runs it in-process when the
// server has no queue.
type Dispatcher struct {
	client  *asynq.Client
	handler *Handler
	logger  *slog.Logger
}

func NewDispatcher(client *asynq.Client, ledger *referral.Ledger, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		handler: NewHandler(ledger, nil, logger),
		logger:  logger,
	}
}

func (d *Dispatcher) AccrueCommission(ctx context.Context, payload CommissionAccruePayload) error {
	if d.client == nil {
		return d.handler.accrue(ctx, payload)
	}

	task, err := NewCommissionAccrueTask(payload)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	switch {
	case err == nil:
		d.logger.Info("enqueued commission accrual", "task_id", info.ID, "invoice_id", payload.InvoiceID)
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict):
		// Already queued for this invoice.
		return nil
	default:
		return fmt.Errorf("enqueue accrual: %w", err)
	}
}

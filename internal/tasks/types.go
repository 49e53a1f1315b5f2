package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/pkg/queue"
)

// Task type names
const (
	TypeCommissionAccrue = "commission:accrue"
	TypeTrialSweep       = "trial:sweep"
)

// CommissionAccruePayload identifies an invoice settled by a possibly
// referred customer.
type CommissionAccruePayload struct {
	ReferredUserEmail string `json:"referred_user_email"`
	InvoiceID         string `json:"invoice_id"`
	AmountPaidCents   int64  `json:"amount_paid_cents"`
}

// NewCommissionAccrueTask builds an accrual task. The task id is derived from
// the invoice so webhook redeliveries collapse onto one queued task.
func NewCommissionAccrueTask(payload CommissionAccruePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCommissionAccrue, data,
		asynq.Queue(queue.QueueBilling),
		asynq.TaskID("accrue:"+payload.InvoiceID),
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	), nil
}

func NewTrialSweepTask() *asynq.Task {
	return asynq.NewTask(TypeTrialSweep, nil,
		asynq.Queue(queue.QueueMaintenance),
		asynq.MaxRetry(1),
	)
}

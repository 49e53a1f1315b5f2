package queue

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/chronos/pkg/config"
)

// Queue names. Billing work (commission accrual) outranks housekeeping.
const (
	QueueBilling     = "billing"
	QueueDefault     = "default"
	QueueMaintenance = "maintenance"
)

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func NewServer(cfg *config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueBilling:     6,
				QueueDefault:     3,
				QueueMaintenance: 1,
			},
		},
	)
}

// NewScheduler returns a UTC scheduler for periodic maintenance tasks.
func NewScheduler(cfg *config.RedisConfig) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
	})
}

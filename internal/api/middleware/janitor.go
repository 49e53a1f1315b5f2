package middleware

import (
	"context"
	"time"
)

type Pruner interface {
	Prune()
}

// RunJanitor prunes the given stores every interval until ctx is done.
func RunJanitor(ctx context.Context, every time.Duration, stores ...Pruner) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range stores {
				s.Prune()
			}
		}
	}
}

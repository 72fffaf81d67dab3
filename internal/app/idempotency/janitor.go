package idempotency

import (
	"context"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

// Janitor periodically deletes expired idempotency records.
type Janitor struct {
	store    interfaces.IdempotencyStore
	interval time.Duration
	logger   logger.Logger
}

func NewJanitor(store interfaces.IdempotencyStore, interval time.Duration, logger logger.Logger) *Janitor {
	return &Janitor{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) {
	purged, err := j.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("idempotency_purge_failed", "Failed to purge expired idempotency keys", "", nil, err)
		return
	}
	if purged > 0 {
		j.logger.Debug("idempotency_purged", "Purged expired idempotency keys", "", map[string]interface{}{
			"count": purged,
		})
	}
}

package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

// Guard runs a request at most once per idempotency key: claim the key, do
// the work, then store the rendered response under the same claim.
type Guard struct {
	store  interfaces.IdempotencyStore
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewGuard(store interfaces.IdempotencyStore, ttl time.Duration, logger logger.Logger) *Guard {
	return &Guard{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

type Work func(ctx context.Context) (*interfaces.StoredResponse, error)

// Do executes work unless rawKey was already seen with the same fingerprint,
// in which case the stored response is returned with Replayed set. An empty
// key disables the guard.
func (g *Guard) Do(ctx context.Context, rawKey, fingerprint string, work Work) (*interfaces.StoredResponse, error) {
	if rawKey == "" {
		return work(ctx)
	}

	key := domain.HashKey([]byte(rawKey))
	rec, claimed, err := g.store.Claim(ctx, key, fingerprint, g.now(), g.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	if !claimed {
		switch {
		case rec.Fingerprint != fingerprint:
			return nil, domain.ErrIdempotencyMismatch
		case rec.State != domain.IdempotencyCompleted:
			return nil, domain.ErrIdempotencyInProgress
		}
		g.logger.Debug("idempotent_replay", "Replaying stored response", "", map[string]interface{}{
			"key":         key,
			"status_code": rec.StatusCode,
		})
		return &interfaces.StoredResponse{StatusCode: rec.StatusCode, Body: rec.Body, Replayed: true}, nil
	}

	resp, err := work(ctx)
	if err != nil || resp.StatusCode >= http.StatusInternalServerError {
		g.release(ctx, key)
		return resp, err
	}

	// a client that hung up after the write still needs its replay
	if err := g.store.Complete(context.WithoutCancel(ctx), key, resp.StatusCode, resp.Body); err != nil {
		// the work is done; retries see an in-progress key until it expires
		g.logger.Error("idempotency_store_failed", "Failed to store idempotent response", "", map[string]interface{}{
			"key": key,
		}, err)
	}
	return resp, nil
}

func (g *Guard) release(ctx context.Context, key string) {
	if err := g.store.Release(context.WithoutCancel(ctx), key); err != nil {
		g.logger.Warn("idempotency_release_failed", "Failed to release idempotency key", "", map[string]interface{}{
			"key": key,
		}, err)
	}
}

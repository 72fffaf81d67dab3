package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

const claimAttempts = 3

type idempotencyStore struct {
	db DB
}

func NewIdempotencyStore(db DB) interfaces.IdempotencyStore {
	return &idempotencyStore{db: db}
}

// Claim relies on the primary key: the insert succeeds for a new key, the
// conditional update re-claims an expired one, and a live key yields no row.
func (s *idempotencyStore) Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (*domain.IdempotencyRecord, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		rec := &domain.IdempotencyRecord{
			Key:         key,
			Fingerprint: fingerprint,
			State:       domain.IdempotencyInProgress,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		}

		var claimed string
		err := s.db.QueryRow(ctx, `
			INSERT INTO idempotency_keys (key, fingerprint, state, status_code, body, expires_at, created_at)
			VALUES ($1, $2, $3, 0, NULL, $4, $5)
			ON CONFLICT (key) DO UPDATE
			SET fingerprint = EXCLUDED.fingerprint,
			    state       = EXCLUDED.state,
			    status_code = 0,
			    body        = NULL,
			    expires_at  = EXCLUDED.expires_at,
			    created_at  = EXCLUDED.created_at
			WHERE idempotency_keys.expires_at <= $5
			RETURNING key
		`, key, fingerprint, rec.State, rec.ExpiresAt, now).Scan(&claimed)
		if err == nil {
			return rec, true, nil
		}
		if !isNoRows(err) {
			return nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
		}

		existing, err := s.find(ctx, key)
		if err == nil {
			return existing, false, nil
		}
		// released between the two statements; try again
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("idempotency key %s kept changing during claim", key)
}

func (s *idempotencyStore) find(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := s.db.QueryRow(ctx, `
		SELECT key, fingerprint, state, status_code, body, expires_at, created_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(&rec.Key, &rec.Fingerprint, &rec.State, &rec.StatusCode, &rec.Body, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load idempotency key: %w", err)
	}
	return &rec, nil
}

func (s *idempotencyStore) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE idempotency_keys SET state = $1, status_code = $2, body = $3
		WHERE key = $4
	`, domain.IdempotencyCompleted, statusCode, body, key)
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (s *idempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND state = $2`, key, domain.IdempotencyInProgress)
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func (s *idempotencyStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type idempotencyStore struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

// NewIdempotencyStore returns a mutex-guarded store; Claim is atomic within
// the process.
func NewIdempotencyStore() interfaces.IdempotencyStore {
	return &idempotencyStore{records: make(map[string]*domain.IdempotencyRecord)}
}

func (s *idempotencyStore) Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (*domain.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && !existing.Expired(now) {
		cp := *existing
		return &cp, false, nil
	}

	rec := &domain.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		State:       domain.IdempotencyInProgress,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	s.records[key] = rec
	cp := *rec
	return &cp, true, nil
}

func (s *idempotencyStore) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
	}
	rec.State = domain.IdempotencyCompleted
	rec.StatusCode = statusCode
	rec.Body = append([]byte(nil), body...)
	return nil
}

func (s *idempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.State == domain.IdempotencyInProgress {
		delete(s.records, key)
	}
	return nil
}

func (s *idempotencyStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}

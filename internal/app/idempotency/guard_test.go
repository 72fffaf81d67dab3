package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/adapter/memory"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

func created(body string) Work {
	return func(ctx context.Context) (*interfaces.StoredResponse, error) {
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated, Body: []byte(body)}, nil
	}
}

func TestGuardReplaysStoredResponse(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	var calls int
	work := func(ctx context.Context) (*interfaces.StoredResponse, error) {
		calls++
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated, Body: []byte(`{"no":"ORD-A-1"}`)}, nil
	}

	first, err := g.Do(ctx, "key-1", "fp", work)
	if err != nil {
		t.Fatalf("first Do error: %v", err)
	}
	second, err := g.Do(ctx, "key-1", "fp", work)
	if err != nil {
		t.Fatalf("second Do error: %v", err)
	}

	if calls != 1 {
		t.Fatalf("work ran %d times, want 1", calls)
	}
	if !second.Replayed || second.StatusCode != first.StatusCode || !bytes.Equal(second.Body, first.Body) {
		t.Fatalf("replay differs: first=%+v second=%+v", first, second)
	}
}

func TestGuardRejectsDifferentPayload(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	if _, err := g.Do(ctx, "key-1", "fp-a", created("a")); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if _, err := g.Do(ctx, "key-1", "fp-b", created("b")); !errors.Is(err, domain.ErrIdempotencyMismatch) {
		t.Fatalf("error = %v, want ErrIdempotencyMismatch", err)
	}
}

func TestGuardReportsInProgress(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Do(ctx, "key-1", "fp", func(ctx context.Context) (*interfaces.StoredResponse, error) {
			close(started)
			<-release
			return &interfaces.StoredResponse{StatusCode: http.StatusCreated}, nil
		})
	}()

	<-started
	if _, err := g.Do(ctx, "key-1", "fp", created("x")); !errors.Is(err, domain.ErrIdempotencyInProgress) {
		t.Fatalf("error = %v, want ErrIdempotencyInProgress", err)
	}
	close(release)
	<-done
}

// ctxStore fails writes on a cancelled context, as a database driver does.
type ctxStore struct {
	interfaces.IdempotencyStore
}

func (s ctxStore) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.IdempotencyStore.Complete(ctx, key, statusCode, body)
}

func TestGuardCompletesAfterClientGone(t *testing.T) {
	g := NewGuard(ctxStore{memory.NewIdempotencyStore()}, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	_, err := g.Do(ctx, "key-1", "fp", func(ctx context.Context) (*interfaces.StoredResponse, error) {
		cancel()
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated, Body: []byte("ORD-A-1")}, nil
	})
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}

	resp, err := g.Do(context.Background(), "key-1", "fp", created("second"))
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if !resp.Replayed || string(resp.Body) != "ORD-A-1" {
		t.Fatalf("retry = %+v, want replay of the first response", resp)
	}
}

func TestGuardReleasesOnFailure(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := g.Do(ctx, "key-1", "fp", func(ctx context.Context) (*interfaces.StoredResponse, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	resp, err := g.Do(ctx, "key-1", "fp", created("ok"))
	if err != nil {
		t.Fatalf("retry after failure error: %v", err)
	}
	if resp.Replayed || string(resp.Body) != "ok" {
		t.Fatalf("retry was not executed: %+v", resp)
	}
}

func TestGuardStoresClientErrors(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	var calls int
	work := func(ctx context.Context) (*interfaces.StoredResponse, error) {
		calls++
		return &interfaces.StoredResponse{StatusCode: http.StatusBadRequest, Body: []byte(`{"error":"bad"}`)}, nil
	}
	_, _ = g.Do(ctx, "key-1", "fp", work)
	resp, err := g.Do(ctx, "key-1", "fp", work)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if calls != 1 || resp.StatusCode != http.StatusBadRequest || !resp.Replayed {
		t.Fatalf("calls=%d resp=%+v", calls, resp)
	}
}

func TestGuardKeyExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop()).
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := g.Do(ctx, "key-1", "fp-a", created("a")); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	now = now.Add(time.Minute)

	resp, err := g.Do(ctx, "key-1", "fp-b", created("b"))
	if err != nil {
		t.Fatalf("Do after expiry error: %v", err)
	}
	if resp.Replayed || string(resp.Body) != "b" {
		t.Fatalf("expired key was replayed: %+v", resp)
	}
}

func TestGuardConcurrentRequestsRunOnce(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	var calls atomic.Int32
	work := func(ctx context.Context) (*interfaces.StoredResponse, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated, Body: []byte("once")}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := g.Do(ctx, "key-1", "fp", work)
			if err != nil && !errors.Is(err, domain.ErrIdempotencyInProgress) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil && string(resp.Body) != "once" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("work ran %d times, want 1", n)
	}
}

func TestGuardWithoutKey(t *testing.T) {
	g := NewGuard(memory.NewIdempotencyStore(), time.Minute, logger.Nop())

	var calls int
	work := func(ctx context.Context) (*interfaces.StoredResponse, error) {
		calls++
		return &interfaces.StoredResponse{StatusCode: http.StatusCreated}, nil
	}
	_, _ = g.Do(context.Background(), "", "fp", work)
	_, _ = g.Do(context.Background(), "", "fp", work)
	if calls != 2 {
		t.Fatalf("work ran %d times without a key, want 2", calls)
	}
}

func TestJanitorSweep(t *testing.T) {
	store := memory.NewIdempotencyStore()
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	if _, _, err := store.Claim(ctx, "old", "fp", past, time.Minute); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if _, _, err := store.Claim(ctx, "fresh", "fp", time.Now(), time.Hour); err != nil {
		t.Fatalf("Claim error: %v", err)
	}

	NewJanitor(store, time.Minute, logger.Nop()).Sweep(ctx)

	purged, _ := store.PurgeExpired(ctx, time.Now())
	if purged != 0 {
		t.Fatalf("sweep left %d expired records", purged)
	}
	if _, claimed, _ := store.Claim(ctx, "fresh", "fp", time.Now(), time.Hour); claimed {
		t.Fatalf("fresh record was purged")
	}
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type reservationRepository struct {
	mu      sync.RWMutex
	byID    map[int64]*domain.Reservation
	logs    map[int64][]*domain.StatusLog
	nextID  int64
	nextLog int64
	tables  interfaces.TableRepository

	slotMu    sync.Mutex
	slotLocks map[string]*sync.Mutex
}

// NewReservationRepository returns a process-local reservation store whose
// capacity comes from tables.
func NewReservationRepository(tables interfaces.TableRepository) interfaces.ReservationRepository {
	return &reservationRepository{
		byID:      make(map[int64]*domain.Reservation),
		logs:      make(map[int64][]*domain.StatusLog),
		tables:    tables,
		slotLocks: make(map[string]*sync.Mutex),
	}
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	res.ID = r.nextID
	cp := *res
	r.byID[res.ID] = &cp
	r.appendLog(res.ID, string(res.Status), "public", res.CreatedAt)
	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	cp := *res
	return &cp, nil
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation, from domain.ReservationStatus, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[res.ID]
	if !ok {
		return fmt.Errorf("reservation %d: %w", res.ID, domain.ErrNotFound)
	}
	if stored.Status != from {
		return fmt.Errorf("%w: reservation %d is %s, expected %s", domain.ErrInvalidStatusTransition, res.ID, stored.Status, from)
	}

	cp := *res
	r.byID[res.ID] = &cp
	if from != res.Status {
		r.appendLog(res.ID, string(res.Status), changedBy, res.UpdatedAt)
	}
	return nil
}

func (r *reservationRepository) GetStatusHistory(ctx context.Context, reservationID int64) ([]*domain.StatusLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := r.logs[reservationID]
	out := make([]*domain.StatusLog, len(logs))
	for i, l := range logs {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

func (r *reservationRepository) BookedGuests(ctx context.Context, date time.Time, slot domain.Slot, excludeID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := domain.DateOf(date)
	total := 0
	for id, res := range r.byID {
		if id == excludeID || !res.Status.HoldsCapacity() {
			continue
		}
		if res.Date.Equal(day) && res.Time == slot {
			total += res.Guests
		}
	}
	return total, nil
}

func (r *reservationRepository) TotalCapacity(ctx context.Context) (int, error) {
	tables, err := r.tables.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range tables {
		total += t.Capacity
	}
	return total, nil
}

// WithSlotLock serializes callers per date and slot. The in-memory store has
// no rollback; fn must perform its single write last.
func (r *reservationRepository) WithSlotLock(ctx context.Context, date time.Time, slot domain.Slot, fn func(tx interfaces.ReservationTx) error) error {
	lock := r.slotLock(domain.DateOf(date).Format(time.DateOnly) + " " + slot.String())
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(r)
}

func (r *reservationRepository) slotLock(key string) *sync.Mutex {
	r.slotMu.Lock()
	defer r.slotMu.Unlock()

	lock, ok := r.slotLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.slotLocks[key] = lock
	}
	return lock
}

func (r *reservationRepository) appendLog(id int64, status, changedBy string, at time.Time) {
	r.nextLog++
	r.logs[id] = append(r.logs[id], &domain.StatusLog{
		ID:        r.nextLog,
		SubjectID: id,
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: at,
	})
}

package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
)

// Интерфейсы Репозиториев (Adapter/Postgres, Adapter/Memory)
type OrderRepository interface {
	// Create persists the order, its items and the initial status log in one
	// transaction. A clash on the order number yields domain.ErrDuplicateOrderNumber.
	Create(ctx context.Context, order *domain.Order) error
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	// UpdateStatus stores order.Status only if the stored status still equals from.
	UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, changedBy string) error
	ReplaceItems(ctx context.Context, order *domain.Order) error
	GetStatusHistory(ctx context.Context, orderID int64) ([]*domain.StatusLog, error)
}

// CapacityReader is what the availability checker needs to see.
type CapacityReader interface {
	// BookedGuests sums guests of capacity-holding reservations in the slot,
	// skipping excludeID.
	BookedGuests(ctx context.Context, date time.Time, slot domain.Slot, excludeID int64) (int, error)
	TotalCapacity(ctx context.Context) (int, error)
}

// ReservationTx is the view of the store inside a slot-locked transaction.
type ReservationTx interface {
	CapacityReader
	FindByID(ctx context.Context, id int64) (*domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation, from domain.ReservationStatus, changedBy string) error
}

type ReservationRepository interface {
	CapacityReader
	Create(ctx context.Context, r *domain.Reservation) error
	FindByID(ctx context.Context, id int64) (*domain.Reservation, error)
	// Update stores r only if the stored status still equals from.
	Update(ctx context.Context, r *domain.Reservation, from domain.ReservationStatus, changedBy string) error
	GetStatusHistory(ctx context.Context, reservationID int64) ([]*domain.StatusLog, error)
	// WithSlotLock runs fn in a transaction that excludes every other
	// WithSlotLock call for the same date and slot.
	WithSlotLock(ctx context.Context, date time.Time, slot domain.Slot, fn func(tx ReservationTx) error) error
}

type TableRepository interface {
	Upsert(ctx context.Context, table *domain.Table) error
	ListAll(ctx context.Context) ([]*domain.Table, error)
}

// IdempotencyStore must make Claim atomic: of two concurrent claims for the
// same live key exactly one reports claimed=true.
type IdempotencyStore interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (*domain.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, statusCode int, body []byte) error
	Release(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

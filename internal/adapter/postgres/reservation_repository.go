package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"github.com/jackc/pgx/v5"
)

const reservationColumns = `
	id, name, email, phone, date, time_slot, guests, message, status,
	is_confirmed, confirmed_at, confirmation_message, created_at, updated_at`

type reservationRepository struct {
	db DB
	reservationQueries
}

// reservationQueries runs against either the pool or a slot-locked
// transaction.
type reservationQueries struct {
	q Querier
}

type reservationTx struct {
	reservationQueries
	tx Tx
}

func NewReservationRepository(db DB) interfaces.ReservationRepository {
	return &reservationRepository{db: db, reservationQueries: reservationQueries{q: db}}
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	return inTx(ctx, r.db, func(tx Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO reservations (name, email, phone, date, time_slot, guests, message, status,
			                          is_confirmed, confirmed_at, confirmation_message, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`, res.Name, res.Email, res.Phone, res.Date, string(res.Time), res.Guests, res.Message, res.Status,
			res.IsConfirmed, res.ConfirmedAt, res.ConfirmationMessage, res.CreatedAt, res.UpdatedAt,
		).Scan(&res.ID)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}
		return logReservationStatus(ctx, tx, res.ID, res.Status, "public", res.CreatedAt)
	})
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation, from domain.ReservationStatus, changedBy string) error {
	return inTx(ctx, r.db, func(tx Tx) error {
		return updateReservation(ctx, tx, res, from, changedBy)
	})
}

func (r *reservationRepository) GetStatusHistory(ctx context.Context, reservationID int64) ([]*domain.StatusLog, error) {
	return statusHistory(ctx, r.db, `
		SELECT id, reservation_id, status, changed_by, changed_at, notes
		FROM reservation_status_log
		WHERE reservation_id = $1
		ORDER BY changed_at ASC, id ASC
	`, reservationID)
}

// WithSlotLock takes a transaction-scoped advisory lock keyed by date and
// slot. Confirmations for other slots proceed in parallel.
func (r *reservationRepository) WithSlotLock(ctx context.Context, date time.Time, slot domain.Slot, fn func(tx interfaces.ReservationTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slotLockKey(date, slot)); err != nil {
		return fmt.Errorf("failed to lock slot: %w", err)
	}

	if err := fn(&reservationTx{reservationQueries: reservationQueries{q: tx}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func slotLockKey(date time.Time, slot domain.Slot) string {
	return "reservation-slot:" + domain.DateOf(date).Format(time.DateOnly) + "T" + slot.String()
}

func (t *reservationTx) Update(ctx context.Context, res *domain.Reservation, from domain.ReservationStatus, changedBy string) error {
	return updateReservation(ctx, t.tx, res, from, changedBy)
}

func (rq reservationQueries) FindByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var (
		res  domain.Reservation
		slot string
	)
	err := rq.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id).Scan(
		&res.ID, &res.Name, &res.Email, &res.Phone, &res.Date, &slot, &res.Guests, &res.Message, &res.Status,
		&res.IsConfirmed, &res.ConfirmedAt, &res.ConfirmationMessage, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	res.Time = domain.Slot(slot)
	res.Date = domain.DateOf(res.Date)
	return &res, nil
}

func (rq reservationQueries) BookedGuests(ctx context.Context, date time.Time, slot domain.Slot, excludeID int64) (int, error) {
	statuses := make([]string, 0, 2)
	for _, s := range domain.CapacityHoldingStatuses() {
		statuses = append(statuses, string(s))
	}

	var booked int
	err := rq.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(guests), 0)
		FROM reservations
		WHERE date = $1 AND time_slot = $2 AND status = ANY($3) AND id <> $4
	`, domain.DateOf(date), string(slot), statuses, excludeID).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("failed to sum booked guests: %w", err)
	}
	return booked, nil
}

func (rq reservationQueries) TotalCapacity(ctx context.Context) (int, error) {
	var capacity int
	if err := rq.q.QueryRow(ctx, `SELECT COALESCE(SUM(capacity), 0) FROM restaurant_tables`).Scan(&capacity); err != nil {
		return 0, fmt.Errorf("failed to sum table capacity: %w", err)
	}
	return capacity, nil
}

// updateReservation writes res only if its stored status is still from and
// logs the change when the status moved.
func updateReservation(ctx context.Context, tx Tx, res *domain.Reservation, from domain.ReservationStatus, changedBy string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = $1, is_confirmed = $2, confirmed_at = $3, confirmation_message = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, res.Status, res.IsConfirmed, res.ConfirmedAt, res.ConfirmationMessage, res.UpdatedAt, res.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var current domain.ReservationStatus
		err := tx.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, res.ID).Scan(&current)
		if isNoRows(err) {
			return fmt.Errorf("reservation %d: %w", res.ID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load reservation status: %w", err)
		}
		return fmt.Errorf("%w: reservation %d is %s, expected %s", domain.ErrInvalidStatusTransition, res.ID, current, from)
	}

	if from == res.Status {
		return nil
	}
	return logReservationStatus(ctx, tx, res.ID, res.Status, changedBy, res.UpdatedAt)
}

func logReservationStatus(ctx context.Context, q Querier, id int64, status domain.ReservationStatus, changedBy string, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO reservation_status_log (reservation_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, id, status, changedBy, at)
	if err != nil {
		return fmt.Errorf("failed to log reservation status: %w", err)
	}
	return nil
}

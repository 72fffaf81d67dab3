package domain

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusNoShow},
	ReservationStatusConfirmed: {ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusNoShow},
	ReservationStatusCompleted: {},
	ReservationStatusCancelled: {},
	ReservationStatusNoShow:    {},
}

// cancelled is deliberately outside the cycle.
var reservationCycle = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusCompleted,
	ReservationStatusNoShow,
}

func (s ReservationStatus) Valid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// HoldsCapacity reports whether a reservation in this status counts against
// seating capacity. Pending requests have not been accepted yet.
func (s ReservationStatus) HoldsCapacity() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusCompleted
}

// CapacityHoldingStatuses lists the statuses for which HoldsCapacity is true.
func CapacityHoldingStatuses() []ReservationStatus {
	return []ReservationStatus{ReservationStatusConfirmed, ReservationStatusCompleted}
}

// NextReservationStatus returns the status after s in the admin cycle.
// Statuses outside the cycle reset to pending.
func NextReservationStatus(s ReservationStatus) ReservationStatus {
	for i, st := range reservationCycle {
		if st == s {
			return reservationCycle[(i+1)%len(reservationCycle)]
		}
	}
	return ReservationStatusPending
}

// Reservation is a table booking request for a date and slot
type Reservation struct {
	ID                  int64
	Name                string
	Email               string
	Phone               string
	Date                time.Time
	Time                Slot
	Guests              int
	Message             string
	Status              ReservationStatus
	IsConfirmed         bool
	ConfirmedAt         *time.Time
	ConfirmationMessage *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewReservationParams carries a public booking request.
type NewReservationParams struct {
	Name    string
	Email   string
	Phone   string
	Date    time.Time
	Time    Slot
	Guests  int
	Message string
	Now     time.Time
}

// NewReservation always creates a pending reservation. Capacity is decided
// at confirmation time.
func NewReservation(p NewReservationParams) (*Reservation, error) {
	var errs ValidationErrors

	if p.Name == "" {
		errs.Add("name", "name is required")
	}
	if p.Email == "" && p.Phone == "" {
		errs.Add("email", "an email or phone number is required")
	}
	if p.Guests < 1 {
		errs.Add("guests", "guests must be at least 1")
	}
	if err := p.Time.Validate(); err != nil {
		errs.Add("time", err.Error())
	}
	if p.Date.IsZero() {
		errs.Add("date", "date is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return &Reservation{
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Date:      DateOf(p.Date),
		Time:      p.Time,
		Guests:    p.Guests,
		Message:   p.Message,
		Status:    ReservationStatusPending,
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
	}, nil
}

// Confirm marks the reservation confirmed. The caller must have checked
// capacity for the slot.
func (r *Reservation) Confirm(message string, now time.Time) error {
	if err := r.TransitionTo(ReservationStatusConfirmed, now); err != nil {
		return err
	}
	r.ConfirmedAt = &now
	r.ConfirmationMessage = &message
	return nil
}

// Cancel moves a pending or confirmed reservation to cancelled.
func (r *Reservation) Cancel(now time.Time) error {
	return r.TransitionTo(ReservationStatusCancelled, now)
}

// TransitionTo validates the edge and keeps IsConfirmed in sync with Status.
func (r *Reservation) TransitionTo(target ReservationStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, r.Status, target)
	}
	r.setStatus(target, now)
	return nil
}

// ForceStatus applies a manual cycle step without the edge check.
func (r *Reservation) ForceStatus(target ReservationStatus, now time.Time) {
	r.setStatus(target, now)
}

func (r *Reservation) setStatus(target ReservationStatus, now time.Time) {
	r.Status = target
	r.IsConfirmed = target == ReservationStatusConfirmed
	r.UpdatedAt = now
}

// Table is static seating inventory. Zone is informational only.
type Table struct {
	ID       int64
	Label    string
	Capacity int
	Zone     string
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"github.com/google/uuid"
)

type Service struct {
	repo      interfaces.ReservationRepository
	publisher interfaces.NotificationPublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewService(repo interfaces.ReservationRepository, publisher interfaces.NotificationPublisher, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateReservation stores a pending request. The availability verdict is
// returned to the caller but never blocks the booking; staff decide at
// confirmation time.
func (s *Service) CreateReservation(ctx context.Context, cmd interfaces.CreateReservationCommand) (*interfaces.ReservationResult, error) {
	res, err := domain.NewReservation(domain.NewReservationParams{
		Name:    cmd.Name,
		Email:   cmd.Email,
		Phone:   cmd.Phone,
		Date:    cmd.Date,
		Time:    cmd.Time,
		Guests:  cmd.Guests,
		Message: cmd.Message,
		Now:     s.now(),
	})
	if err != nil {
		return nil, err
	}

	availability, err := Check(ctx, s.repo, res.Date, res.Time, res.Guests, 0)
	if err != nil {
		s.logger.Warn("availability_check_failed", "Availability check failed, booking anyway", "", map[string]interface{}{
			"date": res.Date.Format(time.DateOnly),
			"time": res.Time,
		}, err)
		availability = nil
	}

	if err := s.repo.Create(ctx, res); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create reservation", "", nil, err)
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	details := map[string]interface{}{
		"reservation_id": res.ID,
		"date":           res.Date.Format(time.DateOnly),
		"time":           res.Time,
		"guests":         res.Guests,
	}
	if availability != nil {
		details["available"] = availability.Available
	}
	s.logger.Info("reservation_created", fmt.Sprintf("Reservation %d requested", res.ID), "", details)

	s.notify(ctx, res, interfaces.NotificationReservationRequested, "", "public")

	return &interfaces.ReservationResult{Reservation: res, Availability: availability}, nil
}

func (s *Service) CheckAvailability(ctx context.Context, date time.Time, slot domain.Slot, guests int) (*interfaces.Availability, error) {
	var errs domain.ValidationErrors
	if date.IsZero() {
		errs.Add("date", "date is required")
	}
	if err := slot.Validate(); err != nil {
		errs.Add("time", err.Error())
	}
	if guests < 1 {
		errs.Add("guests", "guests must be at least 1")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	return Check(ctx, s.repo, date, slot, guests, 0)
}

// DaySheet lists booked seats against capacity for every slot of date.
func (s *Service) DaySheet(ctx context.Context, date time.Time) ([]*interfaces.Availability, error) {
	if date.IsZero() {
		return nil, domain.ValidationErrors{{Field: "date", Message: "date is required"}}
	}
	return DaySheet(ctx, s.repo, date)
}

func (s *Service) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetReservationHistory(ctx context.Context, id int64) ([]*domain.StatusLog, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, id)
}

// Confirm re-checks capacity under the slot lock, so two confirmations for
// the same slot cannot both pass the gate. A full slot leaves the
// reservation pending and returns domain.ErrSlotUnavailable.
func (s *Service) Confirm(ctx context.Context, id int64, message, changedBy string) (*domain.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		confirmed    *domain.Reservation
		availability *interfaces.Availability
	)
	err = s.repo.WithSlotLock(ctx, res.Date, res.Time, func(tx interfaces.ReservationTx) error {
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(domain.ReservationStatusConfirmed) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, current.Status, domain.ReservationStatusConfirmed)
		}

		availability, err = Check(ctx, tx, current.Date, current.Time, current.Guests, current.ID)
		if err != nil {
			return err
		}
		if !availability.Available {
			return domain.ErrSlotUnavailable
		}

		from := current.Status
		if err := current.Confirm(message, s.now()); err != nil {
			return err
		}
		if err := tx.Update(ctx, current, from, changedBy); err != nil {
			return err
		}
		confirmed = current
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			s.logger.Info("reservation_slot_full", fmt.Sprintf("Reservation %d not confirmed, slot is full", id), "", map[string]interface{}{
				"reservation_id": id,
				"booked":         availability.Booked,
				"capacity":       availability.Capacity,
				"guests":         availability.Requested,
			})
		}
		return nil, err
	}

	s.logger.Info("reservation_confirmed", fmt.Sprintf("Reservation %d confirmed", id), "", map[string]interface{}{
		"reservation_id": id,
		"changed_by":     changedBy,
	})
	s.notify(ctx, confirmed, interfaces.NotificationReservationConfirmed, string(res.Status), changedBy)
	return confirmed, nil
}

func (s *Service) Cancel(ctx context.Context, id int64, changedBy string) (*domain.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := res.Status
	if err := res.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, res, from, changedBy); err != nil {
		return nil, err
	}

	s.logger.Info("reservation_cancelled", fmt.Sprintf("Reservation %d cancelled", id), "", map[string]interface{}{
		"reservation_id": id,
		"old_status":     from,
		"changed_by":     changedBy,
	})
	s.notify(ctx, res, interfaces.NotificationReservationCancelled, string(from), changedBy)
	return res, nil
}

// Advance applies the admin cycle. Stepping into confirmed goes through
// Confirm so the capacity gate still applies.
func (s *Service) Advance(ctx context.Context, id int64, changedBy string) (*domain.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.NextReservationStatus(res.Status)
	if next == domain.ReservationStatusConfirmed {
		return s.Confirm(ctx, id, "", changedBy)
	}

	from := res.Status
	res.ForceStatus(next, s.now())
	if err := s.repo.Update(ctx, res, from, changedBy); err != nil {
		return nil, err
	}

	s.logger.Info("reservation_status_changed", fmt.Sprintf("Reservation %d: %s -> %s", id, from, next), "", map[string]interface{}{
		"reservation_id": id,
		"changed_by":     changedBy,
	})
	return res, nil
}

func (s *Service) notify(ctx context.Context, res *domain.Reservation, kind interfaces.NotificationKind, oldStatus, changedBy string) {
	event := interfaces.NotificationEvent{
		ID:            uuid.NewString(),
		Kind:          kind,
		ReservationID: res.ID,
		OldStatus:     oldStatus,
		NewStatus:     string(res.Status),
		ChangedBy:     changedBy,
		Recipient: interfaces.Recipient{
			Name:  res.Name,
			Email: res.Email,
			Phone: res.Phone,
		},
		OccurredAt: s.now().UTC(),
	}
	if res.ConfirmationMessage != nil {
		event.Message = *res.ConfirmationMessage
	}

	if err := s.publisher.PublishNotification(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("notification_publish_failed", "Failed to publish notification", "", map[string]interface{}{
			"kind":           kind,
			"reservation_id": res.ID,
		}, err)
	}
}

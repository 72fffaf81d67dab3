package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/adapter/memory"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

var (
	fixedNow    = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	bookingDate = time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
)

// newTestService seeds tables totalling capacity seats.
func newTestService(t *testing.T, capacities ...int) (*Service, *memory.NotificationQueue) {
	t.Helper()
	tables := memory.NewTableRepository()
	for i, c := range capacities {
		if err := tables.Upsert(context.Background(), &domain.Table{Label: fmt.Sprintf("T%d", i+1), Capacity: c}); err != nil {
			t.Fatalf("seed table: %v", err)
		}
	}
	queue := memory.NewNotificationQueue(64)
	svc := NewService(memory.NewReservationRepository(tables), queue, logger.Nop()).
		WithClock(func() time.Time { return fixedNow })
	return svc, queue
}

func book(t *testing.T, svc *Service, slot domain.Slot, guests int) *interfaces.ReservationResult {
	t.Helper()
	result, err := svc.CreateReservation(context.Background(), interfaces.CreateReservationCommand{
		Name:   "Grace Hopper",
		Email:  "grace@example.com",
		Date:   bookingDate,
		Time:   slot,
		Guests: guests,
	})
	if err != nil {
		t.Fatalf("CreateReservation error: %v", err)
	}
	return result
}

func TestCheckBoundary(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	first := book(t, svc, "19:00", 6)
	if _, err := svc.Confirm(ctx, first.Reservation.ID, "", "admin"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	a, err := svc.CheckAvailability(ctx, bookingDate, "19:00", 4)
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if !a.Available || a.Booked != 6 || a.Capacity != 10 {
		t.Fatalf("exactly full slot reported unavailable: %+v", a)
	}

	a, _ = svc.CheckAvailability(ctx, bookingDate, "19:00", 5)
	if a.Available {
		t.Fatalf("oversubscribed slot reported available: %+v", a)
	}

	a, _ = svc.CheckAvailability(ctx, bookingDate, "19:30", 10)
	if !a.Available {
		t.Fatalf("neighbouring slot affected by 19:00 booking: %+v", a)
	}
}

func TestCheckAvailabilityValidation(t *testing.T) {
	svc, _ := newTestService(t, 10)
	_, err := svc.CheckAvailability(context.Background(), time.Time{}, "19:10", 0)
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 3 {
		t.Fatalf("error = %v, want 3 field errors", err)
	}
}

func TestOversizedRequestStaysPending(t *testing.T) {
	svc, queue := newTestService(t, 2, 2, 4, 4, 4, 6, 8, 10)

	result := book(t, svc, "20:00", 50)
	if result.Reservation.Status != domain.ReservationStatusPending {
		t.Fatalf("status = %s, want pending", result.Reservation.Status)
	}
	if result.Availability == nil || result.Availability.Available || result.Availability.Capacity != 40 {
		t.Fatalf("availability = %+v, want unavailable of 40", result.Availability)
	}

	event := <-queue.Events()
	if event.Kind != interfaces.NotificationReservationRequested || event.ReservationID != result.Reservation.ID {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := svc.Confirm(context.Background(), result.Reservation.ID, "", "admin"); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("error = %v, want ErrSlotUnavailable", err)
	}

	// the unconfirmed party holds no seats
	small := book(t, svc, "20:00", 4)
	if _, err := svc.Confirm(context.Background(), small.Reservation.ID, "", "admin"); err != nil {
		t.Fatalf("Confirm blocked by a pending request: %v", err)
	}
}

func TestConfirmAtCapacityKeepsPending(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	a := book(t, svc, "19:00", 8)
	b := book(t, svc, "19:00", 4)

	if _, err := svc.Confirm(ctx, a.Reservation.ID, "Table by the window", "admin"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if _, err := svc.Confirm(ctx, b.Reservation.ID, "", "admin"); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("error = %v, want ErrSlotUnavailable", err)
	}

	stored, _ := svc.GetReservation(ctx, b.Reservation.ID)
	if stored.Status != domain.ReservationStatusPending || stored.IsConfirmed {
		t.Fatalf("rejected reservation changed: %+v", stored)
	}

	confirmed, _ := svc.GetReservation(ctx, a.Reservation.ID)
	if !confirmed.IsConfirmed || confirmed.ConfirmationMessage == nil || *confirmed.ConfirmationMessage != "Table by the window" {
		t.Fatalf("confirmation not stored: %+v", confirmed)
	}
}

func TestConfirmDoesNotCountItself(t *testing.T) {
	svc, _ := newTestService(t, 10)
	r := book(t, svc, "19:00", 10)

	if _, err := svc.Confirm(context.Background(), r.Reservation.ID, "", "admin"); err != nil {
		t.Fatalf("a party filling the room exactly was rejected: %v", err)
	}
}

func TestConcurrentConfirmsDoNotOversubscribe(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	ids := make([]int64, 8)
	for i := range ids {
		ids[i] = book(t, svc, "21:00", 4).Reservation.ID
	}

	var (
		wg        sync.WaitGroup
		confirmed atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Confirm(ctx, id, "", "admin")
			switch {
			case err == nil:
				confirmed.Add(1)
			case errors.Is(err, domain.ErrSlotUnavailable):
			default:
				t.Errorf("Confirm(%d) error: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if n := confirmed.Load(); n != 2 {
		t.Fatalf("%d reservations confirmed, want 2", n)
	}
}

func TestCancelReleasesCapacity(t *testing.T) {
	svc, queue := newTestService(t, 10)
	ctx := context.Background()

	a := book(t, svc, "19:00", 8)
	b := book(t, svc, "19:00", 4)
	if _, err := svc.Confirm(ctx, a.Reservation.ID, "", "admin"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if _, err := svc.Cancel(ctx, a.Reservation.ID, "admin"); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if _, err := svc.Confirm(ctx, b.Reservation.ID, "", "admin"); err != nil {
		t.Fatalf("Confirm after cancel error: %v", err)
	}
	if _, err := svc.Cancel(ctx, a.Reservation.ID, "admin"); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("double cancel error = %v", err)
	}

	var kinds []interfaces.NotificationKind
	for len(queue.Events()) > 0 {
		kinds = append(kinds, (<-queue.Events()).Kind)
	}
	want := []interfaces.NotificationKind{
		interfaces.NotificationReservationRequested,
		interfaces.NotificationReservationRequested,
		interfaces.NotificationReservationConfirmed,
		interfaces.NotificationReservationCancelled,
		interfaces.NotificationReservationConfirmed,
	}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
}

func TestAdvanceCycle(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()
	r := book(t, svc, "18:00", 2)

	want := []domain.ReservationStatus{
		domain.ReservationStatusConfirmed,
		domain.ReservationStatusCompleted,
		domain.ReservationStatusNoShow,
		domain.ReservationStatusPending,
	}
	for _, status := range want {
		res, err := svc.Advance(ctx, r.Reservation.ID, "admin")
		if err != nil {
			t.Fatalf("Advance error: %v", err)
		}
		if res.Status != status {
			t.Fatalf("status = %s, want %s", res.Status, status)
		}
		if res.IsConfirmed != (status == domain.ReservationStatusConfirmed) {
			t.Fatalf("is_confirmed out of sync at %s", status)
		}
	}

	history, err := svc.GetReservationHistory(ctx, r.Reservation.ID)
	if err != nil {
		t.Fatalf("GetReservationHistory error: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("history has %d entries, want 5", len(history))
	}
}

func TestAdvanceIntoFullSlotIsRejected(t *testing.T) {
	svc, _ := newTestService(t, 4)
	ctx := context.Background()

	a := book(t, svc, "18:00", 4)
	b := book(t, svc, "18:00", 2)
	if _, err := svc.Advance(ctx, a.Reservation.ID, "admin"); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if _, err := svc.Advance(ctx, b.Reservation.ID, "admin"); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("error = %v, want ErrSlotUnavailable", err)
	}
}

func TestGetReservationNotFound(t *testing.T) {
	svc, _ := newTestService(t, 4)
	if _, err := svc.GetReservation(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

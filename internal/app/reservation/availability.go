package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

// Check compares the guests already holding the slot plus the requested
// party against total seating. Only reservations in the exact same date and
// slot count. excludeID keeps a reservation from counting against itself.
func Check(ctx context.Context, reader interfaces.CapacityReader, date time.Time, slot domain.Slot, guests int, excludeID int64) (*interfaces.Availability, error) {
	booked, err := reader.BookedGuests(ctx, date, slot, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to count booked guests: %w", err)
	}

	capacity, err := reader.TotalCapacity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read seating capacity: %w", err)
	}

	return &interfaces.Availability{
		Date:      domain.DateOf(date),
		Slot:      slot,
		Requested: guests,
		Booked:    booked,
		Capacity:  capacity,
		Available: booked+guests <= capacity,
	}, nil
}

// IsAvailable is Check reduced to its verdict.
func IsAvailable(ctx context.Context, reader interfaces.CapacityReader, date time.Time, slot domain.Slot, guests int, excludeID int64) (bool, error) {
	a, err := Check(ctx, reader, date, slot, guests, excludeID)
	if err != nil {
		return false, err
	}
	return a.Available, nil
}

// DaySheet reports every slot of date with nothing requested, so Available
// means the slot is not oversubscribed.
func DaySheet(ctx context.Context, reader interfaces.CapacityReader, date time.Time) ([]*interfaces.Availability, error) {
	slots := domain.Slots()
	sheet := make([]*interfaces.Availability, 0, len(slots))
	for _, slot := range slots {
		a, err := Check(ctx, reader, date, slot, 0, 0)
		if err != nil {
			return nil, err
		}
		sheet = append(sheet, a)
	}
	return sheet, nil
}

package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"github.com/olekukonko/tablewriter"
)

// WriteDaySheet renders one row per slot. Free goes negative only when table
// capacity was lowered in config after reservations were confirmed.
func WriteDaySheet(w io.Writer, date time.Time, sheet []*interfaces.Availability) error {
	if _, err := fmt.Fprintf(w, "Reservations for %s\n", date.Format(time.DateOnly)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Slot", "Booked", "Capacity", "Free", "Status")

	var booked int
	for _, a := range sheet {
		booked += a.Booked
		if err := table.Append(
			a.Slot.String(),
			strconv.Itoa(a.Booked),
			strconv.Itoa(a.Capacity),
			strconv.Itoa(a.Capacity-a.Booked),
			slotState(a),
		); err != nil {
			return fmt.Errorf("failed to add row for %s: %w", a.Slot, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render day sheet: %w", err)
	}
	_, err := fmt.Fprintf(w, "Seated guests: %d\n", booked)
	return err
}

func slotState(a *interfaces.Availability) string {
	switch {
	case a.Booked == 0:
		return "open"
	case a.Booked < a.Capacity:
		return "partial"
	case a.Booked == a.Capacity:
		return "full"
	default:
		return "over"
	}
}

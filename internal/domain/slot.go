package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	firstSlotMinutes = 14 * 60
	lastSlotMinutes  = 22*60 + 30
	slotStepMinutes  = 30
)

// Slot is a half-hour aligned reservation time in HH:MM form.
type Slot string

// ParseSlot accepts HH:MM or HH:MM:SS and returns the canonical slot.
func ParseSlot(s string) (Slot, error) {
	var (
		t   time.Time
		err error
	)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	slot := Slot(t.Format("15:04"))
	if err := slot.Validate(); err != nil {
		return "", err
	}
	return slot, nil
}

// Validate checks alignment and service hours.
func (s Slot) Validate() error {
	t, err := time.Parse("15:04", string(s))
	if err != nil {
		return errors.New("time must be formatted as HH:MM")
	}

	minutes := t.Hour()*60 + t.Minute()
	if minutes%slotStepMinutes != 0 {
		return errors.New("time must be aligned to a half hour")
	}
	if minutes < firstSlotMinutes || minutes > lastSlotMinutes {
		return errors.New("time must be between 14:00 and 22:30")
	}
	return nil
}

func (s Slot) String() string {
	return string(s)
}

// Slots lists every bookable slot of a service day.
func Slots() []Slot {
	var out []Slot
	for m := firstSlotMinutes; m <= lastSlotMinutes; m += slotStepMinutes {
		out = append(out, Slot(fmt.Sprintf("%02d:%02d", m/60, m%60)))
	}
	return out
}

package types

import (
	"fmt"
	"time"
)

// The daily horizon is a fixed grid of 96 contiguous 15-minute slots. Every
// forecast array, schedule array and constraint window indexes into the grid
// by slot number 0..95. The grid itself never changes within a session.
const (
	// SlotsPerDay is the number of 15-minute slots in the daily horizon.
	SlotsPerDay = 96

	// SlotDuration is the length of a single slot.
	SlotDuration = 15 * time.Minute

	// SlotHours is the slot duration expressed in hours, used for
	// kW <-> kWh conversions.
	SlotHours = 0.25
)

// ValidSlot reports whether slot is a valid index into the daily grid.
func ValidSlot(slot int) bool {
	return slot >= 0 && slot < SlotsPerDay
}

// ClockToSlot converts a clock time to the slot containing it, rounding
// minutes down to the grid resolution. The inputs are not range-checked
// beyond normal clock bounds.
func ClockToSlot(hour, minute int) (int, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %d:%02d", hour, minute)
	}
	return hour*4 + minute/15, nil
}

// SlotClock returns the wall-clock start of the slot as "HH:MM".
func SlotClock(slot int) string {
	h := (slot * 15) / 60
	m := (slot * 15) % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// SlotRangeClock formats a half-open slot range [start, end) as a wall-clock
// range, e.g. "11:00-12:00".
func SlotRangeClock(start, end int) string {
	if end > SlotsPerDay {
		end = SlotsPerDay
	}
	if end == SlotsPerDay {
		return SlotClock(start) + "-24:00"
	}
	return SlotClock(start) + "-" + SlotClock(end)
}

package types

import (
	"fmt"
	"time"
)

// UsageConstraint is a structured, time-bounded forced load derived from a
// user statement. Constraints accumulate in an append-only log over the
// session; a superseded constraint stays in the log, flagged, so that every
// schedule change remains traceable to a prior statement.
type UsageConstraint struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceID"`
	// RatedKW is the device draw snapshotted from the catalog at extraction
	// time so the optimizer does not need catalog access.
	RatedKW float64 `json:"ratedKW"`

	// EarliestStart and LatestEnd bound the window as [EarliestStart,
	// LatestEnd) in slot indexes. The device must run exactly once for
	// DurationSlots within the window.
	EarliestStart int `json:"earliestStart"`
	LatestEnd     int `json:"latestEnd"`
	DurationSlots int `json:"durationSlots"`

	// FixedStart is set when the user named an exact start. Otherwise the
	// optimizer chooses the start offset and records it in ResolvedStart.
	FixedStart    bool `json:"fixedStart"`
	ResolvedStart int  `json:"resolvedStart"`

	// Utterance is the raw statement that produced this constraint, kept for
	// attribution.
	Utterance string    `json:"utterance"`
	CreatedAt time.Time `json:"createdAt"`

	// Superseded flags a constraint overridden by a later statement about the
	// same device and window. It is excluded from solving but kept in the log.
	Superseded   bool   `json:"superseded,omitempty"`
	SupersededBy string `json:"supersededBy,omitempty"`
}

// Validate checks the constraint fields against the grid.
func (c UsageConstraint) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("%w: constraint has no device", ErrInvalidInput)
	}
	if c.RatedKW <= 0 {
		return fmt.Errorf("%w: constraint %s rated power must be positive", ErrInvalidInput, c.DeviceID)
	}
	if !ValidSlot(c.EarliestStart) || c.LatestEnd < 1 || c.LatestEnd > SlotsPerDay {
		return fmt.Errorf("%w: constraint %s window [%d,%d) outside grid", ErrInvalidInput, c.DeviceID, c.EarliestStart, c.LatestEnd)
	}
	if c.DurationSlots < 1 || c.EarliestStart+c.DurationSlots > c.LatestEnd {
		return fmt.Errorf("%w: constraint %s duration %d does not fit window [%d,%d)", ErrInvalidInput, c.DeviceID, c.DurationSlots, c.EarliestStart, c.LatestEnd)
	}
	if c.FixedStart && c.ResolvedStart != c.EarliestStart {
		return fmt.Errorf("%w: fixed-start constraint %s has resolved start %d, want %d", ErrInvalidInput, c.DeviceID, c.ResolvedStart, c.EarliestStart)
	}
	return nil
}

// Window returns the resolved run window [start, end). Before the optimizer
// resolves a flexible constraint, ResolvedStart is the earliest start.
func (c UsageConstraint) Window() (int, int) {
	start := c.ResolvedStart
	if start < c.EarliestStart {
		start = c.EarliestStart
	}
	return start, start + c.DurationSlots
}

// Covers reports whether the resolved run window contains the slot.
func (c UsageConstraint) Covers(slot int) bool {
	start, end := c.Window()
	return slot >= start && slot < end
}

// OverlapsWindow reports whether the declared windows of two constraints
// intersect. Used for conflict detection between statements about the same
// device.
func (c UsageConstraint) OverlapsWindow(o UsageConstraint) bool {
	return c.EarliestStart < o.LatestEnd && o.EarliestStart < c.LatestEnd
}

package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/homeflux/homeflux/pkg/types"
)

// Window is a parsed time scope on the daily grid, half-open in slots.
// Fixed is set when the user named an exact start time; otherwise the
// optimizer is free to place the run anywhere inside the window.
type Window struct {
	EarliestStart int
	LatestEnd     int
	Fixed         bool
}

var (
	rangeRe = regexp.MustCompile(`(?i)\b(?:between|from)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:and|to|until|till)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	// at/around fix the start; by/before bound the end; after bounds the start
	prefixedRe = regexp.MustCompile(`(?i)\b(at|around|by|before|after)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	bareRe     = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b|\b(\d{1,2})\s*(am|pm)\b`)
	durationRe = regexp.MustCompile(`(?i)\bfor\s+(?:about\s+)?(\d+(?:\.\d+)?)\s*(hours?|hrs?|minutes?|mins?)\b`)
)

// namedPeriods maps colloquial day parts onto slot windows.
var namedPeriods = []struct {
	word       string
	start, end int
}{
	{"morning", 24, 48},    // 06:00-12:00
	{"afternoon", 48, 72},  // 12:00-18:00
	{"evening", 72, 92},    // 18:00-23:00
	{"tonight", 72, 96},    // 18:00-24:00
	{"overnight", 0, 24},   // 00:00-06:00
	{"night", 84, 96},      // 21:00-24:00
	{"lunchtime", 46, 56},  // 11:30-14:00
	{"midnight", 0, 4},
}

// ParseWindow resolves the time expression in an utterance to a grid window.
// It understands clock times ("at 11am", "at 14:30"), explicit ranges
// ("between 2pm and 6pm"), bound words ("before 5pm", "after 10am") and named
// day parts ("in the morning", "tonight"). Returns ErrNotUnderstood when no
// time information can be resolved.
func ParseWindow(utterance string) (Window, error) {
	text := strings.ToLower(utterance)
	// strip duration phrases so "for 2 hours" is not mistaken for 2 o'clock
	text = durationRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "noon", "12pm")
	text = strings.ReplaceAll(text, "midday", "12pm")

	if m := rangeRe.FindStringSubmatch(text); m != nil {
		startMer, endMer := m[3], m[6]
		if startMer == "" {
			// "between 2 and 5pm": the first time inherits the meridiem
			startMer = endMer
		}
		start, err1 := clockSlot(m[1], m[2], startMer)
		end, err2 := clockSlot(m[4], m[5], endMer)
		if err1 != nil || err2 != nil {
			return Window{}, notUnderstood(utterance)
		}
		if end == 0 {
			end = types.SlotsPerDay
		}
		if end <= start {
			return Window{}, fmt.Errorf("%w: time range in %q is empty", types.ErrNotUnderstood, utterance)
		}
		return Window{EarliestStart: start, LatestEnd: end}, nil
	}

	if m := prefixedRe.FindStringSubmatch(text); m != nil {
		slot, err := clockSlot(m[2], m[3], m[4])
		if err != nil {
			return Window{}, notUnderstood(utterance)
		}
		switch m[1] {
		case "at", "around":
			return Window{EarliestStart: slot, LatestEnd: types.SlotsPerDay, Fixed: true}, nil
		case "by", "before":
			if slot == 0 {
				slot = types.SlotsPerDay
			}
			return Window{EarliestStart: 0, LatestEnd: slot}, nil
		case "after":
			return Window{EarliestStart: slot, LatestEnd: types.SlotsPerDay}, nil
		}
	}

	if m := bareRe.FindStringSubmatch(text); m != nil {
		var slot int
		var err error
		if m[1] != "" {
			slot, err = clockSlot(m[1], m[2], m[3])
		} else {
			slot, err = clockSlot(m[4], "", m[5])
		}
		if err != nil {
			return Window{}, notUnderstood(utterance)
		}
		return Window{EarliestStart: slot, LatestEnd: types.SlotsPerDay, Fixed: true}, nil
	}

	for _, p := range namedPeriods {
		if strings.Contains(text, p.word) {
			return Window{EarliestStart: p.start, LatestEnd: p.end}, nil
		}
	}

	return Window{}, notUnderstood(utterance)
}

// ParseDuration resolves an explicit run duration ("for 2 hours") in slots.
func ParseDuration(utterance string) (int, bool) {
	m := durationRe.FindStringSubmatch(strings.ToLower(utterance))
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	minutes := value * 60
	if strings.HasPrefix(m[2], "min") {
		minutes = value
	}
	slots := int((minutes + 14) / 15) // round up to grid resolution
	if slots < 1 {
		slots = 1
	}
	if slots > types.SlotsPerDay {
		slots = types.SlotsPerDay
	}
	return slots, true
}

func clockSlot(hourStr, minuteStr, meridiem string) (int, error) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, err
	}
	minute := 0
	if minuteStr != "" {
		if minute, err = strconv.Atoi(minuteStr); err != nil {
			return 0, err
		}
	}
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour == 24 {
		hour = 0
	}
	return types.ClockToSlot(hour, minute)
}

func notUnderstood(utterance string) error {
	return fmt.Errorf("%w: no time information in %q", types.ErrNotUnderstood, utterance)
}

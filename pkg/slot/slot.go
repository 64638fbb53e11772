package slot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// PerDay is the number of quarter-hour slots in a day.
	PerDay = 96
	// Max is the last slot of a day (23:45).
	Max = PerDay - 1
	// MinutesPerSlot is the length of one slot.
	MinutesPerSlot = 15

	MinDuration     = 1  // 15 minutes
	MaxDuration     = 48 // 12 hours
	DefaultDuration = 4  // 1 hour
)

// ToTime converts a day-relative slot to wall-clock hour and minute.
func ToTime(slot int) (hour int, minute int) {
	return slot / 4, (slot % 4) * MinutesPerSlot
}

// FromTime converts hour and minute to a slot. Minutes that do not fall on a
// quarter-hour boundary are rounded down.
func FromTime(hour int, minute int) int {
	return hour*4 + minute/MinutesPerSlot
}

// Format returns the slot as a zero-padded 24-hour "HH:MM" string.
func Format(slot int) string {
	hour, minute := ToTime(slot)
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Format12h returns the slot in 12-hour notation, e.g. "9:15 AM".
func Format12h(slot int) string {
	hour, minute := ToTime(slot)
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	displayHour := hour
	if hour == 0 {
		displayHour = 12
	} else if hour > 12 {
		displayHour = hour - 12
	}
	return fmt.Sprintf("%d:%02d %s", displayHour, minute, ampm)
}

// Minutes returns the length of the given number of slots in minutes.
func Minutes(slots int) int {
	return slots * MinutesPerSlot
}

// Clamp limits a slot to the valid range of a day.
func Clamp(slot int) int {
	return max(0, min(Max, slot))
}

// ClampDuration limits duration to [MinDuration, MaxDuration] and makes sure an
// event starting at start does not extend past the end of the day.
func ClampDuration(start int, duration int) int {
	d := max(MinDuration, min(MaxDuration, duration))
	return max(MinDuration, min(d, PerDay-start))
}

// Valid reports whether slot is inside a day.
func Valid(slot int) bool {
	return slot >= 0 && slot <= Max
}

// Parse reads a 24-hour "HH:MM" time and returns its slot, rounding down inside a quarter.
func Parse(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return FromTime(hour, minute), nil
}

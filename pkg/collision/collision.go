package collision

import (
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/week"
)

// Candidate is a proposed placement. ExcludeID names the event being moved so it is
// never compared with itself.
type Candidate struct {
	Day       week.Day
	TimeSlot  int
	Duration  int
	WeekStart string
	ExcludeID string
}

// Overlaps reports whether the half-open slot intervals [aStart, aStart+aDur) and
// [bStart, bStart+bDur) share a slot. Touching intervals do not overlap.
func Overlaps(aStart, aDur, bStart, bDur int) bool {
	aEnd := aStart + aDur
	bEnd := bStart + bDur
	return !(aEnd <= bStart || aStart >= bEnd)
}

// Collides reports whether placing c would overlap any scheduled event of the same day
// and week.
func Collides(c Candidate, events []calendar.Event) bool {
	_, ok := First(c, events)
	return ok
}

// First returns the first event c would overlap.
func First(c Candidate, events []calendar.Event) (calendar.Event, bool) {
	for _, e := range events {
		if e.ID == c.ExcludeID && c.ExcludeID != "" {
			continue
		}
		if !e.IsScheduled() || e.Duration <= 0 {
			continue
		}
		if e.Day != c.Day || e.WeekStart != c.WeekStart {
			continue
		}
		if Overlaps(c.TimeSlot, c.Duration, e.TimeSlot, e.Duration) {
			return e, true
		}
	}
	return calendar.Event{}, false
}

// For builds the candidate of an event placed at its current coordinates.
func For(e calendar.Event) Candidate {
	return Candidate{
		Day:       e.Day,
		TimeSlot:  e.TimeSlot,
		Duration:  e.Duration,
		WeekStart: e.WeekStart,
		ExcludeID: e.ID,
	}
}

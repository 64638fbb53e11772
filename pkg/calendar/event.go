package calendar

import (
	"time"

	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
)

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// Event is a calendar entry placed on the weekly grid or waiting unscheduled.
// An event is scheduled when Day and WeekStart are set; TimeSlot and Duration are
// only meaningful in that case.
type Event struct {
	ID          string `validate:"required"`
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=200"`
	Color       Color  `validate:"required,palette"`

	Day       week.Day `validate:"omitempty,oneof=Mon Tue Wed Thu Fri Sat Sun"` // "" when unscheduled
	TimeSlot  int      `validate:"min=0,max=95"`                               // quarter hours from midnight
	Duration  int      `validate:"omitempty,min=1,max=48"`                     // quarter hours, 0 when unset
	WeekStart string   `validate:"omitempty,datetime=2006-01-02"`              // Monday of the week

	Location  string
	Link      string
	Notes     string `validate:"max=300"`
	Attendees string `validate:"max=200"`

	RepeatType       Repeat `validate:"omitempty,oneof=none daily weekly monthly"`
	RepeatEndDate    string `validate:"omitempty,datetime=2006-01-02"`
	IsRecurring      bool
	RecurringGroupID string
}

func (e Event) IsScheduled() bool {
	return e.Day != "" && e.WeekStart != ""
}

func (e Event) IsUnscheduled() bool {
	return e.Day == "" && e.WeekStart == ""
}

// HasRepeat reports whether the event carries a repeat rule.
func (e Event) HasRepeat() bool {
	return e.RepeatType != "" && e.RepeatType != RepeatNone
}

// InGroup reports whether the event is an instance of a recurring group.
func (e Event) InGroup() bool {
	return e.IsRecurring && e.RecurringGroupID != ""
}

// EffectiveDuration returns Duration, or the default one hour when unset.
func (e Event) EffectiveDuration() int {
	if e.Duration <= 0 {
		return slot.DefaultDuration
	}
	return e.Duration
}

// EndSlot is the exclusive end of the event's interval.
func (e Event) EndSlot() int {
	return e.TimeSlot + e.Duration
}

// Date returns the calendar date of a scheduled event.
func (e Event) Date() (time.Time, error) {
	return week.DateOf(e.WeekStart, e.Day)
}

// PlacedAt returns a copy of e scheduled at the given coordinates.
func (e Event) PlacedAt(day week.Day, timeSlot int, duration int, weekStart string) Event {
	e.Day = day
	e.TimeSlot = timeSlot
	e.Duration = duration
	e.WeekStart = weekStart
	return e
}

// Unscheduled returns a copy of e with every scheduling field cleared.
func (e Event) Unscheduled() Event {
	e.Day = ""
	e.TimeSlot = 0
	e.Duration = 0
	e.WeekStart = ""
	return e
}

// Detached returns a copy of e that no longer belongs to a recurring group.
func (e Event) Detached() Event {
	e.IsRecurring = false
	e.RecurringGroupID = ""
	return e
}

// Normalized fills defaults: an empty repeat type means no repetition and repeatEndDate
// is dropped when the event does not repeat.
func (e Event) Normalized() Event {
	if e.RepeatType == "" {
		e.RepeatType = RepeatNone
	}
	if e.RepeatType == RepeatNone {
		e.RepeatEndDate = ""
	}
	return e
}

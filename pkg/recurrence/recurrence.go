package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/week"
)

// MaxOccurrences caps the instances produced for one base event.
const MaxOccurrences = 100

// DefaultSpanMonths is used as the end of the series when no repeatEndDate is set.
const DefaultSpanMonths = 3

var ErrEndBeforeStart = fmt.Errorf("%w: repeatEndDate is before the first occurrence", calendar.ErrValidation)

// NewGroupID mints a recurring group identifier.
func NewGroupID() string {
	return "recurring-" + uuid.NewString()
}

// InstanceID is the id of the index-th instance of a group.
func InstanceID(groupID string, index int) string {
	return fmt.Sprintf("%s-%d", groupID, index)
}

// Generate expands base into its dated instances. Events that are not scheduled or carry no
// repeat rule come back unchanged as a single element. Every instance gets id
// "<groupID>-<index>", the Monday and weekday of its date, and the shared group id.
func Generate(base calendar.Event, groupID string) ([]calendar.Event, error) {
	if !base.IsScheduled() || !base.HasRepeat() {
		return []calendar.Event{base}, nil
	}
	switch base.RepeatType {
	case calendar.RepeatDaily, calendar.RepeatWeekly, calendar.RepeatMonthly:
	default:
		return nil, fmt.Errorf("%w: unknown repeat type %q", calendar.ErrValidation, base.RepeatType)
	}
	if groupID == "" {
		return nil, errors.New("recurrence: group id is required")
	}

	first, end, err := Span(base)
	if err != nil {
		return nil, err
	}

	instances := make([]calendar.Event, 0, 16)
	for current := first; !current.After(end) && len(instances) < MaxOccurrences; current = step(current, base.RepeatType) {
		instance := base
		instance.ID = InstanceID(groupID, len(instances))
		instance.WeekStart = week.Of(current)
		instance.Day = week.DayOf(current)
		instance.IsRecurring = true
		instance.RecurringGroupID = groupID
		instances = append(instances, instance)
	}
	return instances, nil
}

// Span resolves the first occurrence date and the inclusive end date of base's series.
func Span(base calendar.Event) (first time.Time, end time.Time, err error) {
	first, err = base.Date()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", calendar.ErrValidation, err)
	}
	if base.RepeatEndDate == "" {
		return first, week.AddMonths(first, DefaultSpanMonths), nil
	}
	end, err = week.ParseDate(base.RepeatEndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", calendar.ErrValidation, err)
	}
	if end.Before(first) {
		return time.Time{}, time.Time{}, ErrEndBeforeStart
	}
	return first, end, nil
}

// step advances one period. Monthly steps add a month to the current date, so a series
// starting on the 31st settles on the shortest month-end it meets.
func step(current time.Time, repeat calendar.Repeat) time.Time {
	switch repeat {
	case calendar.RepeatDaily:
		return current.AddDate(0, 0, 1)
	case calendar.RepeatWeekly:
		return current.AddDate(0, 0, 7)
	default:
		return week.AddMonths(current, 1)
	}
}

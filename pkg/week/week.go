package week

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for weekStart and repeatEndDate.
const DateLayout = "2006-01-02"

type Day string

const (
	Mon Day = "Mon"
	Tue Day = "Tue"
	Wed Day = "Wed"
	Thu Day = "Thu"
	Fri Day = "Fri"
	Sat Day = "Sat"
	Sun Day = "Sun"
)

// Days lists the weekdays in grid order, starting on Monday.
var Days = []Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// Index returns the offset of d from Monday (Mon=0..Sun=6).
func (d Day) Index() (int, bool) {
	for i, day := range Days {
		if day == d {
			return i, true
		}
	}
	return -1, false
}

func (d Day) Valid() bool {
	_, ok := d.Index()
	return ok
}

// DayOf returns the weekday code of the given date.
func DayOf(date time.Time) Day {
	// time.Weekday starts on Sunday
	return Days[(int(date.Weekday())+6)%7]
}

// ParseDate parses an ISO date ("2025-06-02") as a civil date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// StartOf returns the Monday of the week containing date, at midnight of the date's calendar day.
func StartOf(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	delta := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	return day.AddDate(0, 0, -delta)
}

// Of returns the weekStart string (Monday, ISO date) of the week containing date.
func Of(date time.Time) string {
	return FormatDate(StartOf(date))
}

// DateOf resolves a (weekStart, day) pair to a calendar date.
func DateOf(weekStart string, day Day) (time.Time, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return time.Time{}, err
	}
	offset, ok := day.Index()
	if !ok {
		return time.Time{}, fmt.Errorf("invalid day %q", day)
	}
	return start.AddDate(0, 0, offset), nil
}

// AddMonths adds n calendar months to date. When the target month is shorter than the
// day of month, the result is clamped to the last day of the target month
// (Jan 31 + 1 month = Feb 28/29).
func AddMonths(date time.Time, n int) time.Time {
	firstOfTarget := time.Date(date.Year(), date.Month()+time.Month(n), 1, 0, 0, 0, 0, date.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := min(date.Day(), lastDay)
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

// Next returns the weekStart of the week after weekStart.
func Next(weekStart string) (string, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return "", err
	}
	return FormatDate(start.AddDate(0, 0, 7)), nil
}

// Previous returns the weekStart of the week before weekStart.
func Previous(weekStart string) (string, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return "", err
	}
	return FormatDate(start.AddDate(0, 0, -7)), nil
}

// End returns the Sunday closing the week that starts on weekStart.
func End(weekStart string) (time.Time, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 6), nil
}

// IsWeekStart reports whether s is a valid ISO date falling on a Monday.
func IsWeekStart(s string) bool {
	t, err := ParseDate(s)
	if err != nil {
		return false
	}
	return t.Weekday() == time.Monday
}

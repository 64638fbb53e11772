package recurrence

import (
	"fmt"
	"time"

	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/teambition/rrule-go"
)

func frequency(repeat calendar.Repeat) (rrule.Frequency, error) {
	switch repeat {
	case calendar.RepeatDaily:
		return rrule.DAILY, nil
	case calendar.RepeatWeekly:
		return rrule.WEEKLY, nil
	case calendar.RepeatMonthly:
		return rrule.MONTHLY, nil
	}
	return 0, fmt.Errorf("%w: no recurrence rule for repeat type %q", calendar.ErrValidation, repeat)
}

// Rule builds the iCalendar recurrence rule of a series starting at dtstart and ending on
// the until date (inclusive).
func Rule(repeat calendar.Repeat, dtstart time.Time, until time.Time) (*rrule.RRule, error) {
	freq, err := frequency(repeat)
	if err != nil {
		return nil, err
	}
	endOfDay := time.Date(until.Year(), until.Month(), until.Day(), 23, 59, 59, 0, until.Location())
	return rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: dtstart,
		Until:   endOfDay,
	})
}

// RuleString renders the RRULE value, without DTSTART, of a series running from dtstart
// through until.
func RuleString(repeat calendar.Repeat, dtstart time.Time, until time.Time) (string, error) {
	r, err := Rule(repeat, dtstart, until)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

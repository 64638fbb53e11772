package ics

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/recurrence"
	"github.com/klokku/weekgrid/pkg/slot"
)

const (
	ProductID = "-//weekgrid//weekgrid//EN"
	// floating local time, slots carry no time zone
	localLayout = "20060102T150405"
)

type dated struct {
	event calendar.Event
	date  time.Time
}

// Export renders the scheduled events as an iCalendar document. Single events become one
// VEVENT each; the instances of a recurring group collapse into one VEVENT with an RRULE
// anchored at the earliest instance and ending on the date of the latest one. Unscheduled
// events are left out.
func Export(events []calendar.Event, stamp time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("weekgrid")

	var singles []dated
	groups := map[string][]dated{}
	var groupOrder []string
	for _, e := range events {
		if !e.IsScheduled() {
			continue
		}
		date, err := e.Date()
		if err != nil {
			return "", fmt.Errorf("event %s: %w", e.ID, err)
		}
		if e.InGroup() {
			if _, seen := groups[e.RecurringGroupID]; !seen {
				groupOrder = append(groupOrder, e.RecurringGroupID)
			}
			groups[e.RecurringGroupID] = append(groups[e.RecurringGroupID], dated{e, date})
			continue
		}
		singles = append(singles, dated{e, date})
	}

	byDate := func(a, b dated) int {
		return cmp.Or(a.date.Compare(b.date), cmp.Compare(a.event.TimeSlot, b.event.TimeSlot))
	}
	slices.SortStableFunc(singles, byDate)
	for _, d := range singles {
		addEvent(cal, d.event.ID, d.event, d.date, stamp)
	}

	for _, groupID := range groupOrder {
		instances := groups[groupID]
		slices.SortStableFunc(instances, byDate)
		first := instances[0]
		last := instances[len(instances)-1]

		ve := addEvent(cal, groupID, first.event, first.date, stamp)
		if !first.event.HasRepeat() {
			continue
		}
		rule, err := recurrence.RuleString(first.event.RepeatType, startOf(first.event, first.date), last.date)
		if err != nil {
			return "", fmt.Errorf("group %s: %w", groupID, err)
		}
		ve.AddRrule(rule)
	}

	return cal.Serialize(), nil
}

func addEvent(cal *ical.Calendar, uid string, e calendar.Event, date time.Time, stamp time.Time) *ical.VEvent {
	start := startOf(e, date)
	end := start.Add(time.Duration(slot.Minutes(e.EffectiveDuration())) * time.Minute)

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(stamp)
	ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(localLayout))
	ve.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localLayout))
	ve.SetSummary(e.Title)
	if e.Description != "" {
		ve.SetDescription(e.Description)
	}
	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	if e.Link != "" {
		ve.SetURL(e.Link)
	}
	ve.SetProperty(ical.ComponentProperty("COLOR"), string(e.Color))
	return ve
}

func startOf(e calendar.Event, date time.Time) time.Time {
	hour, minute := slot.ToTime(e.TimeSlot)
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

// WeekOf returns the events scheduled in the given week.
func WeekOf(events []calendar.Event, weekStart string) []calendar.Event {
	var out []calendar.Event
	for _, e := range events {
		if e.IsScheduled() && e.WeekStart == weekStart {
			out = append(out, e)
		}
	}
	return out
}

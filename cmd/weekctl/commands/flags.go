package commands

import (
	"fmt"
	"strings"

	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
	"github.com/spf13/cobra"
)

var colorNames = map[string]calendar.Color{
	"red":     calendar.Red,
	"amber":   calendar.Amber,
	"emerald": calendar.Emerald,
	"blue":    calendar.Blue,
	"violet":  calendar.Violet,
	"pink":    calendar.Pink,
}

// eventFlags are the editable fields shared by add and edit.
type eventFlags struct {
	title       string
	description string
	color       string
	location    string
	link        string
	notes       string
	attendees   string
	repeat      string
	until       string

	day       string
	at        string
	weekStart string
	duration  int
}

func (f *eventFlags) bind(cmd *cobra.Command, withSchedule bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.title, "title", "t", "", "Title (up to 100 characters)")
	fs.StringVar(&f.description, "description", "", "Description (up to 200 characters)")
	fs.StringVarP(&f.color, "color", "c", "", "Color: red, amber, emerald, blue, violet, pink or #rrggbb")
	fs.StringVar(&f.location, "location", "", "Location")
	fs.StringVar(&f.link, "link", "", "Link")
	fs.StringVar(&f.notes, "notes", "", "Notes (up to 300 characters)")
	fs.StringVar(&f.attendees, "attendees", "", "Attendees (up to 200 characters)")
	fs.StringVarP(&f.repeat, "repeat", "r", "", "Repeat: none, daily, weekly or monthly")
	fs.StringVar(&f.until, "until", "", "Last day of the series, YYYY-MM-DD (default: three months)")
	if withSchedule {
		fs.StringVarP(&f.day, "day", "d", "", "Weekday, e.g. Mon")
		fs.StringVar(&f.at, "at", "", "Start time HH:MM")
		fs.StringVarP(&f.weekStart, "week", "w", "", "Monday of the week (default: current week)")
		fs.IntVar(&f.duration, "duration", slot.DefaultDuration, "Duration in 15 minute slots")
	}
}

// apply copies every flag the user set onto e.
func (f *eventFlags) apply(cmd *cobra.Command, e *calendar.Event) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		e.Title = f.title
	}
	if changed("description") {
		e.Description = f.description
	}
	if changed("color") {
		c, err := parseColor(f.color)
		if err != nil {
			return err
		}
		e.Color = c
	}
	if changed("location") {
		e.Location = f.location
	}
	if changed("link") {
		e.Link = f.link
	}
	if changed("notes") {
		e.Notes = f.notes
	}
	if changed("attendees") {
		e.Attendees = f.attendees
	}
	if changed("repeat") {
		e.RepeatType = calendar.Repeat(strings.ToLower(f.repeat))
	}
	if changed("until") {
		e.RepeatEndDate = f.until
	}
	return nil
}

// schedule places e when --day and --at are given. It needs the current week as default.
func (f *eventFlags) schedule(cmd *cobra.Command, e *calendar.Event, currentWeek string) error {
	changed := cmd.Flags().Changed
	if !changed("day") && !changed("at") {
		return nil
	}
	if !changed("day") || !changed("at") {
		return fmt.Errorf("--day and --at must be given together")
	}
	day, err := parseDay(f.day)
	if err != nil {
		return err
	}
	start, err := slot.Parse(f.at)
	if err != nil {
		return err
	}
	weekStart := currentWeek
	if f.weekStart != "" {
		weekStart = f.weekStart
	}
	*e = e.PlacedAt(day, start, slot.ClampDuration(start, f.duration), weekStart)
	return nil
}

func parseColor(s string) (calendar.Color, error) {
	if c, ok := colorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	c := calendar.Color(strings.ToLower(s))
	if !c.InPalette() {
		return "", fmt.Errorf("unknown color %q", s)
	}
	return c, nil
}

func parseDay(s string) (week.Day, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		d := week.Day(strings.ToUpper(s[:1]) + s[1:3])
		if d.Valid() {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day %q, expected Mon to Sun", s)
}

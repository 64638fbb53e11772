package stats

import (
	"time"

	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/week"
)

type DailyStats struct {
	Date      time.Time
	Day       week.Day
	Events    int
	Colors    []ColorStats
	TotalTime time.Duration
}

type ColorStats struct {
	Color    calendar.Color
	Events   int
	Duration time.Duration
}

// StatsSummary is the scheduled time of one week, broken down by day and by color.
type StatsSummary struct {
	WeekStart   string
	StartDate   time.Time
	EndDate     time.Time
	Days        []DailyStats
	Colors      []ColorStats
	TotalEvents int
	TotalTime   time.Duration
	// Unscheduled counts the events waiting in the unscheduled list.
	Unscheduled int
}

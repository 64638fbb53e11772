package stats

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/klokku/weekgrid/internal/utils"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
	log "github.com/sirupsen/logrus"
)

type StatsService interface {
	// GetStats summarizes the week starting on weekStart, or the current week when empty.
	GetStats(ctx context.Context, weekStart string) (StatsSummary, error)
}

type EventReader interface {
	GetEvents(ctx context.Context) ([]calendar.Event, error)
}

type StatsServiceImpl struct {
	events EventReader
	clock  utils.Clock
}

func NewStatsServiceImpl(events EventReader, clock utils.Clock) *StatsServiceImpl {
	return &StatsServiceImpl{
		events: events,
		clock:  clock,
	}
}

func (s *StatsServiceImpl) GetStats(ctx context.Context, weekStart string) (StatsSummary, error) {
	if weekStart == "" {
		weekStart = week.Of(s.clock.Now())
	}
	if !week.IsWeekStart(weekStart) {
		return StatsSummary{}, fmt.Errorf("%w: week must be a Monday in YYYY-MM-DD format", calendar.ErrValidation)
	}

	events, err := s.events.GetEvents(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	log.Tracef("Summarizing %d events for week %s", len(events), weekStart)
	return Summarize(weekStart, events)
}

// Summarize computes the summary of one week from the whole collection.
func Summarize(weekStart string, events []calendar.Event) (StatsSummary, error) {
	start, err := week.ParseDate(weekStart)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("%w: %v", calendar.ErrValidation, err)
	}
	end, err := week.End(weekStart)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("%w: %v", calendar.ErrValidation, err)
	}

	summary := StatsSummary{
		WeekStart: weekStart,
		StartDate: start,
		EndDate:   end,
		Days:      make([]DailyStats, 0, len(week.Days)),
	}
	for i, day := range week.Days {
		summary.Days = append(summary.Days, DailyStats{Date: start.AddDate(0, 0, i), Day: day})
	}

	weekColors := map[calendar.Color]*ColorStats{}
	for _, e := range events {
		if e.IsUnscheduled() {
			summary.Unscheduled++
			continue
		}
		if e.WeekStart != weekStart {
			continue
		}
		i, ok := e.Day.Index()
		if !ok {
			continue
		}
		duration := time.Duration(slot.Minutes(e.Duration)) * time.Minute

		daily := &summary.Days[i]
		daily.Events++
		daily.TotalTime += duration
		daily.Colors = addColor(daily.Colors, e.Color, duration)

		if weekColors[e.Color] == nil {
			weekColors[e.Color] = &ColorStats{Color: e.Color}
		}
		weekColors[e.Color].Events++
		weekColors[e.Color].Duration += duration

		summary.TotalEvents++
		summary.TotalTime += duration
	}

	for _, c := range weekColors {
		summary.Colors = append(summary.Colors, *c)
	}
	sortColors(summary.Colors)
	for i := range summary.Days {
		sortColors(summary.Days[i].Colors)
	}
	return summary, nil
}

func addColor(colors []ColorStats, color calendar.Color, duration time.Duration) []ColorStats {
	i := slices.IndexFunc(colors, func(c ColorStats) bool { return c.Color == color })
	if i < 0 {
		return append(colors, ColorStats{Color: color, Events: 1, Duration: duration})
	}
	colors[i].Events++
	colors[i].Duration += duration
	return colors
}

// sortColors orders colors by their palette position; colors outside the palette go last.
func sortColors(colors []ColorStats) {
	rank := func(c calendar.Color) int {
		if i := slices.Index(calendar.Palette, c); i >= 0 {
			return i
		}
		return len(calendar.Palette)
	}
	slices.SortStableFunc(colors, func(a, b ColorStats) int {
		return rank(a.Color) - rank(b.Color)
	})
}

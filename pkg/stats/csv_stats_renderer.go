package stats

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strconv"
	"time"

	"github.com/klokku/weekgrid/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type StatsRenderer interface {
	RenderStats(stats StatsSummary) (string, error)
}

type CsvStatsRendererImpl struct {
}

func NewCsvStatsRenderer() *CsvStatsRendererImpl {
	return &CsvStatsRendererImpl{}
}

// RenderStats writes one row per day and a total row. Columns are the date, the event
// count, the scheduled time of every color used in the week, and the day total.
func (t *CsvStatsRendererImpl) RenderStats(stats StatsSummary) (string, error) {
	colors := make([]calendar.Color, 0, len(stats.Colors))
	for _, c := range stats.Colors {
		colors = append(colors, c.Color)
	}

	header := make([]string, 0, len(colors)+3)
	header = append(header, "Date", "Events")
	for _, c := range colors {
		header = append(header, string(c))
	}
	header = append(header, "SUM")

	data := make([][]string, 0, len(stats.Days)+2)
	data = append(data, header)
	for _, daily := range stats.Days {
		data = append(data, row(daily.Date.Format("02/01/2006"), daily.Events, daily.Colors, colors, daily.TotalTime))
	}
	data = append(data, row("Total", stats.TotalEvents, stats.Colors, colors, stats.TotalTime))

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, r := range data {
		if err := writer.Write(r); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func row(label string, events int, stats []ColorStats, colors []calendar.Color, total time.Duration) []string {
	out := make([]string, 0, len(colors)+3)
	out = append(out, label, strconv.Itoa(events))
	for _, color := range colors {
		i := slices.IndexFunc(stats, func(c ColorStats) bool { return c.Color == color })
		if i < 0 {
			out = append(out, "00:00:00")
			continue
		}
		out = append(out, durationToString(stats[i].Duration))
	}
	return append(out, durationToString(total))
}

func durationToString(duration time.Duration) string {
	hours := strconv.Itoa(int(duration.Hours()))
	if len(hours) == 1 {
		hours = "0" + hours
	}
	minutes := strconv.Itoa(int(duration.Minutes()) % 60)
	if len(minutes) == 1 {
		minutes = "0" + minutes
	}
	seconds := strconv.Itoa(int(duration.Seconds()) % 60)
	if len(seconds) == 1 {
		seconds = "0" + seconds
	}
	return hours + ":" + minutes + ":" + seconds
}

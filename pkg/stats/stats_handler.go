package stats

import (
	"errors"
	"net/http"

	"github.com/klokku/weekgrid/internal/rest"
	"github.com/klokku/weekgrid/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type DailyStatsDTO struct {
	Date      string          `json:"date"`
	Day       string          `json:"day"`
	Events    int             `json:"events"`
	Colors    []ColorStatsDTO `json:"colors"`
	TotalTime int             `json:"totalMinutes"`
}

type ColorStatsDTO struct {
	Color    string `json:"color"`
	Events   int    `json:"events"`
	Duration int    `json:"minutes"`
}

type StatsSummaryDTO struct {
	WeekStart   string          `json:"weekStart"`
	EndDate     string          `json:"endDate"`
	Days        []DailyStatsDTO `json:"days"`
	Colors      []ColorStatsDTO `json:"colors"`
	TotalEvents int             `json:"totalEvents"`
	TotalTime   int             `json:"totalMinutes"`
	Unscheduled int             `json:"unscheduled"`
}

type StatsHandler struct {
	statsService     StatsService
	csvStatsRenderer StatsRenderer
}

func NewStatsHandler(statsService StatsService, csvStatsRenderer StatsRenderer) *StatsHandler {
	return &StatsHandler{statsService, csvStatsRenderer}
}

// GetStats serves the weekly summary as JSON, or as CSV when the client accepts text/csv.
func (handler *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.statsService.GetStats(r.Context(), r.URL.Query().Get("week"))
	if err != nil {
		if errors.Is(err, calendar.ErrValidation) {
			rest.WriteErrorDetails(w, http.StatusBadRequest, "Invalid week", err.Error())
			return
		}
		log.Errorf("failed to compute stats: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	if r.Header.Get("Accept") == "text/csv" {
		csv, err := handler.csvStatsRenderer.RenderStats(stats)
		if err != nil {
			rest.WriteError(w, http.StatusInternalServerError, "Failed to render stats")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv: %v", err)
		}
		return
	}
	rest.WriteData(w, http.StatusOK, convertToJsonResponse(&stats))
}

func convertToJsonResponse(stats *StatsSummary) *StatsSummaryDTO {
	days := make([]DailyStatsDTO, 0, len(stats.Days))
	for _, day := range stats.Days {
		days = append(days, DailyStatsDTO{
			Date:      day.Date.Format("2006-01-02"),
			Day:       string(day.Day),
			Events:    day.Events,
			Colors:    colorsToDTO(day.Colors),
			TotalTime: int(day.TotalTime.Minutes()),
		})
	}

	return &StatsSummaryDTO{
		WeekStart:   stats.WeekStart,
		EndDate:     stats.EndDate.Format("2006-01-02"),
		Days:        days,
		Colors:      colorsToDTO(stats.Colors),
		TotalEvents: stats.TotalEvents,
		TotalTime:   int(stats.TotalTime.Minutes()),
		Unscheduled: stats.Unscheduled,
	}
}

func colorsToDTO(colors []ColorStats) []ColorStatsDTO {
	out := make([]ColorStatsDTO, 0, len(colors))
	for _, c := range colors {
		out = append(out, ColorStatsDTO{
			Color:    string(c.Color),
			Events:   c.Events,
			Duration: int(c.Duration.Minutes()),
		})
	}
	return out
}

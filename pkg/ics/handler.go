package ics

import (
	"context"
	"net/http"

	"github.com/klokku/weekgrid/internal/rest"
	"github.com/klokku/weekgrid/internal/utils"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/week"
	log "github.com/sirupsen/logrus"
)

type EventLister interface {
	GetEvents(ctx context.Context) ([]calendar.Event, error)
}

type Handler struct {
	events EventLister
	clock  utils.Clock
}

func NewHandler(events EventLister, clock utils.Clock) *Handler {
	return &Handler{events: events, clock: clock}
}

// Export serves the persisted collection as text/calendar. An optional week query
// parameter limits the export to one week.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	weekStart := r.URL.Query().Get("week")
	if weekStart != "" && !week.IsWeekStart(weekStart) {
		rest.WriteError(w, http.StatusBadRequest, "week must be a Monday in YYYY-MM-DD format")
		return
	}

	events, err := h.events.GetEvents(r.Context())
	if err != nil {
		log.Errorf("failed to load events for export: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	if weekStart != "" {
		events = WeekOf(events, weekStart)
	}

	body, err := Export(events, h.clock.Now())
	if err != nil {
		log.Errorf("failed to export events: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to export events")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="weekgrid.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write calendar: %v", err)
	}
}

package app

import (
	"github.com/klokku/weekgrid/internal/database"
	"github.com/klokku/weekgrid/internal/utils"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/ics"
	"github.com/klokku/weekgrid/pkg/stats"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	CalendarRepository calendar.Repository
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler

	IcsHandler *ics.Handler

	StatsService     *stats.StatsServiceImpl
	CsvStatsRenderer *stats.CsvStatsRendererImpl
	StatsHandler     *stats.StatsHandler

	Metrics *Metrics
	Clock   utils.Clock
}

// BuildDependencies wires the services and handlers on top of the database connector.
func BuildDependencies(connector *database.Connector) *Dependencies {
	return NewDependencies(calendar.NewRepository(connector), utils.SystemClock{})
}

// NewDependencies wires the services and handlers on top of any calendar repository.
func NewDependencies(repo calendar.Repository, clock utils.Clock) *Dependencies {
	deps := &Dependencies{Clock: clock}

	deps.CalendarRepository = repo
	deps.CalendarService = calendar.NewService(repo)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	deps.IcsHandler = ics.NewHandler(deps.CalendarService, clock)

	deps.StatsService = stats.NewStatsServiceImpl(deps.CalendarService, clock)
	deps.CsvStatsRenderer = stats.NewCsvStatsRenderer()
	deps.StatsHandler = stats.NewStatsHandler(deps.StatsService, deps.CsvStatsRenderer)

	deps.Metrics = NewMetrics()
	return deps
}

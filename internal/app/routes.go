package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Events
	r.HandleFunc("/api/events", deps.CalendarHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/events.ics", deps.IcsHandler.Export).Methods("GET")
	r.HandleFunc("/api/events/{id}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/events/{id}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")
	r.HandleFunc("/api/migrate", deps.CalendarHandler.Migrate).Methods("POST")

	// Stats
	r.HandleFunc("/api/stats/weekly", deps.StatsHandler.GetStats).Methods("GET")

	// Metrics
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")
}

package calendar

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/weekgrid/internal/rest"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 4 << 20

type Handler struct {
	calendar *Service
}

type MigrateRequest struct {
	Events []EventDTO `json:"events"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.calendar.GetEvents(r.Context())
	if err != nil {
		log.Errorf("failed to fetch events: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, EventToDTO(e))
	}
	rest.WriteData(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if dto.ID == "" || dto.Title == "" || dto.Color == "" {
		rest.WriteError(w, http.StatusBadRequest, "Missing required fields: id, title, or color")
		return
	}
	event, err := DTOToEvent(dto)
	if err != nil {
		writeServiceError(w, err, "Failed to create event")
		return
	}

	created, err := h.calendar.CreateEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err, "Failed to create event")
		return
	}
	rest.WriteData(w, http.StatusCreated, EventToDTO(created))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	patch, err := PatchFromJSON(body)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			writeServiceError(w, err, "Failed to update event")
			return
		}
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.calendar.UpdateEvent(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err, "Failed to update event")
		return
	}
	rest.WriteData(w, http.StatusOK, EventToDTO(updated))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	deleted, err := h.calendar.DeleteEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to delete event")
		return
	}
	rest.WriteData(w, http.StatusOK, EventToDTO(deleted))
}

// Migrate imports a batch of events. Ids that already exist are skipped.
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.MigrateResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		rest.WriteJSON(w, http.StatusOK, rest.MigrateResponse{Success: true, Message: "No events to migrate"})
		return
	}

	events := make([]Event, 0, len(req.Events))
	for _, dto := range req.Events {
		event, err := DTOToEvent(dto)
		if err != nil {
			rest.WriteJSON(w, http.StatusBadRequest, rest.MigrateResponse{Error: err.Error()})
			return
		}
		events = append(events, event)
	}

	result, err := h.calendar.Migrate(r.Context(), events)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to migrate events"
		if errors.Is(err, ErrValidation) {
			status = http.StatusBadRequest
			message = "Each event must have id, title, and color"
		} else {
			log.Errorf("migration failed: %v", err)
		}
		rest.WriteJSON(w, status, rest.MigrateResponse{Error: message})
		return
	}

	resp := rest.MigrateResponse{
		Success:  true,
		Migrated: result.Migrated,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	}
	status := http.StatusCreated
	switch {
	case result.Failed > 0 && result.Migrated == 0:
		status = http.StatusInternalServerError
		resp.Success = false
		resp.Error = "Failed to migrate events"
	case result.Failed > 0:
		status = http.StatusMultiStatus
		resp.Message = "Some events failed to migrate"
	case result.Migrated == 0:
		status = http.StatusOK
		resp.Message = "All events already exist"
	default:
		resp.Message = "Events migrated successfully"
	}
	rest.WriteJSON(w, status, resp)
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		rest.WriteErrorDetails(w, http.StatusBadRequest, validationErr.Error(), validationErr.Fields)
	case errors.Is(err, ErrValidation):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEventAlreadyExists):
		rest.WriteError(w, http.StatusConflict, "Event with this ID already exists")
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found")
	default:
		log.Errorf("%s: %v", fallback, err)
		rest.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

package calendar

import (
	"encoding/json"
	"fmt"

	"github.com/klokku/weekgrid/pkg/week"
)

// EventDTO is the wire form of an Event. Scheduling fields are always emitted so that
// null can be used to clear them on update.
type EventDTO struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Color            string  `json:"color"`
	Day              *string `json:"day"`
	TimeSlot         *int    `json:"timeSlot"`
	Duration         *int    `json:"duration"`
	WeekStart        *string `json:"weekStart"`
	Location         string  `json:"location,omitempty"`
	Link             string  `json:"link,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	Attendees        string  `json:"attendees,omitempty"`
	RepeatType       string  `json:"repeatType,omitempty"`
	RepeatEndDate    string  `json:"repeatEndDate,omitempty"`
	IsRecurring      bool    `json:"isRecurring"`
	RecurringGroupID string  `json:"recurringGroupId,omitempty"`
}

func EventToDTO(e Event) EventDTO {
	dto := EventDTO{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Color:            string(e.Color),
		Location:         e.Location,
		Link:             e.Link,
		Notes:            e.Notes,
		Attendees:        e.Attendees,
		RepeatType:       string(e.RepeatType),
		RepeatEndDate:    e.RepeatEndDate,
		IsRecurring:      e.IsRecurring,
		RecurringGroupID: e.RecurringGroupID,
	}
	if e.IsScheduled() {
		day := string(e.Day)
		timeSlot := e.TimeSlot
		weekStart := e.WeekStart
		dto.Day = &day
		dto.TimeSlot = &timeSlot
		dto.WeekStart = &weekStart
	}
	if e.Duration > 0 {
		duration := e.Duration
		dto.Duration = &duration
	}
	return dto
}

// DTOToEvent converts the wire form back to an Event. It rejects a partially set schedule.
func DTOToEvent(d EventDTO) (Event, error) {
	e := Event{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		Color:            Color(d.Color),
		Location:         d.Location,
		Link:             d.Link,
		Notes:            d.Notes,
		Attendees:        d.Attendees,
		RepeatType:       Repeat(d.RepeatType),
		RepeatEndDate:    d.RepeatEndDate,
		IsRecurring:      d.IsRecurring,
		RecurringGroupID: d.RecurringGroupID,
	}
	set := 0
	if d.Day != nil {
		e.Day = week.Day(*d.Day)
		set++
	}
	if d.TimeSlot != nil {
		e.TimeSlot = *d.TimeSlot
		set++
	}
	if d.WeekStart != nil {
		e.WeekStart = *d.WeekStart
		set++
	}
	if set != 0 && set != 3 {
		return Event{}, newValidationError("day, timeSlot, weekStart", "must be set together")
	}
	if d.Duration != nil {
		e.Duration = *d.Duration
	}
	return e.Normalized(), nil
}

// Field is an optionally present value of a partial update. Set with a zero Value clears the field.
type Field[T any] struct {
	Set   bool
	Value T
}

// Patch is a partial update of an event. The id can never be patched.
type Patch struct {
	Title            Field[string]
	Description      Field[string]
	Color            Field[Color]
	Day              Field[week.Day]
	TimeSlot         Field[*int]
	Duration         Field[int]
	WeekStart        Field[string]
	Location         Field[string]
	Link             Field[string]
	Notes            Field[string]
	Attendees        Field[string]
	RepeatType       Field[Repeat]
	RepeatEndDate    Field[string]
	IsRecurring      Field[bool]
	RecurringGroupID Field[string]
}

// PatchFromJSON builds a Patch from a JSON object. Keys absent from the object leave the
// field untouched and explicit nulls clear it. "id" and "_id" are ignored.
func PatchFromJSON(body []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Patch{}, fmt.Errorf("invalid request body: %w", err)
	}
	var p Patch
	decoders := []error{
		decodeField(raw, "title", &p.Title),
		decodeField(raw, "description", &p.Description),
		decodeField(raw, "color", &p.Color),
		decodeField(raw, "day", &p.Day),
		decodeField(raw, "timeSlot", &p.TimeSlot),
		decodeField(raw, "duration", &p.Duration),
		decodeField(raw, "weekStart", &p.WeekStart),
		decodeField(raw, "location", &p.Location),
		decodeField(raw, "link", &p.Link),
		decodeField(raw, "notes", &p.Notes),
		decodeField(raw, "attendees", &p.Attendees),
		decodeField(raw, "repeatType", &p.RepeatType),
		decodeField(raw, "repeatEndDate", &p.RepeatEndDate),
		decodeField(raw, "isRecurring", &p.IsRecurring),
		decodeField(raw, "recurringGroupId", &p.RecurringGroupID),
	}
	for _, err := range decoders {
		if err != nil {
			return Patch{}, err
		}
	}
	return p, nil
}

func decodeField[T any](raw map[string]json.RawMessage, key string, f *Field[T]) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	f.Set = true
	if string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, &f.Value); err != nil {
		return newValidationError(key, fmt.Sprintf("has invalid value: %v", err))
	}
	return nil
}

// Apply returns e with the patch applied. Clearing any of day, timeSlot or weekStart
// unschedules the event.
func (p Patch) Apply(e Event) Event {
	apply(&e.Title, p.Title)
	apply(&e.Description, p.Description)
	apply(&e.Color, p.Color)
	apply(&e.Location, p.Location)
	apply(&e.Link, p.Link)
	apply(&e.Notes, p.Notes)
	apply(&e.Attendees, p.Attendees)
	apply(&e.RepeatType, p.RepeatType)
	apply(&e.RepeatEndDate, p.RepeatEndDate)
	apply(&e.IsRecurring, p.IsRecurring)
	apply(&e.RecurringGroupID, p.RecurringGroupID)
	apply(&e.Day, p.Day)
	apply(&e.WeekStart, p.WeekStart)
	apply(&e.Duration, p.Duration)
	if p.TimeSlot.Set && p.TimeSlot.Value != nil {
		e.TimeSlot = *p.TimeSlot.Value
	}
	cleared := (p.Day.Set && p.Day.Value == "") ||
		(p.WeekStart.Set && p.WeekStart.Value == "") ||
		(p.TimeSlot.Set && p.TimeSlot.Value == nil)
	if cleared {
		e = e.Unscheduled()
	} else if e.IsUnscheduled() {
		e.TimeSlot = 0
	}
	return e.Normalized()
}

func apply[T any](dst *T, f Field[T]) {
	if f.Set {
		*dst = f.Value
	}
}

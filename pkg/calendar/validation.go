package calendar

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("palette", func(fl validator.FieldLevel) bool {
		return Color(fl.Field().String()).InPalette()
	}); err != nil {
		panic(fmt.Sprintf("could not register palette validation: %v", err))
	}
	validate.RegisterStructValidation(validateSchedule, Event{})
}

// validateSchedule enforces the all-or-nothing rule of the scheduling fields.
func validateSchedule(sl validator.StructLevel) {
	e := sl.Current().Interface().(Event)
	if e.IsUnscheduled() {
		return
	}
	if e.Day == "" {
		sl.ReportError(e.Day, "Day", "Day", "schedule", "")
	}
	if e.WeekStart == "" {
		sl.ReportError(e.WeekStart, "WeekStart", "WeekStart", "schedule", "")
	} else if !week.IsWeekStart(e.WeekStart) {
		sl.ReportError(e.WeekStart, "WeekStart", "WeekStart", "monday", "")
	}
	if e.Duration == 0 {
		sl.ReportError(e.Duration, "Duration", "Duration", "schedule", "")
	} else if slot.Valid(e.TimeSlot) && e.Duration <= slot.MaxDuration && e.TimeSlot+e.Duration > slot.PerDay {
		sl.ReportError(e.Duration, "Duration", "Duration", "endofday", "")
	}
}

// Validate checks every field constraint of the event. The returned error matches ErrValidation.
func Validate(e Event) error {
	var fields []FieldError
	if strings.TrimSpace(e.Title) == "" && e.Title != "" {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}

	err := validate.Struct(e)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("could not validate event: %w", err)
		}
		for _, fe := range validationErrors {
			fields = append(fields, FieldError{
				Field:   lowerFirst(fe.Field()),
				Message: messageFor(fe),
			})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateTitle applies the title rules used before any local mutation.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return newValidationError("title", "is required")
	}
	if len([]rune(title)) > 100 {
		return newValidationError("title", "must be 100 characters or less")
	}
	return nil
}

// ValidateRequired checks the fields the persistence API cannot accept an event without.
func ValidateRequired(e Event) error {
	if e.ID == "" || e.Title == "" || e.Color == "" {
		return &ValidationError{Fields: []FieldError{{Field: "id, title, or color", Message: "is required"}}}
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be %s characters or less", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return "must be an ISO date (YYYY-MM-DD)"
	case "palette":
		return "must be one of the palette colors"
	case "schedule":
		return "must be set together with day, timeSlot, duration and weekStart"
	case "monday":
		return "must be a Monday"
	case "endofday":
		return "must end by the last slot of the day"
	}
	return fmt.Sprintf("must satisfy %s constraint", fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

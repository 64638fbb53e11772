package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/klokku/weekgrid/internal/event_bus"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/collision"
	"github.com/klokku/weekgrid/pkg/recurrence"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
	log "github.com/sirupsen/logrus"
)

// Edge selects the side of an event a resize drags.
type Edge int

const (
	Top Edge = iota
	Bottom
)

// NewEventTitle is the title of events created by clicking a grid cell.
const NewEventTitle = "New Event"

// Load replaces the collection with the remote one. On failure the current collection is
// kept and the failure is published like a rollback.
func (s *Store) Load(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	events, err := s.remote.ListEvents(ctx)
	if err != nil {
		log.Warnf("load failed, keeping %d local events: %v", len(s.Events()), err)
		s.publish(ctx, event_bus.StoreRolledBack, event_bus.StoreMutationRolledBack{Operation: "load", Err: err})
		return fmt.Errorf("load: %w", err)
	}
	s.set(events)
	log.Infof("loaded %d events", len(events))
	s.publish(ctx, event_bus.StoreCommitted, event_bus.StoreMutationCommitted{Operation: "load", EventIds: ids(events)})
	return nil
}

// Add creates an event. A scheduled draft with a repeat rule is expanded into its recurring
// instances. The created events are returned.
func (s *Store) Add(ctx context.Context, draft calendar.Event) ([]calendar.Event, error) {
	if draft.ID == "" {
		draft.ID = s.eventIds.NewId()
	}
	draft = fitted(draft.Normalized())
	if draft.Color == "" {
		draft.Color = calendar.Palette[0]
	}
	if err := validate(draft); err != nil {
		return nil, err
	}

	var created []calendar.Event
	err := s.transact(ctx, "add", func(current []calendar.Event) (mutation, error) {
		if indexOf(current, draft.ID) >= 0 {
			return mutation{}, calendar.ErrEventAlreadyExists
		}
		if draft.IsScheduled() && collision.Collides(collision.For(draft), current) {
			return mutation{}, ErrSlotConflict
		}
		instances, err := s.expand(draft)
		if err != nil {
			return mutation{}, err
		}
		created = instances
		return mutation{
			next:     append(current, instances...),
			remote:   s.createAll(instances),
			affected: ids(instances),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateAt creates a default event on a grid cell of the given week.
func (s *Store) CreateAt(ctx context.Context, day week.Day, timeSlot int, weekStart string) (calendar.Event, error) {
	event := calendar.Event{
		ID:         s.eventIds.NewId(),
		Title:      NewEventTitle,
		Color:      calendar.Palette[0],
		RepeatType: calendar.RepeatNone,
	}.PlacedAt(day, timeSlot, slot.ClampDuration(timeSlot, slot.DefaultDuration), weekStart)
	if err := validate(event); err != nil {
		return calendar.Event{}, err
	}

	err := s.transact(ctx, "create", func(current []calendar.Event) (mutation, error) {
		if collision.Collides(collision.For(event), current) {
			return mutation{}, ErrSlotConflict
		}
		return mutation{
			next:     append(current, event),
			remote:   s.createCall(event),
			affected: []string{event.ID},
		}, nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return event, nil
}

// Update saves an edited event. Editing an instance of a recurring group rebuilds the whole
// group; adding a repeat rule to a scheduled single event expands it. Anything else is an
// in-place update.
func (s *Store) Update(ctx context.Context, edited calendar.Event) ([]calendar.Event, error) {
	edited = fitted(edited.Normalized())
	if err := validate(edited); err != nil {
		return nil, err
	}

	var result []calendar.Event
	err := s.transact(ctx, "update", func(current []calendar.Event) (mutation, error) {
		i := indexOf(current, edited.ID)
		if i < 0 {
			return mutation{}, ErrEventNotInStore
		}
		existing := current[i]

		switch {
		case existing.InGroup():
			group := memberIds(current, existing.RecurringGroupID)
			next := slices.DeleteFunc(current, func(e calendar.Event) bool {
				return e.RecurringGroupID == existing.RecurringGroupID
			})
			if edited.IsScheduled() && collision.Collides(collision.For(edited), next) {
				return mutation{}, ErrSlotConflict
			}
			replacement, err := s.expand(edited.Detached())
			if err != nil {
				return mutation{}, err
			}
			result = replacement
			return mutation{
				next:     append(next, replacement...),
				remote:   sequence(s.deleteAll(group), s.createAll(replacement)),
				affected: append(group, ids(replacement)...),
			}, nil

		case edited.HasRepeat() && edited.IsScheduled():
			if collision.Collides(collision.For(edited), current) {
				return mutation{}, ErrSlotConflict
			}
			instances, err := s.expand(edited)
			if err != nil {
				return mutation{}, err
			}
			result = instances
			next := slices.Delete(current, i, i+1)
			return mutation{
				next:     append(next, instances...),
				remote:   sequence(s.deleteCall(existing.ID), s.createAll(instances)),
				affected: append([]string{existing.ID}, ids(instances)...),
			}, nil

		default:
			if edited.IsScheduled() && collision.Collides(collision.For(edited), current) {
				return mutation{}, ErrSlotConflict
			}
			result = []calendar.Event{edited}
			current[i] = edited
			return mutation{
				next:     current,
				remote:   s.updateCall(edited),
				affected: []string{edited.ID},
			}, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a single event. Other instances of its recurring group stay.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.transact(ctx, "delete", func(current []calendar.Event) (mutation, error) {
		i := indexOf(current, id)
		if i < 0 {
			return mutation{}, ErrEventNotInStore
		}
		return mutation{
			next:     slices.Delete(current, i, i+1),
			remote:   s.deleteCall(id),
			affected: []string{id},
		}, nil
	})
}

// Place drops an event on a grid cell. An event with a repeat rule that was never scheduled
// is expanded into its recurring instances; any other event just moves.
func (s *Store) Place(ctx context.Context, id string, day week.Day, timeSlot int, weekStart string) ([]calendar.Event, error) {
	if !day.Valid() || !slot.Valid(timeSlot) || !week.IsWeekStart(weekStart) {
		return nil, fmt.Errorf("%w: invalid placement %s %d %s", calendar.ErrValidation, day, timeSlot, weekStart)
	}

	var result []calendar.Event
	err := s.transact(ctx, "place", func(current []calendar.Event) (mutation, error) {
		i := indexOf(current, id)
		if i < 0 {
			return mutation{}, ErrEventNotInStore
		}
		existing := current[i]
		duration := slot.ClampDuration(timeSlot, existing.EffectiveDuration())
		placed := existing.PlacedAt(day, timeSlot, duration, weekStart)

		if collision.Collides(collision.For(placed), current) {
			return mutation{}, ErrSlotConflict
		}

		if existing.HasRepeat() && existing.WeekStart == "" {
			instances, err := s.expand(placed.Detached())
			if err != nil {
				return mutation{}, err
			}
			result = instances
			next := slices.Delete(current, i, i+1)
			return mutation{
				next:     append(next, instances...),
				remote:   sequence(s.deleteCall(existing.ID), s.createAll(instances)),
				affected: append([]string{existing.ID}, ids(instances)...),
			}, nil
		}

		result = []calendar.Event{placed}
		current[i] = placed
		return mutation{
			next:     current,
			remote:   s.updateCall(placed),
			affected: []string{placed.ID},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Unschedule moves an event back to the unscheduled list. For an instance of a recurring
// group the whole group is removed and replaced by one fresh unscheduled event, which is
// returned.
func (s *Store) Unschedule(ctx context.Context, id string) (calendar.Event, error) {
	var result calendar.Event
	err := s.transact(ctx, "unschedule", func(current []calendar.Event) (mutation, error) {
		i := indexOf(current, id)
		if i < 0 {
			return mutation{}, ErrEventNotInStore
		}
		existing := current[i]

		if existing.InGroup() {
			group := memberIds(current, existing.RecurringGroupID)
			fresh := existing.Unscheduled().Detached()
			fresh.ID = s.eventIds.NewId()
			result = fresh
			next := slices.DeleteFunc(current, func(e calendar.Event) bool {
				return e.RecurringGroupID == existing.RecurringGroupID
			})
			return mutation{
				next:     append(next, fresh),
				remote:   sequence(s.deleteAll(group), s.createCall(fresh)),
				affected: append(group, fresh.ID),
			}, nil
		}

		unscheduled := existing.Unscheduled()
		result = unscheduled
		current[i] = unscheduled
		return mutation{
			next:     current,
			remote:   s.updateCall(unscheduled),
			affected: []string{id},
		}, nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return result, nil
}

// Resize drags the top or bottom edge of a scheduled event by delta slots. The result is
// clamped to the duration limits and to the end of the day.
func (s *Store) Resize(ctx context.Context, id string, edge Edge, delta int) (calendar.Event, error) {
	var result calendar.Event
	err := s.transact(ctx, "resize", func(current []calendar.Event) (mutation, error) {
		i := indexOf(current, id)
		if i < 0 {
			return mutation{}, ErrEventNotInStore
		}
		existing := current[i]
		if !existing.IsScheduled() {
			return mutation{}, fmt.Errorf("%w: cannot resize an unscheduled event", calendar.ErrValidation)
		}

		resized := Resized(existing, edge, delta)
		if resized == existing {
			result = existing
			return mutation{next: current}, nil
		}
		if collision.Collides(collision.For(resized), current) {
			return mutation{}, ErrSlotConflict
		}
		result = resized
		current[i] = resized
		return mutation{
			next:     current,
			remote:   s.updateCall(resized),
			affected: []string{id},
		}, nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return result, nil
}

// Resized returns e with one edge moved by delta slots.
func Resized(e calendar.Event, edge Edge, delta int) calendar.Event {
	duration := e.EffectiveDuration()
	switch edge {
	case Bottom:
		e.Duration = slot.ClampDuration(e.TimeSlot, duration+delta)
	case Top:
		e.TimeSlot = slot.Clamp(e.TimeSlot + delta)
		e.Duration = slot.ClampDuration(e.TimeSlot, duration-delta)
	}
	return e
}

// Reorder moves the event with id fromID to the position of toID. It only changes the
// local order and never contacts the remote.
func (s *Store) Reorder(ctx context.Context, fromID, toID string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	from := indexOf(s.events, fromID)
	to := indexOf(s.events, toID)
	if from < 0 || to < 0 {
		return ErrEventNotInStore
	}
	s.events = arrayMove(s.events, from, to)
	return nil
}

// arrayMove returns a copy of events with the element at from moved to index to.
func arrayMove(events []calendar.Event, from, to int) []calendar.Event {
	out := slices.Clone(events)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, moved)
}

// expand generates the recurring instances of e under a freshly minted group id, or
// returns e alone when it does not repeat.
func (s *Store) expand(e calendar.Event) ([]calendar.Event, error) {
	if !e.HasRepeat() || !e.IsScheduled() {
		return []calendar.Event{e}, nil
	}
	return recurrence.Generate(e, s.groupIds.NewId())
}

// fitted clamps the duration of a scheduled event so it ends by the last slot of its day.
func fitted(e calendar.Event) calendar.Event {
	if e.IsScheduled() {
		e.Duration = slot.ClampDuration(e.TimeSlot, e.EffectiveDuration())
	}
	return e
}

func validate(e calendar.Event) error {
	if err := calendar.ValidateTitle(e.Title); err != nil {
		return err
	}
	if e.HasRepeat() && e.IsScheduled() {
		if _, _, err := recurrence.Span(e); err != nil {
			return err
		}
	}
	return calendar.Validate(e)
}

func ids(events []calendar.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func memberIds(events []calendar.Event, groupID string) []string {
	var out []string
	for _, e := range events {
		if e.RecurringGroupID == groupID {
			out = append(out, e.ID)
		}
	}
	return out
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/klokku/weekgrid/internal/event_bus"
	"github.com/klokku/weekgrid/internal/utils"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errServer = errors.New("request failed with status 500")

// fakeRemote is an in-memory Persistence with per-operation failure injection.
type fakeRemote struct {
	mu     sync.Mutex
	events map[string]calendar.Event
	fail   map[string]error
	calls  map[string]int

	// when set, CreateEvent signals entered and waits for gate
	entered chan struct{}
	gate    chan struct{}
}

func newFakeRemote(events ...calendar.Event) *fakeRemote {
	r := &fakeRemote{
		events: map[string]calendar.Event{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeRemote) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.fail[op]
}

func (r *fakeRemote) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *fakeRemote) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRemote) ListEvents(ctx context.Context) ([]calendar.Event, error) {
	if err := r.record("list"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calendar.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeRemote) CreateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.gate
	}
	if err := r.record("create"); err != nil {
		return calendar.Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = e
	return e, nil
}

func (r *fakeRemote) UpdateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	if err := r.record("update"); err != nil {
		return calendar.Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = e
	return e, nil
}

func (r *fakeRemote) DeleteEvent(ctx context.Context, id string) (calendar.Event, error) {
	if err := r.record("delete"); err != nil {
		return calendar.Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events[id]
	delete(r.events, id)
	return e, nil
}

type outcomes struct {
	committed  []event_bus.StoreMutationCommitted
	rolledBack []event_bus.StoreMutationRolledBack
}

func (o *outcomes) Committed(outcome event_bus.StoreMutationCommitted) {
	o.committed = append(o.committed, outcome)
}

func (o *outcomes) RolledBack(outcome event_bus.StoreMutationRolledBack) {
	o.rolledBack = append(o.rolledBack, outcome)
}

var wednesday = time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, remote *fakeRemote, seed ...calendar.Event) (*Store, *outcomes) {
	t.Helper()
	s := New(remote,
		WithClock(&utils.MockClock{FixedNow: wednesday}),
		WithIdGenerators(&utils.SequenceGenerator{Prefix: "event-"}, &utils.SequenceGenerator{Prefix: "recurring-"}),
		WithEvents(seed),
	)
	o := &outcomes{}
	t.Cleanup(Subscribe(s.Bus(), o))
	return s, o
}

func event(id string, day week.Day, timeSlot, duration int) calendar.Event {
	return calendar.Event{
		ID: id, Title: "title " + id, Color: calendar.Emerald, RepeatType: calendar.RepeatNone,
		Day: day, TimeSlot: timeSlot, Duration: duration, WeekStart: "2025-06-02",
	}
}

func TestStore_Add(t *testing.T) {
	t.Run("should roll back a create the remote rejects", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		remote.fail["create"] = errServer
		s, o := newTestStore(t, remote)

		// when
		_, err := s.Add(context.Background(), event("e1", week.Mon, 36, 4))

		// then
		require.ErrorIs(t, err, errServer)
		_, found := s.Get("e1")
		assert.False(t, found)
		assert.Empty(t, s.Events())
		require.Len(t, o.rolledBack, 1)
		assert.Equal(t, "add", o.rolledBack[0].Operation)
		assert.Equal(t, []string{"e1"}, o.rolledBack[0].EventIds)
		assert.Empty(t, o.committed)
	})

	t.Run("should expand a repeating draft into instances", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, o := newTestStore(t, remote)
		draft := event("", week.Mon, 36, 4)
		draft.Title = "Standup"
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-30"

		// when
		created, err := s.Add(context.Background(), draft)

		// then
		require.NoError(t, err)
		require.Len(t, created, 5)
		for i, e := range created {
			assert.True(t, e.InGroup())
			assert.Equal(t, "recurring-1", e.RecurringGroupID)
			assert.Equal(t, week.Mon, e.Day)
			assert.Equal(t, []string{"2025-06-02", "2025-06-09", "2025-06-16", "2025-06-23", "2025-06-30"}[i], e.WeekStart)
		}
		assert.Equal(t, 5, remote.count("create"))
		assert.Len(t, s.Events(), 5)
		require.Len(t, o.committed, 1)
		assert.Len(t, o.committed[0].EventIds, 5)
	})

	t.Run("should mint an id and default the color", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())

		created, err := s.Add(context.Background(), calendar.Event{Title: "Idea"})

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, "event-1", created[0].ID)
		assert.Equal(t, calendar.Palette[0], created[0].Color)
		assert.True(t, created[0].IsUnscheduled())
		assert.Len(t, s.Unscheduled(), 1)
	})

	t.Run("should reject a blank title before any change", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)

		_, err := s.Add(context.Background(), calendar.Event{Title: "   "})

		assert.ErrorIs(t, err, calendar.ErrValidation)
		assert.Zero(t, remote.total())
		assert.Empty(t, s.Events())
	})

	t.Run("should reject an end date before the first occurrence", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)
		draft := event("e1", week.Wed, 36, 4)
		draft.RepeatType = calendar.RepeatDaily
		draft.RepeatEndDate = "2025-06-01"

		_, err := s.Add(context.Background(), draft)

		assert.ErrorIs(t, err, calendar.ErrValidation)
		assert.Zero(t, remote.total())
	})

	t.Run("should reject a duplicate id", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("e1", week.Mon, 0, 4))

		_, err := s.Add(context.Background(), event("e1", week.Tue, 0, 4))

		assert.ErrorIs(t, err, calendar.ErrEventAlreadyExists)
		assert.Zero(t, remote.total())
	})
}

func TestStore_CreateAt(t *testing.T) {
	t.Run("should create a default event on a free cell", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())

		created, err := s.CreateAt(context.Background(), week.Fri, 94, "2025-06-02")

		require.NoError(t, err)
		assert.Equal(t, NewEventTitle, created.Title)
		assert.Equal(t, 2, created.Duration)
		assert.Equal(t, calendar.RepeatNone, created.RepeatType)
	})

	t.Run("should reject an occupied cell", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("meeting", week.Tue, 40, 8))

		_, err := s.CreateAt(context.Background(), week.Tue, 44, "2025-06-02")

		assert.ErrorIs(t, err, ErrSlotConflict)
		assert.Zero(t, remote.total())
	})
}

func TestStore_Place(t *testing.T) {
	t.Run("should reject a drop onto an occupied interval", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		seed := []calendar.Event{event("meeting", week.Tue, 40, 8), event("gym", week.Thu, 10, 4)}
		s, o := newTestStore(t, remote, seed...)
		before := s.Events()

		// when
		_, err := s.Place(context.Background(), "gym", week.Tue, 44, "2025-06-02")

		// then
		assert.ErrorIs(t, err, ErrSlotConflict)
		assert.ErrorIs(t, err, calendar.ErrConflict)
		assert.Equal(t, before, s.Events())
		assert.Zero(t, remote.total())
		assert.Empty(t, o.committed)
		assert.Empty(t, o.rolledBack)
	})

	t.Run("should move an event and keep its duration", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("gym", week.Thu, 10, 6))

		placed, err := s.Place(context.Background(), "gym", week.Sat, 20, "2025-06-09")

		require.NoError(t, err)
		require.Len(t, placed, 1)
		got, _ := s.Get("gym")
		assert.Equal(t, week.Sat, got.Day)
		assert.Equal(t, 20, got.TimeSlot)
		assert.Equal(t, 6, got.Duration)
		assert.Equal(t, "2025-06-09", got.WeekStart)
		assert.Equal(t, 1, remote.count("update"))
	})

	t.Run("should clamp the duration at the end of the day", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), event("gym", week.Thu, 10, 8))

		placed, err := s.Place(context.Background(), "gym", week.Thu, 92, "2025-06-02")

		require.NoError(t, err)
		assert.Equal(t, 4, placed[0].Duration)
	})

	t.Run("should default the duration of a never scheduled event", func(t *testing.T) {
		idea := calendar.Event{ID: "idea", Title: "idea", Color: calendar.Blue, RepeatType: calendar.RepeatNone}
		s, _ := newTestStore(t, newFakeRemote(), idea)

		placed, err := s.Place(context.Background(), "idea", week.Mon, 0, "2025-06-02")

		require.NoError(t, err)
		assert.Equal(t, slot.DefaultDuration, placed[0].Duration)
	})

	t.Run("should expand a repeating unscheduled event on first placement", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		pending := calendar.Event{
			ID: "yoga", Title: "Yoga", Color: calendar.Violet,
			RepeatType: calendar.RepeatWeekly, RepeatEndDate: "2025-06-16",
		}
		s, _ := newTestStore(t, remote, pending)

		// when
		placed, err := s.Place(context.Background(), "yoga", week.Mon, 28, "2025-06-02")

		// then
		require.NoError(t, err)
		require.Len(t, placed, 3)
		_, found := s.Get("yoga")
		assert.False(t, found)
		assert.Len(t, s.Events(), 3)
		assert.Equal(t, 1, remote.count("delete"))
		assert.Equal(t, 3, remote.count("create"))
	})

	t.Run("should reject invalid coordinates", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("gym", week.Thu, 10, 4))

		_, err := s.Place(context.Background(), "gym", week.Mon, 96, "2025-06-02")
		assert.ErrorIs(t, err, calendar.ErrValidation)

		_, err = s.Place(context.Background(), "gym", week.Mon, 10, "2025-06-03")
		assert.ErrorIs(t, err, calendar.ErrValidation)
		assert.Zero(t, remote.total())
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("should collapse a weekly group into one event", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)
		draft := event("", week.Mon, 36, 4)
		draft.Title = "Standup"
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-30"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)
		require.Len(t, instances, 5)

		// when
		edited := instances[2]
		edited.RepeatType = calendar.RepeatNone
		edited.Title = "Last standup"
		result, err := s.Update(context.Background(), edited)

		// then
		require.NoError(t, err)
		require.Len(t, result, 1)
		events := s.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "Last standup", events[0].Title)
		assert.False(t, events[0].IsRecurring)
		assert.Empty(t, events[0].RecurringGroupID)
		assert.Equal(t, "2025-06-16", events[0].WeekStart)
		assert.Equal(t, 5, remote.count("delete"))
		assert.Equal(t, 6, remote.count("create"))
	})

	t.Run("should regenerate a group under a fresh group id", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())
		draft := event("", week.Mon, 36, 4)
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-16"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)

		edited := instances[0]
		edited.TimeSlot = 40
		result, err := s.Update(context.Background(), edited)

		require.NoError(t, err)
		require.Len(t, result, 3)
		for _, e := range s.Events() {
			assert.Equal(t, "recurring-2", e.RecurringGroupID)
			assert.Equal(t, 40, e.TimeSlot)
		}
	})

	t.Run("should expand a single event that gains a repeat rule", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("gym", week.Mon, 10, 4))

		edited, _ := s.Get("gym")
		edited.RepeatType = calendar.RepeatDaily
		edited.RepeatEndDate = "2025-06-04"
		result, err := s.Update(context.Background(), edited)

		require.NoError(t, err)
		assert.Len(t, result, 3)
		_, found := s.Get("gym")
		assert.False(t, found)
		assert.Equal(t, 1, remote.count("delete"))
	})

	t.Run("should restore the exact snapshot when the remote fails", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		seed := []calendar.Event{event("a", week.Mon, 0, 4), event("b", week.Tue, 4, 4), event("c", week.Wed, 8, 4)}
		s, o := newTestStore(t, remote, seed...)
		remote.fail["update"] = errServer
		before := s.Events()

		// when
		edited := seed[1]
		edited.Title = "renamed"
		_, err := s.Update(context.Background(), edited)

		// then
		require.Error(t, err)
		assert.Equal(t, before, s.Events())
		require.Len(t, o.rolledBack, 1)
		assert.Equal(t, "update", o.rolledBack[0].Operation)
	})

	t.Run("should restore a whole group when a recreate fails", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)
		draft := event("", week.Mon, 36, 4)
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-16"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)
		before := s.Events()
		remote.fail["create"] = errServer

		edited := instances[1]
		edited.Title = "moved"
		_, err = s.Update(context.Background(), edited)

		require.ErrorIs(t, err, errServer)
		assert.Equal(t, before, s.Events())
	})

	t.Run("should report an unknown event", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())

		_, err := s.Update(context.Background(), event("ghost", week.Mon, 0, 4))

		assert.ErrorIs(t, err, calendar.ErrEventNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	t.Run("should delete only the given instance", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())
		draft := event("", week.Mon, 36, 4)
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-16"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)

		err = s.Delete(context.Background(), instances[1].ID)

		require.NoError(t, err)
		assert.Len(t, s.Events(), 2)
	})

	t.Run("should keep the event when the remote fails", func(t *testing.T) {
		remote := newFakeRemote()
		remote.fail["delete"] = errServer
		s, o := newTestStore(t, remote, event("a", week.Mon, 0, 4))

		err := s.Delete(context.Background(), "a")

		require.Error(t, err)
		_, found := s.Get("a")
		assert.True(t, found)
		assert.Len(t, o.rolledBack, 1)
	})
}

func TestStore_Unschedule(t *testing.T) {
	t.Run("should replace a group with one fresh unscheduled event", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)
		draft := event("", week.Mon, 36, 4)
		draft.Title = "Standup"
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-16"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)

		// when
		fresh, err := s.Unschedule(context.Background(), instances[1].ID)

		// then
		require.NoError(t, err)
		assert.Equal(t, "event-2", fresh.ID)
		assert.True(t, fresh.IsUnscheduled())
		assert.Zero(t, fresh.Duration)
		assert.False(t, fresh.IsRecurring)
		assert.Empty(t, fresh.RecurringGroupID)
		assert.Equal(t, calendar.RepeatWeekly, fresh.RepeatType)
		assert.Equal(t, []calendar.Event{fresh}, s.Events())
		assert.Equal(t, 3, remote.count("delete"))
	})

	t.Run("should clear the schedule of a single event", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("gym", week.Thu, 10, 4))

		got, err := s.Unschedule(context.Background(), "gym")

		require.NoError(t, err)
		assert.Equal(t, "gym", got.ID)
		assert.True(t, got.IsUnscheduled())
		assert.Equal(t, []calendar.Event{got}, s.Unscheduled())
		assert.Equal(t, 1, remote.count("update"))
	})
}

func TestStore_Resize(t *testing.T) {
	tests := []struct {
		name         string
		edge         Edge
		delta        int
		wantSlot     int
		wantDuration int
	}{
		{"should grow the bottom edge", Bottom, 2, 40, 6},
		{"should keep at least one slot", Bottom, -10, 40, 1},
		{"should cap at twelve hours", Bottom, 100, 40, 48},
		{"should move the top edge up", Top, -4, 36, 8},
		{"should move the top edge down", Top, 2, 42, 2},
		{"should not move the top edge above midnight", Top, -60, 0, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, newFakeRemote(), event("e", week.Mon, 40, 4))

			got, err := s.Resize(context.Background(), "e", tt.edge, tt.delta)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSlot, got.TimeSlot)
			assert.Equal(t, tt.wantDuration, got.Duration)
		})
	}

	t.Run("should stop at the end of the day", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), event("e", week.Mon, 90, 4))

		got, err := s.Resize(context.Background(), "e", Bottom, 10)

		require.NoError(t, err)
		assert.Equal(t, 6, got.Duration)
	})

	t.Run("should not contact the remote when nothing changes", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("e", week.Mon, 40, 48))

		_, err := s.Resize(context.Background(), "e", Bottom, 5)

		require.NoError(t, err)
		assert.Zero(t, remote.total())
	})

	t.Run("should reject growing into a neighbour", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("e", week.Mon, 40, 4), event("next", week.Mon, 46, 4))

		_, err := s.Resize(context.Background(), "e", Bottom, 4)

		assert.ErrorIs(t, err, ErrSlotConflict)
		assert.Zero(t, remote.total())
	})

	t.Run("should refuse an unscheduled event", func(t *testing.T) {
		idea := calendar.Event{ID: "idea", Title: "idea", Color: calendar.Blue}
		s, _ := newTestStore(t, newFakeRemote(), idea)

		_, err := s.Resize(context.Background(), "idea", Bottom, 1)

		assert.ErrorIs(t, err, calendar.ErrValidation)
	})
}

func TestStore_Reorder(t *testing.T) {
	remote := newFakeRemote()
	seed := []calendar.Event{
		{ID: "a", Title: "a", Color: calendar.Red},
		{ID: "b", Title: "b", Color: calendar.Red},
		{ID: "c", Title: "c", Color: calendar.Red},
	}
	s, _ := newTestStore(t, remote, seed...)

	require.NoError(t, s.Reorder(context.Background(), "c", "a"))

	assert.Equal(t, []string{"c", "a", "b"}, ids(s.Events()))
	assert.Zero(t, remote.total())
	assert.ErrorIs(t, s.Reorder(context.Background(), "c", "ghost"), calendar.ErrEventNotFound)
}

func TestStore_Views(t *testing.T) {
	atDate := func(id string, weekStart string, day week.Day, timeSlot int) calendar.Event {
		e := event(id, day, timeSlot, 4)
		e.WeekStart = weekStart
		return e
	}
	seed := []calendar.Event{
		atDate("past-today", "2025-06-02", week.Wed, 36),
		atDate("later-today", "2025-06-02", week.Wed, 44),
		atDate("now", "2025-06-02", week.Wed, 40),
		atDate("yesterday", "2025-06-02", week.Tue, 50),
		atDate("friday", "2025-06-02", week.Fri, 8),
		atDate("thursday", "2025-06-02", week.Thu, 60),
		atDate("in-seven-days", "2025-06-09", week.Wed, 0),
		atDate("in-eight-days", "2025-06-09", week.Thu, 0),
		{ID: "idea", Title: "idea", Color: calendar.Red},
	}

	t.Run("should list upcoming events in date and slot order", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), seed...)

		assert.Equal(t, []string{"now", "later-today", "thursday", "friday", "in-seven-days"}, ids(s.Upcoming(10)))
		assert.Equal(t, []string{"now", "later-today", "thursday", "friday", "in-seven-days"}, ids(s.Upcoming(0)))
		assert.Equal(t, []string{"now", "later-today"}, ids(s.Upcoming(2)))
	})

	t.Run("should order a week by day and slot", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), seed...)

		assert.Equal(t,
			[]string{"yesterday", "past-today", "now", "later-today", "thursday", "friday"},
			ids(s.ForWeek("2025-06-02")))
		assert.Equal(t, "2025-06-02", s.CurrentWeek())
		assert.Equal(t, []string{"idea"}, ids(s.Unscheduled()))
	})
}

func TestStore_Load(t *testing.T) {
	t.Run("should replace the collection with the remote one", func(t *testing.T) {
		remote := newFakeRemote(event("remote", week.Mon, 0, 4))
		s, o := newTestStore(t, remote, event("local", week.Tue, 0, 4))

		require.NoError(t, s.Load(context.Background()))

		assert.Equal(t, []string{"remote"}, ids(s.Events()))
		require.Len(t, o.committed, 1)
		assert.Equal(t, "load", o.committed[0].Operation)
	})

	t.Run("should keep the local collection when the remote fails", func(t *testing.T) {
		remote := newFakeRemote(event("remote", week.Mon, 0, 4))
		remote.fail["list"] = errServer
		s, o := newTestStore(t, remote, event("local", week.Tue, 0, 4))

		err := s.Load(context.Background())

		require.ErrorIs(t, err, errServer)
		assert.Equal(t, []string{"local"}, ids(s.Events()))
		require.Len(t, o.rolledBack, 1)
		assert.Equal(t, "load", o.rolledBack[0].Operation)
	})
}

func TestStore_SingleFlight(t *testing.T) {
	// given
	remote := newFakeRemote()
	remote.entered = make(chan struct{})
	remote.gate = make(chan struct{})
	s, _ := newTestStore(t, remote)

	done := make(chan error, 1)
	go func() {
		_, err := s.Add(context.Background(), event("first", week.Mon, 0, 4))
		done <- err
	}()
	<-remote.entered

	// the first mutation is pending-local and visible to readers
	_, visible := s.Get("first")
	assert.True(t, visible)

	// when
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Add(ctx, event("second", week.Tue, 0, 4))

	// then
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(remote.gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first"}, ids(s.Events()))
}

func TestStore_EndOfDay(t *testing.T) {
	t.Run("should clamp an added event at midnight", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)

		// when
		created, err := s.Add(context.Background(), event("late", week.Tue, 90, 20))

		// then
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, 6, created[0].Duration)
		assert.Equal(t, slot.PerDay, created[0].EndSlot())
		assert.Equal(t, 6, remote.events["late"].Duration)
	})

	t.Run("should clamp every instance of a repeating draft", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote())
		draft := event("", week.Tue, 88, 30)
		draft.RepeatType = calendar.RepeatDaily
		draft.RepeatEndDate = "2025-06-04"

		created, err := s.Add(context.Background(), draft)

		require.NoError(t, err)
		require.Len(t, created, 2)
		for _, e := range created {
			assert.Equal(t, 88, e.TimeSlot)
			assert.Equal(t, 8, e.Duration)
		}
	})

	t.Run("should clamp an edit at midnight", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), event("e", week.Wed, 80, 4))

		edited, _ := s.Get("e")
		edited.TimeSlot = 90
		edited.Duration = 40
		result, err := s.Update(context.Background(), edited)

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 6, result[0].Duration)
		stored, _ := s.Get("e")
		assert.Equal(t, slot.PerDay, stored.EndSlot())
	})
}

func TestStore_Collisions(t *testing.T) {
	t.Run("should reject an added event on an occupied interval", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, o := newTestStore(t, remote, event("late", week.Tue, 90, 6))

		// when
		_, err := s.Add(context.Background(), event("overlap", week.Tue, 92, 2))

		// then
		require.ErrorIs(t, err, ErrSlotConflict)
		assert.ErrorIs(t, err, calendar.ErrConflict)
		_, found := s.Get("overlap")
		assert.False(t, found)
		assert.Zero(t, remote.total())
		assert.Empty(t, o.committed)
	})

	t.Run("should accept an event touching its neighbour", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), event("late", week.Tue, 90, 6))

		_, err := s.Add(context.Background(), event("before", week.Tue, 86, 4))

		assert.NoError(t, err)
	})

	t.Run("should reject an edit moving onto another event", func(t *testing.T) {
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote, event("a", week.Mon, 40, 4), event("b", week.Mon, 50, 4))

		edited, _ := s.Get("b")
		edited.TimeSlot = 42
		_, err := s.Update(context.Background(), edited)

		require.ErrorIs(t, err, ErrSlotConflict)
		stored, _ := s.Get("b")
		assert.Equal(t, 50, stored.TimeSlot)
		assert.Zero(t, remote.count("update"))
	})

	t.Run("should not compare an edit with itself", func(t *testing.T) {
		s, _ := newTestStore(t, newFakeRemote(), event("a", week.Mon, 40, 4))

		edited, _ := s.Get("a")
		edited.Duration = 8
		_, err := s.Update(context.Background(), edited)

		assert.NoError(t, err)
	})

	t.Run("should reject a series edit onto another event", func(t *testing.T) {
		// given
		remote := newFakeRemote()
		s, _ := newTestStore(t, remote)
		draft := event("", week.Mon, 36, 4)
		draft.RepeatType = calendar.RepeatWeekly
		draft.RepeatEndDate = "2025-06-16"
		instances, err := s.Add(context.Background(), draft)
		require.NoError(t, err)
		other := event("other", week.Mon, 50, 4)
		other.WeekStart = "2025-06-09"
		_, err = s.Add(context.Background(), other)
		require.NoError(t, err)
		before := s.Events()

		// when
		edited := instances[1]
		edited.TimeSlot = 50
		_, err = s.Update(context.Background(), edited)

		// then
		require.ErrorIs(t, err, ErrSlotConflict)
		assert.Equal(t, before, s.Events())
		assert.Zero(t, remote.count("delete"))
	})
}

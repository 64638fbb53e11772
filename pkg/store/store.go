package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/klokku/weekgrid/internal/event_bus"
	"github.com/klokku/weekgrid/internal/utils"
	"github.com/klokku/weekgrid/pkg/calendar"
	"github.com/klokku/weekgrid/pkg/collision"
	"github.com/klokku/weekgrid/pkg/slot"
	"github.com/klokku/weekgrid/pkg/week"
)

var (
	ErrSlotConflict    = fmt.Errorf("%w: time slot conflict", calendar.ErrConflict)
	ErrEventNotInStore = fmt.Errorf("%w: not in store", calendar.ErrEventNotFound)
)

const (
	DefaultConcurrency   = 8
	DefaultUpcomingLimit = 5
)

// Persistence is the remote API the store reconciles with.
type Persistence interface {
	ListEvents(ctx context.Context) ([]calendar.Event, error)
	CreateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error)
	UpdateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error)
	DeleteEvent(ctx context.Context, id string) (calendar.Event, error)
}

// Store is the in-memory event collection of one session. Reads see the optimistic state;
// every mutation is applied locally first and rolled back when the remote calls fail.
// Mutations run one at a time.
type Store struct {
	remote      Persistence
	bus         *event_bus.EventBus
	clock       utils.Clock
	eventIds    utils.IdGenerator
	groupIds    utils.IdGenerator
	concurrency int

	flight chan struct{}

	mu     sync.RWMutex
	events []calendar.Event
}

type Option func(*Store)

func WithEventBus(bus *event_bus.EventBus) Option {
	return func(s *Store) { s.bus = bus }
}

func WithClock(clock utils.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIdGenerators replaces the generators of event ids and recurring group ids.
func WithIdGenerators(eventIds, groupIds utils.IdGenerator) Option {
	return func(s *Store) {
		s.eventIds = eventIds
		s.groupIds = groupIds
	}
}

// WithConcurrency bounds the remote calls in flight for one batch.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEvents seeds the collection without contacting the remote.
func WithEvents(events []calendar.Event) Option {
	return func(s *Store) { s.events = slices.Clone(events) }
}

func New(remote Persistence, opts ...Option) *Store {
	s := &Store{
		remote:      remote,
		bus:         event_bus.NewEventBus(),
		clock:       utils.SystemClock{},
		eventIds:    utils.UUIDGenerator{Prefix: "event-"},
		groupIds:    utils.UUIDGenerator{Prefix: "recurring-"},
		concurrency: DefaultConcurrency,
		flight:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus the store publishes mutation outcomes on.
func (s *Store) Bus() *event_bus.EventBus {
	return s.bus
}

// Events returns a copy of the whole collection in its current order.
func (s *Store) Events() []calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (calendar.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.events, id)
	if i < 0 {
		return calendar.Event{}, false
	}
	return s.events[i], true
}

// ForWeek returns the scheduled events of one week ordered by day and slot.
func (s *Store) ForWeek(weekStart string) []calendar.Event {
	s.mu.RLock()
	var out []calendar.Event
	for _, e := range s.events {
		if e.IsScheduled() && e.WeekStart == weekStart {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b calendar.Event) int {
		ai, _ := a.Day.Index()
		bi, _ := b.Day.Index()
		return cmp.Or(cmp.Compare(ai, bi), cmp.Compare(a.TimeSlot, b.TimeSlot))
	})
	return out
}

// Unscheduled returns the events waiting to be placed, in list order.
func (s *Store) Unscheduled() []calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []calendar.Event
	for _, e := range s.events {
		if e.IsUnscheduled() {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns up to limit events that have not started yet today or fall within the
// next seven days, ordered by date and slot.
func (s *Store) Upcoming(limit int) []calendar.Event {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, 8)
	currentSlot := slot.FromTime(now.Hour(), now.Minute())

	type dated struct {
		event calendar.Event
		date  time.Time
	}
	var candidates []dated
	for _, e := range s.Events() {
		if !e.IsScheduled() {
			continue
		}
		date, err := e.Date()
		if err != nil {
			continue
		}
		switch {
		case date.Equal(today):
			if e.TimeSlot < currentSlot {
				continue
			}
		case date.After(today) && date.Before(horizon):
		default:
			continue
		}
		candidates = append(candidates, dated{e, date})
	}
	slices.SortStableFunc(candidates, func(a, b dated) int {
		return cmp.Or(a.date.Compare(b.date), cmp.Compare(a.event.TimeSlot, b.event.TimeSlot))
	})

	out := make([]calendar.Event, 0, min(limit, len(candidates)))
	for _, c := range candidates[:min(limit, len(candidates))] {
		out = append(out, c.event)
	}
	return out
}

// CurrentWeek returns the weekStart of the week containing the clock's today.
func (s *Store) CurrentWeek() string {
	return week.Of(s.clock.Now())
}

// Collides reports whether c overlaps an event in the collection.
func (s *Store) Collides(c collision.Candidate) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collision.Collides(c, s.events)
}

func (s *Store) set(events []calendar.Event) {
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
}

func indexOf(events []calendar.Event, id string) int {
	return slices.IndexFunc(events, func(e calendar.Event) bool { return e.ID == id })
}

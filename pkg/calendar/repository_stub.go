package calendar

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrStubFailure = errors.New("stub repository failure")

// RepositoryStub is an in-memory Repository used by service and handler tests. It keeps
// insertion order so GetEvents can return newest first.
type RepositoryStub struct {
	mu            sync.RWMutex
	items         map[string]Event
	order         []string
	inTransaction bool
	// FailStore makes StoreEvent fail for the listed ids.
	FailStore map[string]bool
	// Err, when set, is returned by every operation.
	Err error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items:     make(map[string]Event),
		FailStore: make(map[string]bool),
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	originalItems := make(map[string]Event, len(r.items))
	for k, v := range r.items {
		originalItems[k] = v
	}
	originalOrder := slices.Clone(r.order)
	r.inTransaction = true
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTransaction = false
	if err != nil {
		r.items = originalItems
		r.order = originalOrder
		return err
	}
	return nil
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	if r.FailStore[event.ID] {
		return Event{}, ErrStubFailure
	}
	if _, ok := r.items[event.ID]; ok {
		return Event{}, ErrEventAlreadyExists
	}
	event = event.Normalized()
	r.items[event.ID] = event
	r.order = append(r.order, event.ID)
	return event, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, id string) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	event, ok := r.items[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	events := make([]Event, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		events = append(events, r.items[r.order[i]])
	}
	return events, nil
}

func (r *RepositoryStub) ExistingIds(ctx context.Context, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var existing []string
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	if _, ok := r.items[event.ID]; !ok {
		return Event{}, ErrEventNotFound
	}
	event = event.Normalized()
	r.items[event.ID] = event
	return event, nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	event, ok := r.items[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return event, nil
}

// Len returns the number of stored events.
func (r *RepositoryStub) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

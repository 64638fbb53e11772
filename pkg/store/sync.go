package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/klokku/weekgrid/internal/event_bus"
	"github.com/klokku/weekgrid/pkg/calendar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// remoteCall is one request against the persistence API.
type remoteCall func(ctx context.Context) error

// mutation is the outcome of planning an operation against a snapshot: the collection to
// show while the remote calls are pending and the calls that persist it.
type mutation struct {
	next     []calendar.Event
	remote   remoteCall
	affected []string
}

// planFunc computes a mutation from a private copy of the current collection. Returning
// an error rejects the operation before anything changes.
type planFunc func(current []calendar.Event) (mutation, error)

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.flight <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.flight
}

// transact snapshots the collection, applies the planned mutation locally and reconciles
// it with the remote. On remote failure the snapshot is restored as a whole.
func (s *Store) transact(ctx context.Context, op string, plan planFunc) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.RLock()
	snapshot := slices.Clone(s.events)
	s.mu.RUnlock()

	m, err := plan(slices.Clone(snapshot))
	if err != nil {
		log.Debugf("%s rejected: %v", op, err)
		return err
	}

	s.set(m.next)
	log.Debugf("%s pending-local: %v", op, m.affected)

	if m.remote != nil {
		if err := m.remote(ctx); err != nil {
			s.set(snapshot)
			log.Warnf("%s rolled back: %v", op, err)
			s.publish(ctx, event_bus.StoreRolledBack, event_bus.StoreMutationRolledBack{
				Operation: op,
				EventIds:  m.affected,
				Err:       err,
			})
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Debugf("%s committed: %v", op, m.affected)
	s.publish(ctx, event_bus.StoreCommitted, event_bus.StoreMutationCommitted{
		Operation: op,
		EventIds:  m.affected,
	})
	return nil
}

func (s *Store) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	// Outcomes are reported even when the caller's context is already done.
	if err := s.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}

// all runs the calls concurrently and fails if any of them fails. Calls that already
// succeeded are not undone remotely.
func (s *Store) all(calls ...remoteCall) remoteCall {
	return func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, call := range calls {
			g.Go(func() error { return call(gctx) })
		}
		return g.Wait()
	}
}

// sequence runs the calls one after another and stops at the first failure.
func sequence(calls ...remoteCall) remoteCall {
	return func(ctx context.Context) error {
		for _, call := range calls {
			if err := call(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Store) createCall(e calendar.Event) remoteCall {
	return func(ctx context.Context) error {
		_, err := s.remote.CreateEvent(ctx, e)
		return err
	}
}

func (s *Store) updateCall(e calendar.Event) remoteCall {
	return func(ctx context.Context) error {
		_, err := s.remote.UpdateEvent(ctx, e)
		return err
	}
}

func (s *Store) deleteCall(id string) remoteCall {
	return func(ctx context.Context) error {
		_, err := s.remote.DeleteEvent(ctx, id)
		return err
	}
}

func (s *Store) createAll(events []calendar.Event) remoteCall {
	calls := make([]remoteCall, 0, len(events))
	for _, e := range events {
		calls = append(calls, s.createCall(e))
	}
	return s.all(calls...)
}

func (s *Store) deleteAll(ids []string) remoteCall {
	calls := make([]remoteCall, 0, len(ids))
	for _, id := range ids {
		calls = append(calls, s.deleteCall(id))
	}
	return s.all(calls...)
}

package calendar

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// MigrateResult counts the outcome of a bulk import.
type MigrateResult struct {
	Migrated int
	Skipped  int
	Failed   int
}

func (s *Service) GetEvents(ctx context.Context) ([]Event, error) {
	events, err := s.repo.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *Service) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if err := ValidateRequired(event); err != nil {
		return Event{}, err
	}
	event = event.Normalized()
	if err := Validate(event); err != nil {
		return Event{}, err
	}
	stored, err := s.repo.StoreEvent(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	log.Debugf("created event %s", stored.ID)
	return stored, nil
}

// UpdateEvent merges the patch into the stored event. The id never changes.
func (s *Service) UpdateEvent(ctx context.Context, id string, patch Patch) (Event, error) {
	var updated Event
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		current, err := repo.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		merged := patch.Apply(current)
		merged.ID = id
		if err := Validate(merged); err != nil {
			return err
		}
		updated, err = repo.UpdateEvent(ctx, merged)
		return err
	})
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	log.Debugf("updated event %s", id)
	return updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) (Event, error) {
	deleted, err := s.repo.DeleteEvent(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	log.Debugf("deleted event %s", id)
	return deleted, nil
}

// Migrate imports events whose ids are not stored yet. Existing ids are skipped, never
// overwritten. Every event must carry id, title and color, otherwise nothing is imported.
func (s *Service) Migrate(ctx context.Context, events []Event) (MigrateResult, error) {
	var result MigrateResult
	if len(events) == 0 {
		return result, nil
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if err := ValidateRequired(e); err != nil {
			return result, err
		}
		ids = append(ids, e.ID)
	}

	existingIds, err := s.repo.ExistingIds(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to check existing events: %w", err)
	}
	existing := make(map[string]bool, len(existingIds))
	for _, id := range existingIds {
		existing[id] = true
	}

	for _, e := range events {
		if existing[e.ID] {
			result.Skipped++
			continue
		}
		_, err := s.repo.StoreEvent(ctx, e.Normalized())
		switch {
		case err == nil:
			result.Migrated++
			existing[e.ID] = true
		case errors.Is(err, ErrEventAlreadyExists):
			result.Skipped++
		default:
			log.Warnf("failed to migrate event %s: %v", e.ID, err)
			result.Failed++
		}
	}
	log.Infof("migration finished: %d migrated, %d skipped, %d failed", result.Migrated, result.Skipped, result.Failed)
	return result, nil
}

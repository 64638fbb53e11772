package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/weekgrid/pkg/week"
	log "github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	GetEvents(ctx context.Context) ([]Event, error)
	ExistingIds(ctx context.Context, ids []string) ([]string, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) (Event, error)
}

// PoolProvider hands out the shared connection pool. database.Connector implements it.
type PoolProvider interface {
	Pool(ctx context.Context) (*pgxpool.Pool, error)
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	db PoolProvider
	tx pgx.Tx
}

func NewRepository(db PoolProvider) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the transaction when one is open, the pool otherwise.
func (r *RepositoryImpl) getQueryer(ctx context.Context) (queryer, error) {
	if r.tx != nil {
		return r.tx, nil
	}
	pool, err := r.db.Pool(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get database pool: %w", err)
	}
	return pool, nil
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	pool, err := r.db.Pool(ctx)
	if err != nil {
		return fmt.Errorf("could not get database pool: %w", err)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op when the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const eventColumns = `id, title, description, color, day, time_slot, duration, week_start,
	location, link, notes, attendees, repeat_type, repeat_end_date, is_recurring, recurring_group_id`

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (Event, error) {
	q, err := r.getQueryer(ctx)
	if err != nil {
		return Event{}, err
	}
	query := `INSERT INTO calendar_event (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + eventColumns

	args, err := eventArgs(event)
	if err != nil {
		return Event{}, err
	}
	stored, err := scanEvent(q.QueryRow(ctx, query, append([]any{event.ID}, args...)...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Event{}, ErrEventAlreadyExists
		}
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, id string) (Event, error) {
	q, err := r.getQueryer(ctx)
	if err != nil {
		return Event{}, err
	}
	query := `SELECT ` + eventColumns + ` FROM calendar_event WHERE id = $1`
	event, err := scanEvent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not get event %s: %w", id, err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

// GetEvents returns every event, newest created first.
func (r *RepositoryImpl) GetEvents(ctx context.Context) ([]Event, error) {
	q, err := r.getQueryer(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + eventColumns + ` FROM calendar_event ORDER BY created_at DESC, seq DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return events, nil
}

// ExistingIds returns the subset of ids already stored.
func (r *RepositoryImpl) ExistingIds(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, err := r.getQueryer(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT id FROM calendar_event WHERE id = ANY($1)`, ids)
	if err != nil {
		err := fmt.Errorf("could not query existing ids: %w", err)
		log.Error(err)
		return nil, err
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		err := fmt.Errorf("could not collect existing ids: %w", err)
		log.Error(err)
		return nil, err
	}
	return existing, nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	q, err := r.getQueryer(ctx)
	if err != nil {
		return Event{}, err
	}
	query := `UPDATE calendar_event SET
			title = $2, description = $3, color = $4, day = $5, time_slot = $6, duration = $7,
			week_start = $8, location = $9, link = $10, notes = $11, attendees = $12,
			repeat_type = $13, repeat_end_date = $14, is_recurring = $15, recurring_group_id = $16,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + eventColumns

	args, err := eventArgs(event)
	if err != nil {
		return Event{}, err
	}
	updated, err := scanEvent(q.QueryRow(ctx, query, append([]any{event.ID}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not update event %s: %w", event.ID, err)
		log.Error(err)
		return Event{}, err
	}
	return updated, nil
}

// DeleteEvent removes the event and returns the deleted record.
func (r *RepositoryImpl) DeleteEvent(ctx context.Context, id string) (Event, error) {
	q, err := r.getQueryer(ctx)
	if err != nil {
		return Event{}, err
	}
	query := `DELETE FROM calendar_event WHERE id = $1 RETURNING ` + eventColumns
	deleted, err := scanEvent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not delete event %s: %w", id, err)
		log.Error(err)
		return Event{}, err
	}
	return deleted, nil
}

// eventArgs returns the column values after id, in eventColumns order.
func eventArgs(e Event) ([]any, error) {
	var (
		day          *string
		timeSlot     *int
		duration     *int
		weekStart    *time.Time
		repeatEnd    *time.Time
		recurringGid *string
	)
	if e.Day != "" {
		d := string(e.Day)
		day = &d
		ts := e.TimeSlot
		timeSlot = &ts
	}
	if e.Duration > 0 {
		d := e.Duration
		duration = &d
	}
	if e.WeekStart != "" {
		t, err := week.ParseDate(e.WeekStart)
		if err != nil {
			return nil, newValidationError("weekStart", "must be an ISO date (YYYY-MM-DD)")
		}
		weekStart = &t
	}
	if e.RepeatEndDate != "" {
		t, err := week.ParseDate(e.RepeatEndDate)
		if err != nil {
			return nil, newValidationError("repeatEndDate", "must be an ISO date (YYYY-MM-DD)")
		}
		repeatEnd = &t
	}
	if e.RecurringGroupID != "" {
		g := e.RecurringGroupID
		recurringGid = &g
	}
	repeatType := e.RepeatType
	if repeatType == "" {
		repeatType = RepeatNone
	}
	return []any{
		e.Title, e.Description, string(e.Color), day, timeSlot, duration, weekStart,
		e.Location, e.Link, e.Notes, e.Attendees, string(repeatType), repeatEnd, e.IsRecurring, recurringGid,
	}, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var (
		e            Event
		color        string
		day          *string
		timeSlot     *int32
		duration     *int32
		weekStart    *time.Time
		repeatType   string
		repeatEnd    *time.Time
		recurringGid *string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &color, &day, &timeSlot, &duration, &weekStart,
		&e.Location, &e.Link, &e.Notes, &e.Attendees, &repeatType, &repeatEnd, &e.IsRecurring, &recurringGid,
	)
	if err != nil {
		return Event{}, err
	}
	e.Color = Color(color)
	e.RepeatType = Repeat(repeatType)
	if day != nil {
		e.Day = week.Day(*day)
	}
	if timeSlot != nil {
		e.TimeSlot = int(*timeSlot)
	}
	if duration != nil {
		e.Duration = int(*duration)
	}
	if weekStart != nil {
		e.WeekStart = week.FormatDate(*weekStart)
	}
	if repeatEnd != nil {
		e.RepeatEndDate = week.FormatDate(*repeatEnd)
	}
	if recurringGid != nil {
		e.RecurringGroupID = *recurringGid
	}
	return e, nil
}

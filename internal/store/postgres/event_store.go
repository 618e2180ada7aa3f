package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apurv101/openbet/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const eventCols = `ticker, series_ticker, title, category, status, close_time,
	volume_24h, liquidity, open_interest, created_at, updated_at`

const eventUpsert = `
	INSERT INTO events (
		ticker, series_ticker, title, category, status, close_time,
		volume_24h, liquidity, open_interest
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (ticker) DO UPDATE SET
		series_ticker = EXCLUDED.series_ticker,
		title = EXCLUDED.title,
		category = EXCLUDED.category,
		status = EXCLUDED.status,
		close_time = EXCLUDED.close_time,
		volume_24h = EXCLUDED.volume_24h,
		liquidity = EXCLUDED.liquidity,
		open_interest = EXCLUDED.open_interest,
		updated_at = NOW()`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.Ticker, &e.SeriesTicker, &e.Title, &e.Category, &e.Status,
		&e.CloseTime, &e.Volume24h, &e.Liquidity, &e.OpenInterest,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func scanEventRows(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Upsert inserts or refreshes one event keyed by ticker.
func (s *EventStore) Upsert(ctx context.Context, event domain.Event) error {
	_, err := s.pool.Exec(ctx, eventUpsert,
		event.Ticker, event.SeriesTicker, event.Title, event.Category,
		event.Status, event.CloseTime, event.Volume24h, event.Liquidity,
		event.OpenInterest,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert event %s: %w", event.Ticker, err)
	}
	return nil
}

// UpsertBatch upserts multiple events efficiently using pgx Batch.
func (s *EventStore) UpsertBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(eventUpsert,
			e.Ticker, e.SeriesTicker, e.Title, e.Category, e.Status,
			e.CloseTime, e.Volume24h, e.Liquidity, e.OpenInterest,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert event batch item %d: %w", i, err)
		}
	}
	return nil
}

// GetByTicker returns one event, or domain.ErrNotFound.
func (s *EventStore) GetByTicker(ctx context.Context, ticker string) (domain.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM events WHERE ticker = $1`, ticker)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("postgres: get event %s: %w", ticker, err)
	}
	return e, nil
}

// ListByCategory returns events in a category, most recently updated first.
func (s *EventStore) ListByCategory(ctx context.Context, category string, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE category = $1 ORDER BY updated_at DESC`
	args := []any{category}
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events by category: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan events by category: %w", err)
	}
	return events, nil
}

// ListOpen returns events with open trading status.
func (s *EventStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE status = $1 ORDER BY volume_24h DESC`
	args := []any{domain.TradingStatusOpen}
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open events: %w", err)
	}
	return events, nil
}

// applyLimitOffset appends LIMIT/OFFSET clauses for the ListOpts fields that
// are set.
func applyLimitOffset(query string, args []any, opts domain.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

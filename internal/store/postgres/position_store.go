package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apurv101/openbet/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `id, event_ticker, side, quantity, avg_price,
	opened_at, closed_at, exit_price, realized_pnl`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID, &p.EventTicker, &p.Side, &p.Quantity, &p.AvgPrice,
		&p.OpenedAt, &p.ClosedAt, &p.ExitPrice, &p.RealizedPnL,
	)
	return p, err
}

// Upsert inserts or refreshes a position keyed by id.
func (s *PositionStore) Upsert(ctx context.Context, pos domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, event_ticker, side, quantity, avg_price,
			opened_at, closed_at, exit_price, realized_pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_price = EXCLUDED.avg_price,
			closed_at = EXCLUDED.closed_at,
			exit_price = EXCLUDED.exit_price,
			realized_pnl = EXCLUDED.realized_pnl`
	_, err := s.pool.Exec(ctx, query,
		pos.ID, pos.EventTicker, pos.Side, pos.Quantity, pos.AvgPrice,
		pos.OpenedAt, pos.ClosedAt, pos.ExitPrice, pos.RealizedPnL,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.ID, err)
	}
	return nil
}

// Close marks a position closed at the given exit price.
func (s *PositionStore) Close(ctx context.Context, id string, exitPrice float64, realizedPnL float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions
		 SET closed_at = NOW(), exit_price = $2, realized_pnl = $3
		 WHERE id = $1 AND closed_at IS NULL`,
		id, exitPrice, realizedPnL)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns one position, or domain.ErrNotFound.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// ListOpen returns all open positions.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionCols+` FROM positions WHERE closed_at IS NULL ORDER BY opened_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan open position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open positions rows: %w", err)
	}
	return positions, nil
}

// GetOpenByEventSide returns the open position on one side of an event, or
// domain.ErrNotFound.
func (s *PositionStore) GetOpenByEventSide(ctx context.Context, eventTicker string, side domain.Side) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions
		 WHERE event_ticker = $1 AND side = $2 AND closed_at IS NULL
		 ORDER BY opened_at DESC LIMIT 1`, eventTicker, side)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get open position %s/%s: %w", eventTicker, side, err)
	}
	return p, nil
}

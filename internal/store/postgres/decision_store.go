package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apurv101/openbet/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL. The
// decision log is append-only; there are no update or delete paths.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a new DecisionStore backed by the given pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

const decisionCols = `id, signal_id, decision, note, executed, order_id,
	quantity, price, cost, realized_pnl, decided_at`

func scanDecisionRows(rows pgx.Rows) ([]domain.TradeDecision, error) {
	var decisions []domain.TradeDecision
	for rows.Next() {
		var d domain.TradeDecision
		if err := rows.Scan(
			&d.ID, &d.SignalID, &d.Decision, &d.Note, &d.Executed,
			&d.OrderID, &d.Quantity, &d.Price, &d.Cost, &d.RealizedPnL,
			&d.DecidedAt,
		); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Insert appends one decision.
func (s *DecisionStore) Insert(ctx context.Context, d domain.TradeDecision) error {
	const query = `
		INSERT INTO decisions (
			id, signal_id, decision, note, executed, order_id,
			quantity, price, cost, realized_pnl, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		d.ID, d.SignalID, d.Decision, d.Note, d.Executed, d.OrderID,
		d.Quantity, d.Price, d.Cost, d.RealizedPnL, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", d.ID, err)
	}
	return nil
}

// ListBySignal returns all decisions recorded against one signal.
func (s *DecisionStore) ListBySignal(ctx context.Context, signalID string) ([]domain.TradeDecision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+decisionCols+` FROM decisions WHERE signal_id = $1 ORDER BY decided_at ASC`,
		signalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions by signal: %w", err)
	}
	defer rows.Close()

	decisions, err := scanDecisionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan decisions by signal: %w", err)
	}
	return decisions, nil
}

// List returns decisions with pagination and optional time filtering, most
// recent first.
func (s *DecisionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeDecision, error) {
	query := `SELECT ` + decisionCols + ` FROM decisions WHERE 1=1`
	args := []any{}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND decided_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(" AND decided_at <= $%d", len(args))
	}

	query += " ORDER BY decided_at DESC"
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions: %w", err)
	}
	defer rows.Close()

	decisions, err := scanDecisionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan decisions: %w", err)
	}
	return decisions, nil
}

// Performance aggregates decisions recorded since the given time. Win rate
// is computed over closed decisions only, those carrying a realized PnL.
func (s *DecisionStore) Performance(ctx context.Context, since time.Time) (domain.PerformanceStats, error) {
	const query = `
		SELECT
			COUNT(DISTINCT signal_id),
			COUNT(*) FILTER (WHERE decision = 'approved'),
			COUNT(*) FILTER (WHERE decision = 'rejected'),
			COUNT(*) FILTER (WHERE decision = 'ignored'),
			COUNT(realized_pnl),
			COUNT(*) FILTER (WHERE realized_pnl > 0),
			COALESCE(SUM(realized_pnl), 0)
		FROM decisions
		WHERE decided_at >= $1`

	var stats domain.PerformanceStats
	err := s.pool.QueryRow(ctx, query, since).Scan(
		&stats.Signals, &stats.Approved, &stats.Rejected, &stats.Ignored,
		&stats.Closed, &stats.Wins, &stats.RealizedPnL,
	)
	if err != nil {
		return domain.PerformanceStats{}, fmt.Errorf("postgres: decision performance: %w", err)
	}

	if stats.Closed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Closed)
	}
	return stats, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apurv101/openbet/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalCols = `id, event_ticker, kind, estimate_yes, estimate_no,
	market_yes, market_no, divergence_yes, divergence_no, side, divergence,
	action, quantity, price, expected_profit, volume_24h, liquidity,
	risk_warnings, passed_risk, position_id, verdict_id, created_at`

func scanSignal(row pgx.Row) (domain.DivergenceSignal, error) {
	var sig domain.DivergenceSignal
	err := row.Scan(
		&sig.ID, &sig.EventTicker, &sig.Kind,
		&sig.EstimateYes, &sig.EstimateNo, &sig.MarketYes, &sig.MarketNo,
		&sig.DivergenceYes, &sig.DivergenceNo, &sig.Side, &sig.Divergence,
		&sig.Action, &sig.Quantity, &sig.Price, &sig.ExpectedProfit,
		&sig.Volume24h, &sig.Liquidity, &sig.RiskWarnings, &sig.PassedRisk,
		&sig.PositionID, &sig.VerdictID, &sig.CreatedAt,
	)
	return sig, err
}

func scanSignalRows(rows pgx.Rows) ([]domain.DivergenceSignal, error) {
	var signals []domain.DivergenceSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// Insert persists a signal once a decision is being recorded for it.
func (s *SignalStore) Insert(ctx context.Context, sig domain.DivergenceSignal) error {
	const query = `
		INSERT INTO signals (
			id, event_ticker, kind, estimate_yes, estimate_no,
			market_yes, market_no, divergence_yes, divergence_no,
			side, divergence, action, quantity, price, expected_profit,
			volume_24h, liquidity, risk_warnings, passed_risk,
			position_id, verdict_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)`
	warnings := sig.RiskWarnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := s.pool.Exec(ctx, query,
		sig.ID, sig.EventTicker, sig.Kind, sig.EstimateYes, sig.EstimateNo,
		sig.MarketYes, sig.MarketNo, sig.DivergenceYes, sig.DivergenceNo,
		sig.Side, sig.Divergence, sig.Action, sig.Quantity, sig.Price,
		sig.ExpectedProfit, sig.Volume24h, sig.Liquidity, warnings,
		sig.PassedRisk, sig.PositionID, sig.VerdictID, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// GetByID returns one signal, or domain.ErrNotFound.
func (s *SignalStore) GetByID(ctx context.Context, id string) (domain.DivergenceSignal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalCols+` FROM signals WHERE id = $1`, id)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DivergenceSignal{}, domain.ErrNotFound
		}
		return domain.DivergenceSignal{}, fmt.Errorf("postgres: get signal %s: %w", id, err)
	}
	return sig, nil
}

// ListByKind returns signals of one kind, most recent first.
func (s *SignalStore) ListByKind(ctx context.Context, kind domain.SignalKind, opts domain.ListOpts) ([]domain.DivergenceSignal, error) {
	query := `SELECT ` + signalCols + ` FROM signals WHERE kind = $1`
	args := []any{kind}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals by kind: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan signals by kind: %w", err)
	}
	return signals, nil
}

// ListByEvent returns signals for one event, most recent first.
func (s *SignalStore) ListByEvent(ctx context.Context, eventTicker string, opts domain.ListOpts) ([]domain.DivergenceSignal, error) {
	query := `SELECT ` + signalCols + ` FROM signals WHERE event_ticker = $1 ORDER BY created_at DESC`
	args := []any{eventTicker}
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals by event: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan signals by event: %w", err)
	}
	return signals, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apurv101/openbet/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, verdict_id, event_a_ticker, event_b_ticker,
	min_cost, profit, index_a, index_b, outcome_a, outcome_b,
	price_snapshot, status, detected_at`

func scanOpportunity(row pgx.Row) (domain.ArbitrageOpportunity, error) {
	var (
		o            domain.ArbitrageOpportunity
		snapshotJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.VerdictID, &o.EventATicker, &o.EventBTicker,
		&o.MinCost, &o.Profit, &o.IndexA, &o.IndexB,
		&o.OutcomeA, &o.OutcomeB, &snapshotJSON, &o.Status, &o.DetectedAt,
	)
	if err != nil {
		return domain.ArbitrageOpportunity{}, err
	}
	if snapshotJSON != nil {
		if err := json.Unmarshal(snapshotJSON, &o.PriceSnapshot); err != nil {
			return domain.ArbitrageOpportunity{}, fmt.Errorf("unmarshal price snapshot: %w", err)
		}
	}
	return o, nil
}

// Insert stores a newly detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	snapshotJSON, err := json.Marshal(opp.PriceSnapshot)
	if err != nil {
		return fmt.Errorf("postgres: marshal price snapshot: %w", err)
	}

	const query = `
		INSERT INTO opportunities (
			id, verdict_id, event_a_ticker, event_b_ticker,
			min_cost, profit, index_a, index_b, outcome_a, outcome_b,
			price_snapshot, status, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = s.pool.Exec(ctx, query,
		opp.ID, opp.VerdictID, opp.EventATicker, opp.EventBTicker,
		opp.MinCost, opp.Profit, opp.IndexA, opp.IndexB,
		opp.OutcomeA, opp.OutcomeB, snapshotJSON, opp.Status, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// GetByID returns one opportunity, or domain.ErrNotFound.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.ArbitrageOpportunity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+opportunityCols+` FROM opportunities WHERE id = $1`, id)
	o, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArbitrageOpportunity{}, domain.ErrNotFound
		}
		return domain.ArbitrageOpportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	return o, nil
}

// UpdateStatus advances the review lifecycle of an opportunity.
func (s *OpportunityStore) UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("postgres: update opportunity %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns opportunities matching the filter, most profitable first.
func (s *OpportunityStore) List(ctx context.Context, filter domain.OpportunityFilter, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.MinProfit > 0 {
		args = append(args, filter.MinProfit)
		query += fmt.Sprintf(" AND profit >= $%d", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND detected_at >= $%d", len(args))
	}

	query += " ORDER BY profit DESC, detected_at DESC"
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities rows: %w", err)
	}
	return opps, nil
}

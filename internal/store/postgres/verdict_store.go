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

// VerdictStore implements domain.VerdictStore using PostgreSQL. Full and
// screening verdicts share the verdicts table, discriminated by the mode
// column.
type VerdictStore struct {
	pool *pgxpool.Pool
}

// NewVerdictStore creates a new VerdictStore backed by the given pool.
func NewVerdictStore(pool *pgxpool.Pool) *VerdictStore {
	return &VerdictStore{pool: pool}
}

const verdictCols = `id, pair_key, mode, dependency_score, dependent, kind,
	constraints, round1, round2, convergence_mean, convergence_max,
	provider_count, verified, verified_note, created_at`

func scanVerdict(row pgx.Row) (domain.Verdict, error) {
	var (
		v               domain.Verdict
		constraintsJSON []byte
		round1JSON      []byte
		round2JSON      []byte
	)
	err := row.Scan(
		&v.ID, &v.PairKey, &v.Mode, &v.DependencyScore, &v.Dependent,
		&v.Kind, &constraintsJSON, &round1JSON, &round2JSON,
		&v.Convergence.MeanScoreShift, &v.Convergence.MaxScoreShift,
		&v.ProviderCount, &v.Verified, &v.VerifiedNote, &v.CreatedAt,
	)
	if err != nil {
		return domain.Verdict{}, err
	}

	if constraintsJSON != nil {
		if err := json.Unmarshal(constraintsJSON, &v.Constraints); err != nil {
			return domain.Verdict{}, fmt.Errorf("unmarshal constraints: %w", err)
		}
	}
	if round1JSON != nil {
		if err := json.Unmarshal(round1JSON, &v.Round1); err != nil {
			return domain.Verdict{}, fmt.Errorf("unmarshal round1: %w", err)
		}
	}
	if round2JSON != nil {
		if err := json.Unmarshal(round2JSON, &v.Round2); err != nil {
			return domain.Verdict{}, fmt.Errorf("unmarshal round2: %w", err)
		}
	}
	return v, nil
}

// Insert appends a full verdict. Verdicts are never updated in place.
func (s *VerdictStore) Insert(ctx context.Context, v domain.Verdict) error {
	constraintsJSON, err := json.Marshal(v.Constraints)
	if err != nil {
		return fmt.Errorf("postgres: marshal verdict constraints: %w", err)
	}
	round1JSON, err := json.Marshal(v.Round1)
	if err != nil {
		return fmt.Errorf("postgres: marshal verdict round1: %w", err)
	}
	round2JSON, err := json.Marshal(v.Round2)
	if err != nil {
		return fmt.Errorf("postgres: marshal verdict round2: %w", err)
	}

	const query = `
		INSERT INTO verdicts (
			id, pair_key, mode, dependency_score, dependent, kind,
			constraints, round1, round2, convergence_mean, convergence_max,
			provider_count, verified, verified_note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = s.pool.Exec(ctx, query,
		v.ID, v.PairKey, v.Mode, v.DependencyScore, v.Dependent, v.Kind,
		constraintsJSON, round1JSON, round2JSON,
		v.Convergence.MeanScoreShift, v.Convergence.MaxScoreShift,
		v.ProviderCount, v.Verified, v.VerifiedNote, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert verdict %s: %w", v.ID, err)
	}
	return nil
}

// InsertScreening appends a screening verdict.
func (s *VerdictStore) InsertScreening(ctx context.Context, v domain.ScreeningVerdict) error {
	const query = `
		INSERT INTO verdicts (
			id, pair_key, mode, dependency_score, dependent,
			provider, rationale, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		v.ID, v.PairKey, v.Mode(), v.DependencyScore, v.Dependent,
		v.Provider, v.Rationale, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert screening verdict %s: %w", v.ID, err)
	}
	return nil
}

// GetByID returns one full verdict, or domain.ErrNotFound.
func (s *VerdictStore) GetByID(ctx context.Context, id string) (domain.Verdict, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+verdictCols+` FROM verdicts WHERE id = $1`, id)
	v, err := scanVerdict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Verdict{}, domain.ErrNotFound
		}
		return domain.Verdict{}, fmt.Errorf("postgres: get verdict %s: %w", id, err)
	}
	return v, nil
}

// LatestByPair returns the most recent verdict for a pair in the given mode,
// or domain.ErrNotFound.
func (s *VerdictStore) LatestByPair(ctx context.Context, pairKey string, mode domain.AnalysisMode) (domain.Verdict, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+verdictCols+` FROM verdicts
		 WHERE pair_key = $1 AND mode = $2
		 ORDER BY created_at DESC LIMIT 1`, pairKey, mode)
	v, err := scanVerdict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Verdict{}, domain.ErrNotFound
		}
		return domain.Verdict{}, fmt.Errorf("postgres: latest verdict for %s: %w", pairKey, err)
	}
	return v, nil
}

// LatestScreeningByPair returns the most recent screening verdict for a
// pair, or domain.ErrNotFound.
func (s *VerdictStore) LatestScreeningByPair(ctx context.Context, pairKey string) (domain.ScreeningVerdict, error) {
	var v domain.ScreeningVerdict
	err := s.pool.QueryRow(ctx,
		`SELECT id, pair_key, dependency_score, dependent, provider, rationale, created_at
		 FROM verdicts
		 WHERE pair_key = $1 AND mode = $2
		 ORDER BY created_at DESC LIMIT 1`, pairKey, domain.ModeScreening).
		Scan(&v.ID, &v.PairKey, &v.DependencyScore, &v.Dependent,
			&v.Provider, &v.Rationale, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScreeningVerdict{}, domain.ErrNotFound
		}
		return domain.ScreeningVerdict{}, fmt.Errorf("postgres: latest screening for %s: %w", pairKey, err)
	}
	return v, nil
}

// List returns full verdicts matching the filter, most recent first.
func (s *VerdictStore) List(ctx context.Context, filter domain.VerdictFilter, opts domain.ListOpts) ([]domain.Verdict, error) {
	query := `SELECT ` + verdictCols + ` FROM verdicts WHERE 1=1`
	args := []any{}

	if filter.Mode != "" {
		args = append(args, filter.Mode)
		query += fmt.Sprintf(" AND mode = $%d", len(args))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += fmt.Sprintf(" AND verified = $%d", len(args))
	}
	if filter.MinScore > 0 {
		args = append(args, filter.MinScore)
		query += fmt.Sprintf(" AND dependency_score >= $%d", len(args))
	}
	if filter.PairKey != "" {
		args = append(args, filter.PairKey)
		query += fmt.Sprintf(" AND pair_key = $%d", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	query, args = applyLimitOffset(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []domain.Verdict
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan verdict: %w", err)
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list verdicts rows: %w", err)
	}
	return verdicts, nil
}

// MarkVerified attaches human verification to a verdict.
func (s *VerdictStore) MarkVerified(ctx context.Context, id string, note string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE verdicts SET verified = TRUE, verified_note = $2 WHERE id = $1`,
		id, note)
	if err != nil {
		return fmt.Errorf("postgres: mark verdict %s verified: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

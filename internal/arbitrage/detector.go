package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/solver"
)

const (
	// profitTolerance guards the min-cost < 1 test against float noise.
	profitTolerance = 1e-6

	defaultPriceSumTolerance = 0.01
	defaultMinConfidence     = 0.5
	defaultSolveTimeout      = 5 * time.Second
)

// Config holds detector tunables.
type Config struct {
	// PriceSumTolerance is the allowed deviation of an outcome set's price
	// sum from 1 before the snapshot is rejected as malformed.
	PriceSumTolerance float64
	// MinConstraintConfidence drops estimator constraints below this
	// confidence before compilation.
	MinConstraintConfidence float64
	// SolveTimeout bounds a single detection attempt.
	SolveTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PriceSumTolerance <= 0 {
		c.PriceSumTolerance = defaultPriceSumTolerance
	}
	if c.MinConstraintConfidence <= 0 {
		c.MinConstraintConfidence = defaultMinConfidence
	}
	if c.SolveTimeout <= 0 {
		c.SolveTimeout = defaultSolveTimeout
	}
	return c
}

// Detector turns a verified verdict plus two live outcome sets into an
// arbitrage opportunity, when one exists.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "arb_detector")),
	}
}

// Detect compiles the verdict's constraints against the two outcome sets,
// solves for the minimum-cost covering portfolio, and returns an opportunity
// when that cost is below 1. A nil result with nil error is the normal
// negative outcome (no arbitrage). Errors:
//
//   - domain.ErrInvalidPrice: an outcome set's prices do not sum to ~1
//   - domain.ErrSolverInfeasible: the constraint set is contradictory
//   - domain.ErrSolverTimeout: this attempt exceeded the solve timeout
func (d *Detector) Detect(ctx context.Context, setA, setB domain.OutcomeSet, verdict domain.Verdict) (*domain.ArbitrageOpportunity, error) {
	if err := validatePrices(setA, d.cfg.PriceSumTolerance); err != nil {
		return nil, err
	}
	if err := validatePrices(setB, d.cfg.PriceSumTolerance); err != nil {
		return nil, err
	}

	links, dropped := ResolveLinks(setA, setB, verdict.Constraints, d.cfg.MinConstraintConfidence)
	if dropped > 0 {
		d.logger.Debug("constraints dropped before compilation",
			slog.String("pair", verdict.PairKey),
			slog.Int("dropped", dropped),
			slog.Int("kept", len(links)),
		)
	}

	problem := Compile(setA, setB, links)

	solveCtx, cancel := context.WithTimeout(ctx, d.cfg.SolveTimeout)
	defer cancel()
	sol, err := solver.Solve(solveCtx, problem)
	if err != nil {
		return nil, err
	}

	idxA, idxB, err := portfolioIndices(sol, len(setA.Outcomes), len(setB.Outcomes))
	if err != nil {
		// The structural constraints force exactly one outcome per event, so
		// anything else is a solver-contract violation, not a market result.
		return nil, err
	}

	if sol.Objective >= 1-profitTolerance {
		return nil, nil
	}

	profit := 1 - sol.Objective
	if profit < 0 {
		profit = 0
	}
	opp := &domain.ArbitrageOpportunity{
		ID:            uuid.New().String(),
		VerdictID:     verdict.ID,
		EventATicker:  setA.EventTicker,
		EventBTicker:  setB.EventTicker,
		MinCost:       sol.Objective,
		Profit:        profit,
		IndexA:        idxA,
		IndexB:        idxB,
		OutcomeA:      setA.Outcomes[idxA].Ticker,
		OutcomeB:      setB.Outcomes[idxB].Ticker,
		PriceSnapshot: snapshotPrices(setA, setB),
		Status:        domain.OpportunityDetected,
		DetectedAt:    time.Now().UTC(),
	}
	d.logger.Info("arbitrage detected",
		slog.String("pair", verdict.PairKey),
		slog.Float64("min_cost", opp.MinCost),
		slog.Float64("profit", opp.Profit),
		slog.String("outcome_a", opp.OutcomeA),
		slog.String("outcome_b", opp.OutcomeB),
	)
	return opp, nil
}

// validatePrices rejects outcome sets whose prices do not sum to ~1; a
// malformed sum indicates a stale or partial snapshot.
func validatePrices(set domain.OutcomeSet, tolerance float64) error {
	if len(set.Outcomes) < 2 {
		return fmt.Errorf("%w: event %s has %d outcomes", domain.ErrInvalidPrice, set.EventTicker, len(set.Outcomes))
	}
	for _, o := range set.Outcomes {
		if o.Price <= 0 || o.Price >= 1 {
			return fmt.Errorf("%w: event %s outcome %s price %.4f outside (0,1)", domain.ErrInvalidPrice, set.EventTicker, o.Ticker, o.Price)
		}
	}
	if sum := set.PriceSum(); math.Abs(sum-1) > tolerance {
		return fmt.Errorf("%w: event %s prices sum to %.4f", domain.ErrInvalidPrice, set.EventTicker, sum)
	}
	return nil
}

// portfolioIndices extracts the single chosen outcome per event from the
// solution and errors when the solver returned anything else.
func portfolioIndices(sol solver.Solution, nA, nB int) (int, int, error) {
	idxA, idxB := -1, -1
	countA, countB := 0, 0
	for i, v := range sol.Values {
		if v != 1 {
			continue
		}
		if i < nA {
			idxA = i
			countA++
		} else {
			idxB = i - nA
			countB++
		}
	}
	if countA != 1 || countB != 1 {
		return 0, 0, fmt.Errorf("arbitrage: solver returned %d/%d chosen outcomes, want exactly 1 per event", countA, countB)
	}
	return idxA, idxB, nil
}

func snapshotPrices(setA, setB domain.OutcomeSet) map[string]float64 {
	snap := make(map[string]float64, len(setA.Outcomes)+len(setB.Outcomes))
	for _, o := range setA.Outcomes {
		snap[o.Ticker] = o.Price
	}
	for _, o := range setB.Outcomes {
		snap[o.Ticker] = o.Price
	}
	return snap
}

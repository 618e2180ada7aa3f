// Package consensus runs the two-round estimator debate that decides whether
// a pair of events is logically dependent, and aggregates the surviving
// judgments into a verdict.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/estimator"
)

// Config tunes the engine.
type Config struct {
	// ProviderTimeout bounds one provider call in one round. Expiry drops
	// only that provider's contribution.
	ProviderTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 90 * time.Second
	}
	return c
}

// Engine evaluates event pairs with a panel of estimators. It holds no state
// between evaluations; different pairs may be evaluated concurrently.
type Engine struct {
	cfg        Config
	estimators []estimator.Estimator
	cache      domain.VerdictCache
	logger     *slog.Logger
}

// NewEngine builds an engine over the estimator panel. cache may be nil to
// disable verdict reuse.
func NewEngine(cfg Config, estimators []estimator.Estimator, cache domain.VerdictCache, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		estimators: estimators,
		cache:      cache,
		logger:     logger.With(slog.String("component", "consensus")),
	}
}

// Evaluate runs the full two-round analysis for a pair. With force false, a
// cached verdict inside its freshness window is returned instead of
// re-running the panel. Individual provider failures are logged and dropped;
// only total provider exhaustion fails the evaluation, with
// ErrInsufficientConsensus.
func (e *Engine) Evaluate(ctx context.Context, pair domain.EventPair, force bool) (domain.Verdict, error) {
	pairKey := pair.Key()

	if !force && e.cache != nil {
		cached, err := e.cache.Get(ctx, pairKey)
		switch {
		case err == nil:
			cached.FromCache = true
			e.logger.Debug("verdict served from cache", slog.String("pair", pairKey))
			return cached, nil
		case !errors.Is(err, domain.ErrNotFound):
			e.logger.Warn("verdict cache read failed",
				slog.String("pair", pairKey),
				slog.String("error", err.Error()),
			)
		}
	}

	if len(e.estimators) == 0 {
		return domain.Verdict{}, fmt.Errorf("consensus: %s: no estimators configured: %w", pairKey, domain.ErrInsufficientConsensus)
	}

	// Round 1: independent judgments, one concurrent call per estimator.
	round1 := e.runRound(ctx, e.estimators, func(estimator.Estimator) string {
		return buildRound1Prompt(pair)
	})
	e.logger.Info("round 1 complete",
		slog.String("pair", pairKey),
		slog.Int("providers", len(e.estimators)),
		slog.Int("survivors", len(round1)),
	)
	if len(round1) == 0 {
		return domain.Verdict{}, fmt.Errorf("consensus: %s: all providers failed round 1: %w", pairKey, domain.ErrInsufficientConsensus)
	}

	// Round 2: each round-1 survivor revises with anonymized peer context.
	// The round starts only after every round-1 outcome is known.
	survivors := make([]estimator.Estimator, 0, len(round1))
	names := make([]string, 0, len(round1))
	for _, est := range e.estimators {
		if _, ok := round1[est.Name()]; ok {
			survivors = append(survivors, est)
			names = append(names, est.Name())
		}
	}
	labels := anonymizeLabels(pairKey, names)

	round2 := e.runRound(ctx, survivors, func(est estimator.Estimator) string {
		own := round1[est.Name()]
		var peers []peer
		for _, name := range names {
			if name == est.Name() {
				continue
			}
			peers = append(peers, peer{Label: labels[name], Judgment: round1[name]})
		}
		return buildRound2Prompt(pair, own, peers)
	})
	e.logger.Info("round 2 complete",
		slog.String("pair", pairKey),
		slog.Int("providers", len(survivors)),
		slog.Int("survivors", len(round2)),
	)
	if len(round2) == 0 {
		return domain.Verdict{}, fmt.Errorf("consensus: %s: all providers failed round 2: %w", pairKey, domain.ErrInsufficientConsensus)
	}

	score := aggregateScore(round2)
	verdict := domain.Verdict{
		ID:              uuid.New().String(),
		PairKey:         pairKey,
		Mode:            domain.ModeFull,
		DependencyScore: score,
		Dependent:       score >= domain.DependenceThreshold,
		Kind:            majorityKind(round2),
		Constraints:     mergeConstraints(round2, names),
		Round1:          round1,
		Round2:          round2,
		Convergence:     convergence(round1, round2),
		ProviderCount:   len(round2),
		CreatedAt:       time.Now().UTC(),
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, verdict); err != nil {
			e.logger.Warn("verdict cache write failed",
				slog.String("pair", pairKey),
				slog.String("error", err.Error()),
			)
		}
	}

	e.logger.Info("verdict reached",
		slog.String("pair", pairKey),
		slog.String("verdict_id", verdict.ID),
		slog.Float64("score", verdict.DependencyScore),
		slog.Bool("dependent", verdict.Dependent),
		slog.Int("constraints", len(verdict.Constraints)),
		slog.Float64("mean_shift", verdict.Convergence.MeanScoreShift),
	)
	return verdict, nil
}

// runRound fans one prompt out per estimator and joins. Each provider call
// gets its own timeout; a failed or expired call drops that provider from
// the round without affecting the others.
func (e *Engine) runRound(ctx context.Context, panel []estimator.Estimator, promptFor func(estimator.Estimator) string) map[string]domain.Judgment {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]domain.Judgment, len(panel))
	)
	for _, est := range panel {
		wg.Add(1)
		go func(est estimator.Estimator) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
			defer cancel()

			j, err := est.Analyze(callCtx, promptFor(est))
			if err != nil {
				e.logger.Warn("provider dropped from round",
					slog.String("provider", est.Name()),
					slog.String("error", err.Error()),
				)
				return
			}
			mu.Lock()
			results[est.Name()] = j
			mu.Unlock()
		}(est)
	}
	wg.Wait()
	return results
}

package consensus

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apurv101/openbet/internal/domain"
)

// Screen runs the cheap single-provider, single-round, titles-only triage of
// a pair. A failing provider yields a zero-score verdict with the failure in
// its rationale rather than an error, so large screening batches degrade
// instead of aborting.
func (e *Engine) Screen(ctx context.Context, pair domain.EventPair) domain.ScreeningVerdict {
	verdict := domain.ScreeningVerdict{
		ID:        uuid.New().String(),
		PairKey:   pair.Key(),
		CreatedAt: time.Now().UTC(),
	}

	if len(e.estimators) == 0 {
		verdict.Rationale = "screening failed: no estimators configured"
		return verdict
	}
	est := e.estimators[0]
	verdict.Provider = est.Name()

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	j, err := est.Analyze(callCtx, buildScreeningPrompt(pair))
	if err != nil {
		e.logger.Warn("screening failed",
			slog.String("pair", verdict.PairKey),
			slog.String("provider", est.Name()),
			slog.String("error", err.Error()),
		)
		verdict.Rationale = "screening failed: " + err.Error()
		return verdict
	}

	verdict.DependencyScore = j.DependencyScore
	verdict.Dependent = j.Dependent
	verdict.Rationale = j.Rationale
	return verdict
}

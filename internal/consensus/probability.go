package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/estimator"
)

// ProbabilityEstimate is the panel's aggregated outcome confidence for one
// binary event. Yes and No are means over the surviving providers and are
// not forced to sum to one.
type ProbabilityEstimate struct {
	Yes           float64
	No            float64
	ProviderCount int
}

// EstimateOutcome asks every provider capable of outcome estimation for its
// yes/no confidence on the event and averages the survivors. Provider
// failures are logged and dropped; total exhaustion fails with
// ErrInsufficientConsensus.
func (e *Engine) EstimateOutcome(ctx context.Context, event domain.Event) (ProbabilityEstimate, error) {
	panel := make([]estimator.ProbabilityEstimator, 0, len(e.estimators))
	for _, est := range e.estimators {
		if pe, ok := est.(estimator.ProbabilityEstimator); ok {
			panel = append(panel, pe)
		}
	}
	if len(panel) == 0 {
		return ProbabilityEstimate{}, fmt.Errorf("consensus: %s: no outcome-capable estimators: %w", event.Ticker, domain.ErrInsufficientConsensus)
	}

	prompt := buildProbabilityPrompt(event)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []estimator.Probability
	)
	for _, est := range panel {
		wg.Add(1)
		go func(est estimator.ProbabilityEstimator) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
			defer cancel()

			p, err := est.EstimateOutcome(callCtx, prompt)
			if err != nil {
				e.logger.Warn("provider dropped from outcome estimate",
					slog.String("event", event.Ticker),
					slog.String("provider", est.Name()),
					slog.String("error", err.Error()),
				)
				return
			}
			mu.Lock()
			results = append(results, p)
			mu.Unlock()
		}(est)
	}
	wg.Wait()

	if len(results) == 0 {
		return ProbabilityEstimate{}, fmt.Errorf("consensus: %s: all providers failed outcome estimate: %w", event.Ticker, domain.ErrInsufficientConsensus)
	}

	var yes, no float64
	for _, p := range results {
		yes += p.Yes
		no += p.No
	}
	est := ProbabilityEstimate{
		Yes:           yes / float64(len(results)),
		No:            no / float64(len(results)),
		ProviderCount: len(results),
	}

	e.logger.Info("outcome estimate reached",
		slog.String("event", event.Ticker),
		slog.Float64("yes", est.Yes),
		slog.Float64("no", est.No),
		slog.Int("providers", est.ProviderCount),
	)
	return est, nil
}

// buildProbabilityPrompt asks for bare outcome confidences on one event.
func buildProbabilityPrompt(event domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MARKET:\n  Ticker: %s\n  Title: %s\n", event.Ticker, event.Title)
	if event.Category != "" {
		fmt.Fprintf(&b, "  Category: %s\n", event.Category)
	}
	if event.Status != "" {
		fmt.Fprintf(&b, "  Status: %s\n", event.Status)
	}
	if event.CloseTime != nil {
		fmt.Fprintf(&b, "  Closes: %s\n", event.CloseTime.UTC().Format("2006-01-02 15:04 MST"))
	}
	if event.Volume24h > 0 {
		fmt.Fprintf(&b, "  24h volume: %.0f\n", event.Volume24h)
	}

	return fmt.Sprintf(`You are an expert betting analyst. Analyze the following prediction market and provide confidence scores for YES and NO outcomes.

%s
Based on the above information, provide:
1. Your confidence score for YES (0.0 to 1.0)
2. Your confidence score for NO (0.0 to 1.0)
3. Your reasoning for these confidence scores

Consider:
- Market category and what resolution would require
- Time remaining until market close
- Base rates for events of this kind

Respond in JSON format:
{
    "yes_confidence": <float between 0 and 1>,
    "no_confidence": <float between 0 and 1>,
    "reasoning": "<your detailed reasoning>"
}
`, b.String())
}

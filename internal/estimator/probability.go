package estimator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apurv101/openbet/internal/domain"
)

// Probability is one provider's outcome-confidence estimate for a single
// binary event.
type Probability struct {
	Provider  string
	Yes       float64
	No        float64
	Rationale string
}

// ProbabilityEstimator is implemented by providers that can also return bare
// outcome confidences instead of a dependency judgment.
type ProbabilityEstimator interface {
	Name() string
	EstimateOutcome(ctx context.Context, prompt string) (Probability, error)
}

type wireProbability struct {
	YesConfidence float64 `json:"yes_confidence"`
	NoConfidence  float64 `json:"no_confidence"`
	Reasoning     string  `json:"reasoning"`
}

// ParseProbability extracts an outcome-confidence estimate from a provider
// response. A missing no_confidence is derived as the yes complement.
func ParseProbability(provider, raw string) (Probability, error) {
	payload := stripFences(raw)

	var wire wireProbability
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Probability{}, fmt.Errorf("estimator %s: %w: parse response: %v", provider, domain.ErrProviderFailure, err)
	}
	if wire.YesConfidence < 0 || wire.YesConfidence > 1 {
		return Probability{}, fmt.Errorf("estimator %s: %w: yes confidence %.3f outside [0,1]", provider, domain.ErrProviderFailure, wire.YesConfidence)
	}
	if wire.NoConfidence < 0 || wire.NoConfidence > 1 {
		return Probability{}, fmt.Errorf("estimator %s: %w: no confidence %.3f outside [0,1]", provider, domain.ErrProviderFailure, wire.NoConfidence)
	}
	if wire.NoConfidence == 0 {
		wire.NoConfidence = 1 - wire.YesConfidence
	}

	return Probability{
		Provider:  provider,
		Yes:       wire.YesConfidence,
		No:        wire.NoConfidence,
		Rationale: wire.Reasoning,
	}, nil
}

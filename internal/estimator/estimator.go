// Package estimator adapts LLM providers to a common analysis interface.
// Each provider receives a prompt, returns free text, and the adapter parses
// the structured judgment out of it. Providers are interchangeable at the
// consensus boundary; anything satisfying Estimator can participate.
package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apurv101/openbet/internal/domain"
)

// Estimator is one LLM provider able to analyze a prompt into a judgment.
type Estimator interface {
	Name() string
	Analyze(ctx context.Context, prompt string) (domain.Judgment, error)
}

// Config configures one provider instance.
type Config struct {
	// Provider selects the adapter: openai, anthropic, grok, gemini.
	Provider string
	// Name labels this instance in verdicts and logs; defaults to Provider.
	Name string
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	MaxTokens int
	// RequestsPerMinute paces calls to the provider. Zero means the default.
	RequestsPerMinute float64
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = c.Provider
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 20
	}
	return c
}

// systemPrompt frames every analysis call.
const systemPrompt = "You are an expert in prediction markets and logical reasoning. Always respond with the requested JSON object and nothing else."

type wireConstraint struct {
	Kind             string  `json:"constraint_type"`
	Description      string  `json:"description"`
	FormalExpression string  `json:"formal_expression"`
	Confidence       float64 `json:"confidence"`
}

type wireJudgment struct {
	DependencyScore float64          `json:"dependency_score"`
	IsDependent     bool             `json:"is_dependent"`
	DependencyType  string           `json:"dependency_type"`
	Constraints     []wireConstraint `json:"constraints"`
	Reasoning       string           `json:"reasoning"`
}

// ParseJudgment extracts the structured judgment from a provider response.
// Models frequently wrap JSON in markdown fences, so those are stripped
// first. Parse and validation failures wrap ErrProviderFailure, which the
// consensus engine treats as "drop this provider for the round".
func ParseJudgment(provider, raw string) (domain.Judgment, error) {
	payload := stripFences(raw)

	var wire wireJudgment
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return domain.Judgment{}, fmt.Errorf("estimator %s: %w: parse response: %v", provider, domain.ErrProviderFailure, err)
	}
	if wire.DependencyScore < 0 || wire.DependencyScore > 1 {
		return domain.Judgment{}, fmt.Errorf("estimator %s: %w: dependency score %.3f outside [0,1]", provider, domain.ErrProviderFailure, wire.DependencyScore)
	}

	constraints := make([]domain.Constraint, 0, len(wire.Constraints))
	for _, c := range wire.Constraints {
		conf := c.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		constraints = append(constraints, domain.Constraint{
			Kind:             domain.ConstraintKind(c.Kind),
			Description:      c.Description,
			FormalExpression: c.FormalExpression,
			Confidence:       conf,
		})
	}

	return domain.Judgment{
		Provider:        provider,
		DependencyScore: wire.DependencyScore,
		Dependent:       wire.IsDependent,
		Kind:            dominantKind(constraints),
		Constraints:     constraints,
		Rationale:       wire.Reasoning,
	}, nil
}

// dominantKind returns the kind of the highest-confidence known constraint,
// which stands in as the provider's vote for the pair's relation kind.
func dominantKind(constraints []domain.Constraint) domain.ConstraintKind {
	var kind domain.ConstraintKind
	best := -1.0
	for _, c := range constraints {
		if !domain.KnownConstraintKind(c.Kind) {
			continue
		}
		if c.Confidence > best {
			best = c.Confidence
			kind = c.Kind
		}
	}
	return kind
}

// stripFences removes a surrounding markdown code fence, preferring an
// explicit ```json block. Text outside the fence is discarded.
func stripFences(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(s)
}

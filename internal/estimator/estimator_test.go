package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

const sampleResponse = `{
	"dependency_score": 0.85,
	"is_dependent": true,
	"dependency_type": "causal",
	"constraints": [
		{
			"constraint_type": "implication",
			"description": "B winning implies A winning",
			"formal_expression": "B-YES => A-YES",
			"confidence": 0.9
		},
		{
			"constraint_type": "mutual_exclusion",
			"description": "A and C cannot both happen",
			"formal_expression": "A ∧ C = FALSE",
			"confidence": 0.6
		}
	],
	"reasoning": "The second event is a strict subset of the first."
}`

func TestParseJudgment(t *testing.T) {
	j, err := ParseJudgment("openai", sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, "openai", j.Provider)
	assert.Equal(t, 0.85, j.DependencyScore)
	assert.True(t, j.Dependent)
	assert.Equal(t, domain.ConstraintImplication, j.Kind)
	require.Len(t, j.Constraints, 2)
	assert.Equal(t, "B-YES => A-YES", j.Constraints[0].FormalExpression)
	assert.Equal(t, "The second event is a strict subset of the first.", j.Rationale)
}

func TestParseJudgmentStripsMarkdownFences(t *testing.T) {
	fenced := "Here is my analysis:\n```json\n" + sampleResponse + "\n```\nLet me know if you need more."
	j, err := ParseJudgment("claude", fenced)
	require.NoError(t, err)
	assert.Equal(t, 0.85, j.DependencyScore)

	bare := "```\n" + sampleResponse + "\n```"
	j, err = ParseJudgment("claude", bare)
	require.NoError(t, err)
	assert.Equal(t, 0.85, j.DependencyScore)
}

func TestParseJudgmentFailures(t *testing.T) {
	_, err := ParseJudgment("openai", "I cannot analyze this market.")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)

	_, err = ParseJudgment("openai", `{"dependency_score": 1.4, "is_dependent": true}`)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestParseJudgmentClampsConstraintConfidence(t *testing.T) {
	raw := `{
		"dependency_score": 0.6,
		"is_dependent": true,
		"constraints": [
			{"constraint_type": "implication", "description": "x", "confidence": 1.7},
			{"constraint_type": "conjunction", "description": "y", "confidence": -0.2}
		],
		"reasoning": "r"
	}`
	j, err := ParseJudgment("grok", raw)
	require.NoError(t, err)
	require.Len(t, j.Constraints, 2)
	assert.Equal(t, 1.0, j.Constraints[0].Confidence)
	assert.Equal(t, 0.0, j.Constraints[1].Confidence)
	assert.Equal(t, domain.ConstraintImplication, j.Kind)
}

func TestDominantKindIgnoresUnknownKinds(t *testing.T) {
	constraints := []domain.Constraint{
		{Kind: domain.ConstraintKind("correlated"), Confidence: 0.95},
		{Kind: domain.ConstraintEquivalence, Confidence: 0.5},
	}
	assert.Equal(t, domain.ConstraintEquivalence, dominantKind(constraints))
	assert.Equal(t, domain.ConstraintKind(""), dominantKind(nil))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "palmreader", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	require.Error(t, err)

	_, err = New(Config{Provider: "anthropic"})
	require.Error(t, err)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEventPairCanonicalOrder(t *testing.T) {
	a := Event{Ticker: "FED-RATE"}
	b := Event{Ticker: "CPI-ABOVE"}

	p1 := NewEventPair(a, b)
	p2 := NewEventPair(b, a)

	assert.Equal(t, "CPI-ABOVE", p1.A.Ticker)
	assert.Equal(t, "FED-RATE", p1.B.Ticker)
	assert.Equal(t, p1.Key(), p2.Key())
	assert.Equal(t, "CPI-ABOVE|FED-RATE", p1.Key())
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t,
		"a winning implies b winning",
		NormalizeDescription("  A winning   IMPLIES\tB winning "),
	)
}

func TestDedupeConstraintsKeepsHighestConfidence(t *testing.T) {
	in := []Constraint{
		{Kind: ConstraintImplication, Description: "A implies B", Confidence: 0.6},
		{Kind: ConstraintImplication, Description: "a  implies B", Confidence: 0.9},
		{Kind: ConstraintMutualExclusion, Description: "A implies B", Confidence: 0.5},
		{Kind: ConstraintImplication, Description: "A implies B", Confidence: 0.4},
	}

	out := DedupeConstraints(in)

	assert.Len(t, out, 2)
	assert.Equal(t, ConstraintImplication, out[0].Kind)
	assert.Equal(t, 0.9, out[0].Confidence)
	// Same description under a different kind is a distinct constraint.
	assert.Equal(t, ConstraintMutualExclusion, out[1].Kind)
	assert.Equal(t, 0.5, out[1].Confidence)
}

func TestKindPriorityOrder(t *testing.T) {
	assert.Less(t, KindPriority(ConstraintImplication), KindPriority(ConstraintMutualExclusion))
	assert.Less(t, KindPriority(ConstraintMutualExclusion), KindPriority(ConstraintConjunction))
	assert.Less(t, KindPriority(ConstraintConjunction), KindPriority(ConstraintEquivalence))
	assert.Equal(t, 4, KindPriority(ConstraintKind("bogus")))
}

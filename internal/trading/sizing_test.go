package trading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSizePowerLaw(t *testing.T) {
	cases := []struct {
		divergence float64
		want       int
	}{
		{0.05, 10},
		{0.10, 28},
		{0.15, 52},
		{0.20, 80},
		{0.30, 100}, // capped
	}
	for _, tc := range cases {
		got := PositionSize(tc.divergence, 0.05, 10, 100, 1.5)
		assert.Equal(t, tc.want, got, "divergence %.2f", tc.divergence)
	}
}

func TestPositionSizeEdges(t *testing.T) {
	assert.Equal(t, 0, PositionSize(0, 0.05, 10, 100, 1.5))
	assert.Equal(t, 0, PositionSize(-0.1, 0.05, 10, 100, 1.5))
	assert.Equal(t, 0, PositionSize(0.1, 0, 10, 100, 1.5))
	// Divergence at the reference threshold always maps to base.
	assert.Equal(t, 25, PositionSize(0.08, 0.08, 25, 100, 2.0))
}

func TestExpectedProfit(t *testing.T) {
	assert.Equal(t, 0.1, ExpectedProfit(10, 0.06, 0.07))
	assert.Equal(t, 2.8, ExpectedProfit(28, 0.40, 0.50))
	// Exits closing below entry report a loss.
	assert.Equal(t, -1.5, ExpectedProfit(30, 0.50, 0.45))
	assert.Equal(t, 0.0, ExpectedProfit(0, 0.40, 0.50))
}

func TestRiskRewardRatio(t *testing.T) {
	assert.InDelta(t, 1.0, RiskRewardRatio(0.06, 0.07, 0.05), 1e-9)
	assert.InDelta(t, 2.0, RiskRewardRatio(0.50, 0.60, 0.45), 1e-9)
	assert.True(t, math.IsInf(RiskRewardRatio(0.50, 0.60, 0.50), 1))
}

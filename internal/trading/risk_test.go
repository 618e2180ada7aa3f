package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

func TestApplyFilters(t *testing.T) {
	cfg := DefaultRiskConfig()

	healthy := domain.DivergenceSignal{
		Liquidity: 500,
		Volume24h: 200,
		Quantity:  50,
		MarketYes: 0.48,
		MarketNo:  0.52,
	}
	passed, warnings := ApplyFilters(healthy, cfg)
	assert.True(t, passed)
	assert.Empty(t, warnings)

	thin := domain.DivergenceSignal{
		Liquidity: 10,
		Volume24h: 5,
		Quantity:  50,
		MarketYes: 0.48,
		MarketNo:  0.52,
	}
	passed, warnings = ApplyFilters(thin, cfg)
	assert.False(t, passed)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "low liquidity")
	assert.Contains(t, warnings[1], "low 24h volume")

	// Yes+no prices far from 1 indicate a wide spread.
	wide := healthy
	wide.MarketYes, wide.MarketNo = 0.40, 0.45
	passed, warnings = ApplyFilters(wide, cfg)
	assert.False(t, passed)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "wide spread")

	// Oversized quantity warns without failing.
	big := healthy
	big.Quantity = 150
	passed, warnings = ApplyFilters(big, cfg)
	assert.True(t, passed)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "position too large")
}

func TestCheckPositionLimits(t *testing.T) {
	cfg := DefaultRiskConfig()
	open := []domain.Position{
		{EventTicker: "EVT-A", Quantity: 150},
		{EventTicker: "EVT-B", Quantity: 100},
	}

	ok, _ := CheckPositionLimits("EVT-C", 50, open, cfg)
	assert.True(t, ok)

	ok, msg := CheckPositionLimits("EVT-A", 60, open, cfg)
	assert.False(t, ok)
	assert.Contains(t, msg, "market limit")

	heavy := append(open, domain.Position{EventTicker: "EVT-D", Quantity: 700})
	ok, msg = CheckPositionLimits("EVT-C", 60, heavy, cfg)
	assert.False(t, ok)
	assert.Contains(t, msg, "total exposure")
}

func TestCheckDailyTradeLimit(t *testing.T) {
	cfg := DefaultRiskConfig()

	ok, msg := CheckDailyTradeLimit(3, cfg)
	assert.True(t, ok)
	assert.Contains(t, msg, "7 remaining")

	ok, msg = CheckDailyTradeLimit(10, cfg)
	assert.False(t, ok)
	assert.Contains(t, msg, "daily trade limit reached")
}

func TestValidateMarketHealth(t *testing.T) {
	cfg := DefaultRiskConfig()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	far := now.Add(72 * time.Hour)
	soon := now.Add(6 * time.Hour)

	healthy, issues := ValidateMarketHealth(domain.Event{OpenInterest: 5000, CloseTime: &far}, now, cfg)
	assert.True(t, healthy)
	assert.Empty(t, issues)

	healthy, issues = ValidateMarketHealth(domain.Event{OpenInterest: 10, CloseTime: &soon}, now, cfg)
	assert.False(t, healthy)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "low open interest")
	assert.Contains(t, issues[1], "closes soon")

	// No close time on record is not an issue by itself.
	healthy, issues = ValidateMarketHealth(domain.Event{OpenInterest: 5000}, now, cfg)
	assert.True(t, healthy)
	assert.Empty(t, issues)
}

package trading

import (
	"fmt"
	"time"

	"github.com/apurv101/openbet/internal/domain"
)

// RiskConfig bounds what the signal engine is willing to recommend.
type RiskConfig struct {
	MinLiquidity     float64
	MinVolume24h     float64
	MaxPositionSize  int
	MaxSpread        float64 // max |yes+no-1| deviation from fair pricing
	MinOpenInterest  int64
	MaxPerMarket     int
	MaxTotalExposure int
	MaxDailyTrades   int
}

// DefaultRiskConfig returns the stock limits.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MinLiquidity:     100,
		MinVolume24h:     50,
		MaxPositionSize:  100,
		MaxSpread:        0.10,
		MinOpenInterest:  100,
		MaxPerMarket:     200,
		MaxTotalExposure: 1000,
		MaxDailyTrades:   10,
	}
}

// ApplyFilters evaluates a signal against the risk limits. It returns whether
// the signal passes and the list of warnings; a failing signal is still
// emitted carrying its warnings so the reviewer sees why it was rejected.
// An oversized recommendation only warns, since sizing already caps it.
func ApplyFilters(sig domain.DivergenceSignal, cfg RiskConfig) (bool, []string) {
	var warnings []string
	passed := true

	if sig.Liquidity < cfg.MinLiquidity {
		warnings = append(warnings, fmt.Sprintf("low liquidity: %.2f < %.2f", sig.Liquidity, cfg.MinLiquidity))
		passed = false
	}
	if sig.Volume24h < cfg.MinVolume24h {
		warnings = append(warnings, fmt.Sprintf("low 24h volume: %.2f < %.2f", sig.Volume24h, cfg.MinVolume24h))
		passed = false
	}
	if sig.Quantity > cfg.MaxPositionSize {
		warnings = append(warnings, fmt.Sprintf("position too large: %d > %d (will be capped)", sig.Quantity, cfg.MaxPositionSize))
	}
	if sig.MarketYes > 0 && sig.MarketNo > 0 {
		deviation := sig.MarketYes + sig.MarketNo - 1
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > cfg.MaxSpread {
			warnings = append(warnings, fmt.Sprintf("wide spread: %.1f%% deviation from fair pricing", deviation*100))
			passed = false
		}
	}
	return passed, warnings
}

// CheckPositionLimits reports whether adding quantity contracts on the event
// keeps both the per-market and the total exposure under their caps.
func CheckPositionLimits(eventTicker string, quantity int, open []domain.Position, cfg RiskConfig) (bool, string) {
	var marketExposure, totalExposure int
	for _, p := range open {
		totalExposure += p.Quantity
		if p.EventTicker == eventTicker {
			marketExposure += p.Quantity
		}
	}
	if marketExposure+quantity > cfg.MaxPerMarket {
		return false, fmt.Sprintf("market limit exceeded: %d contracts (limit %d)", marketExposure+quantity, cfg.MaxPerMarket)
	}
	if totalExposure+quantity > cfg.MaxTotalExposure {
		return false, fmt.Sprintf("total exposure limit exceeded: %d contracts (limit %d)", totalExposure+quantity, cfg.MaxTotalExposure)
	}
	return true, "position limits ok"
}

// CheckDailyTradeLimit reports whether another trade fits today's budget.
func CheckDailyTradeLimit(tradesToday int, cfg RiskConfig) (bool, string) {
	if tradesToday >= cfg.MaxDailyTrades {
		return false, fmt.Sprintf("daily trade limit reached: %d/%d", tradesToday, cfg.MaxDailyTrades)
	}
	return true, fmt.Sprintf("daily limit ok (%d remaining)", cfg.MaxDailyTrades-tradesToday)
}

// ValidateMarketHealth checks event-level health before recommending entry:
// an open-interest floor and a warning window ahead of market close.
func ValidateMarketHealth(event domain.Event, now time.Time, cfg RiskConfig) (bool, []string) {
	var issues []string
	healthy := true

	if event.OpenInterest < cfg.MinOpenInterest {
		issues = append(issues, fmt.Sprintf("low open interest: %d < %d", event.OpenInterest, cfg.MinOpenInterest))
		healthy = false
	}
	if event.CloseTime != nil {
		if until := event.CloseTime.Sub(now); until < 24*time.Hour {
			issues = append(issues, fmt.Sprintf("market closes soon: %.1f hours", until.Hours()))
			healthy = false
		}
	}
	return healthy, issues
}

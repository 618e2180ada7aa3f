// Package trading computes divergence signals against market prices, sizes
// positions, applies risk filters, and records decisions on the results.
package trading

import "math"

// PositionSize returns the recommended contract count for a divergence. Size
// grows superlinearly with the edge and is capped:
//
//	size = clamp(round(base * (divergence/reference)^scaling), 0, max)
//
// so a divergence exactly at the reference threshold maps to the base amount.
func PositionSize(divergence, reference float64, base, max int, scaling float64) int {
	if divergence <= 0 || reference <= 0 {
		return 0
	}
	raw := float64(base) * math.Pow(divergence/reference, scaling)
	size := int(math.Round(raw))
	if size > max {
		return max
	}
	if size < 0 {
		return 0
	}
	return size
}

// ExpectedProfit returns quantity * (target - entry), rounded to cents.
// Negative results are meaningful for exit signals closing at a loss.
func ExpectedProfit(quantity int, entryPrice, targetPrice float64) float64 {
	profit := float64(quantity) * (targetPrice - entryPrice)
	return math.Round(profit*100) / 100
}

// RiskRewardRatio returns |target-entry| / |entry-stop|, or +Inf when the
// stop sits on the entry.
func RiskRewardRatio(entryPrice, targetPrice, stopPrice float64) float64 {
	reward := math.Abs(targetPrice - entryPrice)
	risk := math.Abs(entryPrice - stopPrice)
	if risk == 0 {
		return math.Inf(1)
	}
	return reward / risk
}

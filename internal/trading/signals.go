package trading

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apurv101/openbet/internal/domain"
)

// Estimate is the aggregated probability estimate for one binary event, as
// produced upstream by the consensus layer.
type Estimate struct {
	Yes       float64
	No        float64
	VerdictID string
}

// SignalConfig tunes signal generation and sizing.
type SignalConfig struct {
	EntryThreshold float64 // minimum divergence to fire an entry
	ExitThreshold  float64 // maximum divergence to consider converged
	BasePosition   int
	MaxPosition    int
	ScalingFactor  float64
	Risk           RiskConfig
}

func (c SignalConfig) withDefaults() SignalConfig {
	if c.EntryThreshold <= 0 {
		c.EntryThreshold = 0.05
	}
	if c.ExitThreshold <= 0 {
		c.ExitThreshold = 0.01
	}
	if c.BasePosition <= 0 {
		c.BasePosition = 10
	}
	if c.MaxPosition <= 0 {
		c.MaxPosition = 100
	}
	if c.ScalingFactor <= 0 {
		c.ScalingFactor = 1.5
	}
	if c.Risk == (RiskConfig{}) {
		c.Risk = DefaultRiskConfig()
	}
	return c
}

// Generator turns estimate-vs-market divergence into trading signals.
type Generator struct {
	cfg    SignalConfig
	logger *slog.Logger
}

func NewGenerator(cfg SignalConfig, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "signal_generator")),
	}
}

// Entry builds an entry signal for a binary event, or nil when there is
// nothing to recommend. The signal recommends buying the side the market
// underprices relative to the estimate; when the estimate agrees with the
// market on the more divergent side there is no edge and no signal. A closed
// event suppresses emission entirely, every other filter failure is attached
// to the signal as a warning.
func (g *Generator) Entry(event domain.Event, set domain.OutcomeSet, est Estimate) *domain.DivergenceSignal {
	if !event.Open() || set.Status != domain.TradingStatusOpen {
		g.logger.Debug("entry suppressed, market not open",
			slog.String("event", event.Ticker),
			slog.String("status", string(event.Status)),
		)
		return nil
	}

	marketYes, marketNo, ok := yesNoPrices(set)
	if !ok {
		g.logger.Debug("entry skipped, not a binary yes/no market", slog.String("event", event.Ticker))
		return nil
	}

	divYes := abs(est.Yes - marketYes)
	divNo := abs(est.No - marketNo)
	if max(divYes, divNo) < g.cfg.EntryThreshold {
		return nil
	}

	var (
		side       domain.Side
		action     string
		price      float64
		target     float64
		divergence float64
	)
	if divYes > divNo {
		if est.Yes <= marketYes {
			// The market already prices YES at or above the estimate.
			return nil
		}
		side, action = domain.SideYes, "buy_yes"
		price, target, divergence = marketYes, est.Yes, divYes
	} else {
		if est.No <= marketNo {
			return nil
		}
		side, action = domain.SideNo, "buy_no"
		price, target, divergence = marketNo, est.No, divNo
	}

	quantity := PositionSize(divergence, g.cfg.EntryThreshold, g.cfg.BasePosition, g.cfg.MaxPosition, g.cfg.ScalingFactor)

	sig := domain.DivergenceSignal{
		ID:             uuid.New().String(),
		EventTicker:    event.Ticker,
		Kind:           domain.SignalEntry,
		EstimateYes:    est.Yes,
		EstimateNo:     est.No,
		MarketYes:      marketYes,
		MarketNo:       marketNo,
		DivergenceYes:  divYes,
		DivergenceNo:   divNo,
		Side:           side,
		Divergence:     divergence,
		Action:         action,
		Quantity:       quantity,
		Price:          price,
		ExpectedProfit: ExpectedProfit(quantity, price, target),
		Volume24h:      event.Volume24h,
		Liquidity:      event.Liquidity,
		VerdictID:      est.VerdictID,
		CreatedAt:      time.Now().UTC(),
	}
	sig.PassedRisk, sig.RiskWarnings = ApplyFilters(sig, g.cfg.Risk)
	return &sig
}

// Exit builds an exit signal for an open position once the market price has
// converged to within the exit threshold of the estimate, recommending
// closing the full held quantity at the current price. Nil means hold.
func (g *Generator) Exit(pos domain.Position, set domain.OutcomeSet, est Estimate) *domain.DivergenceSignal {
	if pos.Quantity == 0 || !pos.Open() {
		return nil
	}
	marketYes, marketNo, ok := yesNoPrices(set)
	if !ok {
		return nil
	}

	var current, estimate float64
	var action string
	if pos.Side == domain.SideYes {
		current, estimate, action = marketYes, est.Yes, "sell_yes"
	} else {
		current, estimate, action = marketNo, est.No, "sell_no"
	}

	divergence := abs(current - estimate)
	if divergence > g.cfg.ExitThreshold {
		return nil
	}

	return &domain.DivergenceSignal{
		ID:             uuid.New().String(),
		EventTicker:    pos.EventTicker,
		Kind:           domain.SignalExit,
		EstimateYes:    est.Yes,
		EstimateNo:     est.No,
		MarketYes:      marketYes,
		MarketNo:       marketNo,
		DivergenceYes:  abs(est.Yes - marketYes),
		DivergenceNo:   abs(est.No - marketNo),
		Side:           pos.Side,
		Divergence:     divergence,
		Action:         action,
		Quantity:       pos.Quantity,
		Price:          current,
		ExpectedProfit: ExpectedProfit(pos.Quantity, pos.AvgPrice, current),
		PassedRisk:     true,
		PositionID:     pos.ID,
		VerdictID:      est.VerdictID,
		CreatedAt:      time.Now().UTC(),
	}
}

// yesNoPrices extracts the YES and NO prices from a binary outcome set,
// matching on label first and falling back to outcome order.
func yesNoPrices(set domain.OutcomeSet) (yes, no float64, ok bool) {
	if len(set.Outcomes) != 2 {
		return 0, 0, false
	}
	yesIdx, noIdx := -1, -1
	for i, o := range set.Outcomes {
		switch {
		case strings.EqualFold(o.Label, "yes"):
			yesIdx = i
		case strings.EqualFold(o.Label, "no"):
			noIdx = i
		}
	}
	if yesIdx < 0 || noIdx < 0 {
		yesIdx, noIdx = 0, 1
	}
	return set.Outcomes[yesIdx].Price, set.Outcomes[noIdx].Price, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

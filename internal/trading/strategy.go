package trading

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/apurv101/openbet/internal/domain"
)

// EstimateProvider supplies the aggregated probability estimate for an event,
// typically backed by the consensus layer with its freshness cache.
type EstimateProvider interface {
	Estimate(ctx context.Context, event domain.Event) (Estimate, error)
}

// Notifier pushes a short human-readable message to a configured channel.
// Notification failures never fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Strategy orchestrates the divergence-trading path: scanning events for
// entries, watching open positions for exits, and recording dispositions.
// It holds no state between invocations beyond what the stores persist.
type Strategy struct {
	cfg       SignalConfig
	gen       *Generator
	market    domain.MarketData
	estimates EstimateProvider
	signals   domain.SignalStore
	decisions domain.DecisionStore
	positions domain.PositionStore
	audit     domain.AuditStore
	notifier  Notifier
	logger    *slog.Logger
}

// NewStrategy wires a strategy from its collaborators. notifier may be nil.
func NewStrategy(
	cfg SignalConfig,
	market domain.MarketData,
	estimates EstimateProvider,
	signals domain.SignalStore,
	decisions domain.DecisionStore,
	positions domain.PositionStore,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *Strategy {
	cfg = cfg.withDefaults()
	return &Strategy{
		cfg:       cfg,
		gen:       NewGenerator(cfg, logger),
		market:    market,
		estimates: estimates,
		signals:   signals,
		decisions: decisions,
		positions: positions,
		audit:     audit,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "strategy")),
	}
}

// ScanForEntries evaluates each event for an entry opportunity and returns
// the passing signals sorted by divergence, best edge first. Events with an
// open position on the recommended side are skipped, as are events failing
// position limits or market health. Per-event failures are logged and
// counted, never fatal to the scan.
func (s *Strategy) ScanForEntries(ctx context.Context, events []domain.Event) ([]domain.DivergenceSignal, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy: list open positions: %w", err)
	}

	var out []domain.DivergenceSignal
	skipped := map[string]int{}
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("strategy: scan interrupted: %w", err)
		}
		sig, reason, err := s.scanEvent(ctx, event, open)
		if err != nil {
			s.logger.Warn("entry scan failed",
				slog.String("event", event.Ticker),
				slog.String("error", err.Error()),
			)
			skipped["error"]++
			continue
		}
		if sig == nil {
			skipped[reason]++
			continue
		}
		out = append(out, *sig)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Divergence > out[j].Divergence })

	s.logger.Info("entry scan complete",
		slog.Int("events", len(events)),
		slog.Int("signals", len(out)),
		slog.Any("skipped", skipped),
	)
	return out, nil
}

func (s *Strategy) scanEvent(ctx context.Context, event domain.Event, open []domain.Position) (*domain.DivergenceSignal, string, error) {
	if healthy, issues := ValidateMarketHealth(event, time.Now(), s.cfg.Risk); !healthy {
		s.logger.Debug("unhealthy market skipped",
			slog.String("event", event.Ticker),
			slog.Any("issues", issues),
		)
		return nil, "unhealthy", nil
	}

	est, err := s.estimates.Estimate(ctx, event)
	if err != nil {
		return nil, "", fmt.Errorf("estimate %s: %w", event.Ticker, err)
	}
	set, err := s.market.GetOutcomeSet(ctx, event.Ticker)
	if err != nil {
		return nil, "", fmt.Errorf("outcome set %s: %w", event.Ticker, err)
	}

	sig := s.gen.Entry(event, set, est)
	if sig == nil {
		return nil, "no_divergence", nil
	}

	for _, p := range open {
		if p.EventTicker == event.Ticker && p.Side == sig.Side {
			return nil, "position_open", nil
		}
	}
	if ok, msg := CheckPositionLimits(event.Ticker, sig.Quantity, open, s.cfg.Risk); !ok {
		sig.RiskWarnings = append(sig.RiskWarnings, msg)
		sig.PassedRisk = false
	}
	return sig, "", nil
}

// MonitorExits checks every open position for convergence and returns exit
// recommendations. Per-position failures are logged and skipped.
func (s *Strategy) MonitorExits(ctx context.Context) ([]domain.DivergenceSignal, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy: list open positions: %w", err)
	}

	var out []domain.DivergenceSignal
	failures := 0
	for _, pos := range open {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("strategy: exit monitor interrupted: %w", err)
		}
		sig, err := s.checkExit(ctx, pos)
		if err != nil {
			failures++
			s.logger.Warn("exit check failed",
				slog.String("position", pos.ID),
				slog.String("event", pos.EventTicker),
				slog.String("error", err.Error()),
			)
			continue
		}
		if sig != nil {
			out = append(out, *sig)
		}
	}

	s.logger.Info("exit monitor complete",
		slog.Int("positions", len(open)),
		slog.Int("exits", len(out)),
		slog.Int("failures", failures),
	)
	return out, nil
}

func (s *Strategy) checkExit(ctx context.Context, pos domain.Position) (*domain.DivergenceSignal, error) {
	event, err := s.market.GetEvent(ctx, pos.EventTicker)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", pos.EventTicker, err)
	}
	est, err := s.estimates.Estimate(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("estimate %s: %w", pos.EventTicker, err)
	}
	set, err := s.market.GetOutcomeSet(ctx, pos.EventTicker)
	if err != nil {
		return nil, fmt.Errorf("outcome set %s: %w", pos.EventTicker, err)
	}
	return s.gen.Exit(pos, set, est), nil
}

// RecordDecision persists the signal and an append-only decision referencing
// it, writes an audit entry, and fires a best-effort notification. The
// signal itself is never mutated; execution against the exchange is left to
// the external collaborator reading approved decisions.
func (s *Strategy) RecordDecision(ctx context.Context, sig domain.DivergenceSignal, disposition domain.Disposition, note string) (domain.TradeDecision, error) {
	if err := s.signals.Insert(ctx, sig); err != nil {
		return domain.TradeDecision{}, fmt.Errorf("strategy: persist signal: %w", err)
	}

	decision := domain.TradeDecision{
		ID:        uuid.New().String(),
		SignalID:  sig.ID,
		Decision:  disposition,
		Note:      note,
		Quantity:  sig.Quantity,
		Price:     sig.Price,
		Cost:      float64(sig.Quantity) * sig.Price,
		DecidedAt: time.Now().UTC(),
	}
	if err := s.decisions.Insert(ctx, decision); err != nil {
		return domain.TradeDecision{}, fmt.Errorf("strategy: persist decision: %w", err)
	}

	if err := s.audit.Log(ctx, "trade_decision", map[string]any{
		"decision_id": decision.ID,
		"signal_id":   sig.ID,
		"event":       sig.EventTicker,
		"kind":        string(sig.Kind),
		"action":      sig.Action,
		"disposition": string(disposition),
		"quantity":    sig.Quantity,
		"price":       sig.Price,
	}); err != nil {
		s.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}

	if s.notifier != nil && disposition == domain.DecisionApproved {
		subject := fmt.Sprintf("%s %s", sig.Action, sig.EventTicker)
		body := fmt.Sprintf("%d contracts at %.2f, expected profit %.2f", sig.Quantity, sig.Price, sig.ExpectedProfit)
		if err := s.notifier.Notify(ctx, subject, body); err != nil {
			s.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("decision recorded",
		slog.String("decision_id", decision.ID),
		slog.String("signal_id", sig.ID),
		slog.String("disposition", string(disposition)),
	)
	return decision, nil
}

// Performance aggregates recorded decisions since the given time.
func (s *Strategy) Performance(ctx context.Context, since time.Time) (domain.PerformanceStats, error) {
	stats, err := s.decisions.Performance(ctx, since)
	if err != nil {
		return domain.PerformanceStats{}, fmt.Errorf("strategy: performance: %w", err)
	}
	return stats, nil
}

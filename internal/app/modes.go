package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apurv101/openbet/internal/arbitrage"
	"github.com/apurv101/openbet/internal/consensus"
	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/trading"
)

// newEngine builds the consensus engine over the wired estimator panel.
func (a *App) newEngine(deps *Dependencies) *consensus.Engine {
	return consensus.NewEngine(consensus.Config{
		ProviderTimeout: a.cfg.Consensus.ProviderTimeout.Duration,
	}, deps.Estimators, deps.VerdictCache, a.logger)
}

// newDetector builds the arbitrage detector from configuration.
func (a *App) newDetector() *arbitrage.Detector {
	return arbitrage.NewDetector(arbitrage.Config{
		PriceSumTolerance:       a.cfg.Arbitrage.PriceSumTolerance,
		MinConstraintConfidence: a.cfg.Arbitrage.MinConstraintConfidence,
		SolveTimeout:            a.cfg.Arbitrage.SolveTimeout.Duration,
	}, a.logger)
}

// newStrategy builds the divergence-trading strategy over the wired stores.
func (a *App) newStrategy(deps *Dependencies, engine *consensus.Engine) *trading.Strategy {
	t := a.cfg.Trading
	return trading.NewStrategy(
		trading.SignalConfig{
			EntryThreshold: t.EntryThreshold,
			ExitThreshold:  t.ExitThreshold,
			BasePosition:   t.BasePosition,
			MaxPosition:    t.MaxPosition,
			ScalingFactor:  t.ScalingFactor,
			Risk: trading.RiskConfig{
				MinLiquidity:     t.MinLiquidity,
				MinVolume24h:     t.MinVolume24h,
				MaxPositionSize:  t.MaxPosition,
				MaxSpread:        t.MaxSpread,
				MinOpenInterest:  t.MinOpenInterest,
				MaxPerMarket:     t.MaxPerMarket,
				MaxTotalExposure: t.MaxTotalExposure,
				MaxDailyTrades:   t.MaxDailyTrades,
			},
		},
		deps.Market,
		consensusEstimates{engine: engine},
		deps.SignalStore,
		deps.DecisionStore,
		deps.PositionStore,
		deps.AuditStore,
		deps.Notifier,
		a.logger,
	)
}

// consensusEstimates adapts the panel's outcome estimate to the trading
// layer's EstimateProvider.
type consensusEstimates struct {
	engine *consensus.Engine
}

func (p consensusEstimates) Estimate(ctx context.Context, event domain.Event) (trading.Estimate, error) {
	est, err := p.engine.EstimateOutcome(ctx, event)
	if err != nil {
		return trading.Estimate{}, err
	}
	return trading.Estimate{Yes: est.Yes, No: est.No}, nil
}

// candidatePairs enumerates event pairs worth screening: pairs in the same
// category or the same series. The pool is capped at max pairs.
func candidatePairs(events []domain.Event, max int) []domain.EventPair {
	var pairs []domain.EventPair
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			ea, eb := events[i], events[j]
			if ea.Ticker == eb.Ticker {
				continue
			}
			pair := domain.NewEventPair(ea, eb)
			if !pair.SameSeries() && (ea.Category == "" || ea.Category != eb.Category) {
				continue
			}
			pairs = append(pairs, pair)
			if max > 0 && len(pairs) >= max {
				return pairs
			}
		}
	}
	return pairs
}

// ScreenMode pulls open events, screens every candidate pair with the cheap
// single-provider pass, and persists the screening verdicts. Pairs scoring at
// or above the promote threshold become work for analyze mode.
func (a *App) ScreenMode(ctx context.Context, deps *Dependencies) error {
	events, err := deps.Market.ListEvents(ctx, domain.TradingStatusOpen, a.cfg.Kalshi.EventLimit)
	if err != nil {
		return fmt.Errorf("app: screen: list events: %w", err)
	}
	if err := deps.EventStore.UpsertBatch(ctx, events); err != nil {
		a.logger.Warn("event upsert failed", slog.String("error", err.Error()))
	}

	pairs := candidatePairs(events, a.cfg.Consensus.MaxPairs)
	engine := a.newEngine(deps)

	var (
		mu       sync.Mutex
		promoted int
		stored   int
		failed   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Consensus.Concurrency)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			v := engine.Screen(gctx, pair)
			if err := deps.VerdictStore.InsertScreening(gctx, v); err != nil {
				a.logger.Warn("screening verdict insert failed",
					slog.String("pair", v.PairKey),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			stored++
			if v.DependencyScore >= a.cfg.Consensus.PromoteThreshold {
				promoted++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: screen: %w", err)
	}

	a.logger.InfoContext(ctx, "screening complete",
		slog.Int("events", len(events)),
		slog.Int("pairs", len(pairs)),
		slog.Int("stored", stored),
		slog.Int("promoted", promoted),
		slog.Int("failed", failed),
	)
	return nil
}

// AnalyzeMode runs the full two-round consensus on every pair promoted by
// screening and persists the resulting verdicts. Already-fresh verdicts are
// served from the cache and not re-inserted.
func (a *App) AnalyzeMode(ctx context.Context, deps *Dependencies) error {
	screenings, err := deps.VerdictStore.List(ctx, domain.VerdictFilter{
		Mode:     domain.ModeScreening,
		MinScore: a.cfg.Consensus.PromoteThreshold,
	}, domain.ListOpts{Limit: a.cfg.Consensus.MaxPairs})
	if err != nil {
		return fmt.Errorf("app: analyze: list screenings: %w", err)
	}

	// The list is most recent first; keep one entry per pair.
	seen := make(map[string]bool, len(screenings))
	var pairKeys []string
	for _, s := range screenings {
		if seen[s.PairKey] {
			continue
		}
		seen[s.PairKey] = true
		pairKeys = append(pairKeys, s.PairKey)
	}

	engine := a.newEngine(deps)

	var (
		mu       sync.Mutex
		analyzed int
		cached   int
		failed   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Consensus.Concurrency)
	for _, key := range pairKeys {
		key := key
		g.Go(func() error {
			pair, err := a.loadPair(gctx, deps, key)
			if err != nil {
				a.logger.Warn("pair load failed",
					slog.String("pair", key),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			v, err := engine.Evaluate(gctx, pair, false)
			if err != nil {
				a.logger.Warn("pair analysis failed",
					slog.String("pair", key),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			if v.FromCache {
				mu.Lock()
				cached++
				mu.Unlock()
				return nil
			}
			if err := deps.VerdictStore.Insert(gctx, v); err != nil {
				a.logger.Warn("verdict insert failed",
					slog.String("pair", key),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			analyzed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: analyze: %w", err)
	}

	a.logger.InfoContext(ctx, "analysis complete",
		slog.Int("pairs", len(pairKeys)),
		slog.Int("analyzed", analyzed),
		slog.Int("cached", cached),
		slog.Int("failed", failed),
	)
	return nil
}

// loadPair resolves a pair key back into live events.
func (a *App) loadPair(ctx context.Context, deps *Dependencies, key string) (domain.EventPair, error) {
	tickerA, tickerB, ok := domain.SplitPairKey(key)
	if !ok {
		return domain.EventPair{}, fmt.Errorf("malformed pair key %q", key)
	}
	eventA, err := deps.Market.GetEvent(ctx, tickerA)
	if err != nil {
		return domain.EventPair{}, fmt.Errorf("event %s: %w", tickerA, err)
	}
	eventB, err := deps.Market.GetEvent(ctx, tickerB)
	if err != nil {
		return domain.EventPair{}, fmt.Errorf("event %s: %w", tickerB, err)
	}
	return domain.NewEventPair(eventA, eventB), nil
}

// DetectMode runs arbitrage detection over dependent verdicts and persists
// any opportunities found. Most pairs produce no opportunity; that is the
// normal negative and is only counted.
func (a *App) DetectMode(ctx context.Context, deps *Dependencies) error {
	filter := domain.VerdictFilter{
		Mode:     domain.ModeFull,
		MinScore: domain.DependenceThreshold,
	}
	if a.cfg.Arbitrage.RequireVerified {
		verified := true
		filter.Verified = &verified
	}
	verdicts, err := deps.VerdictStore.List(ctx, filter, domain.ListOpts{Limit: a.cfg.Consensus.MaxPairs})
	if err != nil {
		return fmt.Errorf("app: detect: list verdicts: %w", err)
	}

	// Most recent first; detect against the latest verdict per pair only.
	seen := make(map[string]bool, len(verdicts))
	var latest []domain.Verdict
	for _, v := range verdicts {
		if seen[v.PairKey] {
			continue
		}
		seen[v.PairKey] = true
		latest = append(latest, v)
	}

	detector := a.newDetector()

	var (
		mu       sync.Mutex
		found    int
		negative int
		failed   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Consensus.Concurrency)
	for _, v := range latest {
		v := v
		g.Go(func() error {
			opp, err := a.detectPair(gctx, deps, detector, v)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				a.logger.Warn("detection failed",
					slog.String("pair", v.PairKey),
					slog.String("error", err.Error()),
				)
				failed++
			case opp == nil:
				negative++
			default:
				found++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: detect: %w", err)
	}

	a.logger.InfoContext(ctx, "detection complete",
		slog.Int("verdicts", len(latest)),
		slog.Int("opportunities", found),
		slog.Int("negative", negative),
		slog.Int("failed", failed),
	)
	return nil
}

func (a *App) detectPair(ctx context.Context, deps *Dependencies, detector *arbitrage.Detector, v domain.Verdict) (*domain.ArbitrageOpportunity, error) {
	tickerA, tickerB, ok := domain.SplitPairKey(v.PairKey)
	if !ok {
		return nil, fmt.Errorf("malformed pair key %q", v.PairKey)
	}
	setA, err := deps.Market.GetOutcomeSet(ctx, tickerA)
	if err != nil {
		return nil, fmt.Errorf("outcome set %s: %w", tickerA, err)
	}
	setB, err := deps.Market.GetOutcomeSet(ctx, tickerB)
	if err != nil {
		return nil, fmt.Errorf("outcome set %s: %w", tickerB, err)
	}

	opp, err := detector.Detect(ctx, setA, setB, v)
	if err != nil || opp == nil {
		return nil, err
	}

	if err := deps.OpportunityStore.Insert(ctx, *opp); err != nil {
		return nil, fmt.Errorf("persist opportunity: %w", err)
	}
	if err := deps.AuditStore.Log(ctx, "arbitrage.detected", map[string]any{
		"opportunity_id": opp.ID,
		"verdict_id":     opp.VerdictID,
		"pair":           v.PairKey,
		"min_cost":       opp.MinCost,
		"profit":         opp.Profit,
	}); err != nil {
		a.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}
	if err := deps.Notifier.Notify(ctx, "Arbitrage detected",
		fmt.Sprintf("%s + %s: min cost %.3f, profit %.3f per contract",
			opp.OutcomeA, opp.OutcomeB, opp.MinCost, opp.Profit)); err != nil {
		a.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
	return opp, nil
}

// ScanMode scans open events for divergence entry signals and reports the
// ranked recommendations. Signals are ephemeral here; they are persisted only
// when a decision is recorded against them.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	events, err := deps.Market.ListEvents(ctx, domain.TradingStatusOpen, a.cfg.Kalshi.EventLimit)
	if err != nil {
		return fmt.Errorf("app: scan: list events: %w", err)
	}

	strat := a.newStrategy(deps, a.newEngine(deps))
	signals, err := strat.ScanForEntries(ctx, events)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}

	for _, sig := range signals {
		a.logger.InfoContext(ctx, "entry recommendation",
			slog.String("event", sig.EventTicker),
			slog.String("action", sig.Action),
			slog.Float64("divergence", sig.Divergence),
			slog.Int("quantity", sig.Quantity),
			slog.Float64("price", sig.Price),
			slog.Float64("expected_profit", sig.ExpectedProfit),
			slog.Bool("passed_risk", sig.PassedRisk),
		)
	}
	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("events", len(events)),
		slog.Int("signals", len(signals)),
	)
	return nil
}

// ExitsMode checks open positions for convergence and reports exit
// recommendations.
func (a *App) ExitsMode(ctx context.Context, deps *Dependencies) error {
	strat := a.newStrategy(deps, a.newEngine(deps))
	exits, err := strat.MonitorExits(ctx)
	if err != nil {
		return fmt.Errorf("app: exits: %w", err)
	}

	for _, sig := range exits {
		a.logger.InfoContext(ctx, "exit recommendation",
			slog.String("event", sig.EventTicker),
			slog.String("position", sig.PositionID),
			slog.String("action", sig.Action),
			slog.Float64("divergence", sig.Divergence),
			slog.Int("quantity", sig.Quantity),
			slog.Float64("price", sig.Price),
		)
		if err := deps.Notifier.Notify(ctx, "Exit recommended",
			fmt.Sprintf("%s %s: %d contracts at %.2f", sig.Action, sig.EventTicker, sig.Quantity, sig.Price)); err != nil {
			a.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}
	a.logger.InfoContext(ctx, "exit monitor complete", slog.Int("exits", len(exits)))
	return nil
}

// ReportMode summarizes decision performance over the trailing 30 days plus
// the most recent audit activity.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	since := time.Now().AddDate(0, 0, -30)
	stats, err := deps.DecisionStore.Performance(ctx, since)
	if err != nil {
		return fmt.Errorf("app: report: %w", err)
	}

	a.logger.InfoContext(ctx, "performance report",
		slog.Time("since", since),
		slog.Int("signals", stats.Signals),
		slog.Int("approved", stats.Approved),
		slog.Int("rejected", stats.Rejected),
		slog.Int("ignored", stats.Ignored),
		slog.Int("closed", stats.Closed),
		slog.Int("wins", stats.Wins),
		slog.Float64("win_rate", stats.WinRate),
		slog.Float64("realized_pnl", stats.RealizedPnL),
	)

	entries, err := deps.AuditStore.List(ctx, domain.ListOpts{Limit: 20})
	if err != nil {
		return fmt.Errorf("app: report: audit: %w", err)
	}
	for _, e := range entries {
		a.logger.InfoContext(ctx, "audit entry",
			slog.Int64("id", e.ID),
			slog.String("event", e.Event),
			slog.Time("at", e.CreatedAt),
		)
	}
	return nil
}

// ArchiveMode exports decision, signal, and audit history older than the
// retention window to object storage.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive: object storage not wired")
	}
	before := time.Now().AddDate(0, 0, -a.cfg.S3.ArchiveRetentionDays)

	var decisions, signals, audit int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := deps.Archiver.ArchiveDecisions(gctx, before)
		decisions = n
		return err
	})
	g.Go(func() error {
		n, err := deps.Archiver.ArchiveSignals(gctx, before)
		signals = n
		return err
	})
	g.Go(func() error {
		n, err := deps.Archiver.ArchiveAudit(gctx, before)
		audit = n
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}

	a.logger.InfoContext(ctx, "archive complete",
		slog.Time("before", before),
		slog.Int64("decisions", decisions),
		slog.Int64("signals", signals),
		slog.Int64("audit_entries", audit),
	)
	return nil
}

// FullMode runs the whole pipeline in order: screen, analyze, detect, scan,
// exits.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	steps := []struct {
		name string
		run  func(context.Context, *Dependencies) error
	}{
		{"screen", a.ScreenMode},
		{"analyze", a.AnalyzeMode},
		{"detect", a.DetectMode},
		{"scan", a.ScanMode},
		{"exits", a.ExitsMode},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.run(ctx, deps); err != nil {
			return fmt.Errorf("app: full: %s: %w", step.name, err)
		}
	}
	return nil
}

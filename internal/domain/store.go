package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// VerdictFilter narrows verdict list queries. Zero values mean "any".
type VerdictFilter struct {
	Mode     AnalysisMode
	Verified *bool
	MinScore float64
	PairKey  string
}

// OpportunityFilter narrows arbitrage opportunity queries.
type OpportunityFilter struct {
	Status    OpportunityStatus
	MinProfit float64
}

// EventStore persists event metadata.
type EventStore interface {
	Upsert(ctx context.Context, event Event) error
	UpsertBatch(ctx context.Context, events []Event) error
	GetByTicker(ctx context.Context, ticker string) (Event, error)
	ListByCategory(ctx context.Context, category string, opts ListOpts) ([]Event, error)
	ListOpen(ctx context.Context, opts ListOpts) ([]Event, error)
}

// VerdictStore persists consensus verdicts. Verdicts are insert-only; the
// sole permitted mutation is attaching human verification.
type VerdictStore interface {
	Insert(ctx context.Context, v Verdict) error
	InsertScreening(ctx context.Context, v ScreeningVerdict) error
	GetByID(ctx context.Context, id string) (Verdict, error)
	LatestByPair(ctx context.Context, pairKey string, mode AnalysisMode) (Verdict, error)
	LatestScreeningByPair(ctx context.Context, pairKey string) (ScreeningVerdict, error)
	List(ctx context.Context, filter VerdictFilter, opts ListOpts) ([]Verdict, error)
	MarkVerified(ctx context.Context, id string, note string) error
}

// OpportunityStore persists detected arbitrage opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	GetByID(ctx context.Context, id string) (ArbitrageOpportunity, error)
	UpdateStatus(ctx context.Context, id string, status OpportunityStatus) error
	List(ctx context.Context, filter OpportunityFilter, opts ListOpts) ([]ArbitrageOpportunity, error)
}

// SignalStore persists divergence signals once a decision is being recorded.
type SignalStore interface {
	Insert(ctx context.Context, sig DivergenceSignal) error
	GetByID(ctx context.Context, id string) (DivergenceSignal, error)
	ListByKind(ctx context.Context, kind SignalKind, opts ListOpts) ([]DivergenceSignal, error)
	ListByEvent(ctx context.Context, eventTicker string, opts ListOpts) ([]DivergenceSignal, error)
}

// DecisionStore persists the append-only trade decision log.
type DecisionStore interface {
	Insert(ctx context.Context, d TradeDecision) error
	ListBySignal(ctx context.Context, signalID string) ([]TradeDecision, error)
	List(ctx context.Context, opts ListOpts) ([]TradeDecision, error)
	Performance(ctx context.Context, since time.Time) (PerformanceStats, error)
}

// PositionStore persists positions.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	Close(ctx context.Context, id string, exitPrice float64, realizedPnL float64) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	GetOpenByEventSide(ctx context.Context, eventTicker string, side Side) (Position, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// VerdictCache caches recent full verdicts so a pair is not re-analyzed
// inside the configured freshness window.
type VerdictCache interface {
	Get(ctx context.Context, pairKey string) (Verdict, error)
	Set(ctx context.Context, v Verdict) error
	Invalidate(ctx context.Context, pairKey string) error
}

// MarketData is the market-data collaborator the engines read from. Prices,
// liquidity and status are owned by the exchange and may change between
// computation and decision.
type MarketData interface {
	GetEvent(ctx context.Context, ticker string) (Event, error)
	ListEvents(ctx context.Context, status TradingStatus, limit int) ([]Event, error)
	GetOutcomeSet(ctx context.Context, eventTicker string) (OutcomeSet, error)
}

package domain

import "time"

// SignalKind distinguishes entry recommendations from exit recommendations.
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalExit  SignalKind = "exit"
)

// Side is the outcome side a signal recommends trading.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// DivergenceSignal is a bounded trading recommendation produced when the
// aggregated probability estimate diverges from the market-implied one.
// Signals are recomputed on each scan and persisted only when a decision is
// recorded. Market fields are a snapshot of the prices used at computation
// time, since the live market may move before a decision lands.
type DivergenceSignal struct {
	ID          string
	EventTicker string
	Kind        SignalKind

	EstimateYes float64
	EstimateNo  float64
	MarketYes   float64
	MarketNo    float64

	DivergenceYes float64
	DivergenceNo  float64
	Side          Side
	Divergence    float64 // divergence on the selected side

	Action         string // "buy_yes", "buy_no", "sell_yes", "sell_no"
	Quantity       int
	Price          float64
	ExpectedProfit float64

	Volume24h    float64
	Liquidity    float64
	RiskWarnings []string
	PassedRisk   bool

	PositionID string // set on exit signals
	VerdictID  string
	CreatedAt  time.Time
}

// Disposition is a human or automated decision on a signal or opportunity.
type Disposition string

const (
	DecisionApproved Disposition = "approved"
	DecisionRejected Disposition = "rejected"
	DecisionIgnored  Disposition = "ignored"
)

// TradeDecision is the append-only audit record of a disposition. Decisions
// reference signals; they never mutate them.
type TradeDecision struct {
	ID          string
	SignalID    string
	Decision    Disposition
	Note        string
	Executed    bool
	OrderID     string
	Quantity    int
	Price       float64
	Cost        float64
	RealizedPnL *float64
	DecidedAt   time.Time
}

// Position is an open or historical holding on one outcome side.
type Position struct {
	ID          string
	EventTicker string
	Side        Side
	Quantity    int
	AvgPrice    float64
	OpenedAt    time.Time
	ClosedAt    *time.Time
	ExitPrice   *float64
	RealizedPnL *float64
}

// Open reports whether the position is still held.
func (p Position) Open() bool { return p.ClosedAt == nil }

// PerformanceStats aggregates recorded decisions for post-hoc review.
type PerformanceStats struct {
	Signals     int
	Approved    int
	Rejected    int
	Ignored     int
	Closed      int
	Wins        int
	WinRate     float64
	RealizedPnL float64
}

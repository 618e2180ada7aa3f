package domain

import "time"

// OpportunityStatus tracks the review lifecycle of a detected arbitrage.
type OpportunityStatus string

const (
	OpportunityDetected OpportunityStatus = "detected"
	OpportunityVerified OpportunityStatus = "verified"
	OpportunityRejected OpportunityStatus = "rejected"
	OpportunityExecuted OpportunityStatus = "executed"
)

// ArbitrageOpportunity is a guaranteed-profit portfolio derived from a
// human-verified verdict plus live outcome prices. It exists only while the
// minimum achievable cost is below 1. Prices are snapshotted because the
// underlying markets may move between detection and decision.
type ArbitrageOpportunity struct {
	ID            string
	VerdictID     string
	EventATicker  string
	EventBTicker  string
	MinCost       float64
	Profit        float64 // 1 - MinCost, clamped at >= 0
	IndexA        int     // chosen outcome index in event A's outcome set
	IndexB        int     // chosen outcome index in event B's outcome set
	OutcomeA      string  // ticker of the chosen outcome in A
	OutcomeB      string  // ticker of the chosen outcome in B
	PriceSnapshot map[string]float64
	Status        OpportunityStatus
	DetectedAt    time.Time
}

package domain

import "time"

// TradingStatus represents the lifecycle state of an event's markets.
type TradingStatus string

const (
	TradingStatusOpen    TradingStatus = "open"
	TradingStatusClosed  TradingStatus = "closed"
	TradingStatusSettled TradingStatus = "settled"
)

// Event represents a prediction-market event: a group of mutually exclusive
// binary markets that resolve together (e.g. "Who wins the election?").
type Event struct {
	Ticker       string
	SeriesTicker string
	Title        string
	Category     string
	Status       TradingStatus
	CloseTime    *time.Time
	Volume24h    float64
	Liquidity    float64
	OpenInterest int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the event is currently tradable.
func (e Event) Open() bool {
	return e.Status == TradingStatusOpen
}

// Outcome is one mutually exclusive resolution within an event, with a
// snapshot of its market state. Price is the market-implied probability.
type Outcome struct {
	Ticker    string
	Label     string // e.g. "Yes" / "No" or a candidate name
	Price     float64
	Bid       float64
	Ask       float64
	Liquidity float64
	Volume24h float64
}

// Spread returns the bid-ask spread as a fraction of the price, or 0 when
// the price is unknown.
func (o Outcome) Spread() float64 {
	if o.Price <= 0 {
		return 0
	}
	return (o.Ask - o.Bid) / o.Price
}

// OutcomeSet is the full set of mutually exclusive outcomes for one event.
// Exactly one outcome eventually resolves true.
type OutcomeSet struct {
	EventTicker string
	Outcomes    []Outcome
	Status      TradingStatus
	FetchedAt   time.Time
}

// PriceSum returns the sum of all outcome prices. For a well-formed set this
// is close to 1.
func (s OutcomeSet) PriceSum() float64 {
	var sum float64
	for _, o := range s.Outcomes {
		sum += o.Price
	}
	return sum
}

// CheapestIndex returns the index of the lowest-priced outcome, or -1 for an
// empty set.
func (s OutcomeSet) CheapestIndex() int {
	best := -1
	for i, o := range s.Outcomes {
		if best < 0 || o.Price < s.Outcomes[best].Price {
			best = i
		}
	}
	return best
}

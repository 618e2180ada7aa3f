package kalshi

import (
	"time"

	"github.com/apurv101/openbet/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Prices are
// in cents (1-99).
type Market struct {
	Ticker       string     `json:"ticker"`
	EventTicker  string     `json:"event_ticker"`
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle"`
	YesSubTitle  string     `json:"yes_sub_title"`
	NoSubTitle   string     `json:"no_sub_title"`
	Status       string     `json:"status"` // "unopened", "open", "closed", "settled"
	YesBid       int64      `json:"yes_bid"`
	YesAsk       int64      `json:"yes_ask"`
	NoBid        int64      `json:"no_bid"`
	NoAsk        int64      `json:"no_ask"`
	LastPrice    int64      `json:"last_price"`
	Volume       int64      `json:"volume"`
	Volume24H    int64      `json:"volume_24h"`
	Liquidity    int64      `json:"liquidity"`
	OpenInterest int64      `json:"open_interest"`
	Result       string     `json:"result"` // "yes", "no", "" (unsettled)
	Category     string     `json:"category"`
	OpenTime     *time.Time `json:"open_time"`
	CloseTime    *time.Time `json:"close_time"`
}

// eventPayload is an event as returned by GET /events.
type eventPayload struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	SubTitle     string `json:"sub_title"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	MutuallyExcl bool   `json:"mutually_exclusive"`
}

// Orderbook is the resting liquidity for one market. The API returns each
// side as a list of [price_cents, quantity] pairs.
type Orderbook struct {
	Ticker    string
	Yes       []PriceLevel
	No        []PriceLevel
	FetchedAt time.Time
}

// PriceLevel is one price+quantity entry in the orderbook. Price is in
// dollars.
type PriceLevel struct {
	Price    float64
	Quantity int64
}

type orderbookPayload struct {
	Yes [][2]int64 `json:"yes"`
	No  [][2]int64 `json:"no"`
}

func levels(raw [][2]int64) []PriceLevel {
	out := make([]PriceLevel, 0, len(raw))
	for _, pair := range raw {
		out = append(out, PriceLevel{Price: float64(pair[0]) / 100, Quantity: pair[1]})
	}
	return out
}

// BestYes returns the best resting yes price in dollars, or 0 for an empty
// book.
func (b Orderbook) BestYes() float64 { return bestLevel(b.Yes) }

// BestNo returns the best resting no price in dollars, or 0 for an empty
// book.
func (b Orderbook) BestNo() float64 { return bestLevel(b.No) }

func bestLevel(side []PriceLevel) float64 {
	if len(side) == 0 {
		return 0
	}
	return side[0].Price
}

// errorResponse is the Kalshi API error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Domain mapping
// --------------------------------------------------------------------------

func statusFromWire(s string) domain.TradingStatus {
	switch s {
	case "open", "active":
		return domain.TradingStatusOpen
	case "settled", "finalized":
		return domain.TradingStatusSettled
	default:
		return domain.TradingStatusClosed
	}
}

// yesPrice is the market-implied yes probability in dollars: the bid/ask mid
// when both sides are quoted, the last trade otherwise.
func (m Market) yesPrice() float64 {
	return midCents(m.YesBid, m.YesAsk, m.LastPrice)
}

func (m Market) noPrice() float64 {
	return midCents(m.NoBid, m.NoAsk, 100-m.LastPrice)
}

func midCents(bid, ask, fallback int64) float64 {
	if bid > 0 && ask > 0 {
		return float64(bid+ask) / 2 / 100
	}
	return float64(fallback) / 100
}

// outcomeLabel is the display label for a market inside a multi-outcome
// event.
func (m Market) outcomeLabel() string {
	switch {
	case m.YesSubTitle != "":
		return m.YesSubTitle
	case m.Subtitle != "":
		return m.Subtitle
	default:
		return m.Title
	}
}

// eventFromWire merges the event payload with aggregates over its markets.
// Volume, liquidity and open interest are summed; the close time is the
// latest market close.
func eventFromWire(we eventPayload, markets []Market) domain.Event {
	ev := domain.Event{
		Ticker:       we.EventTicker,
		SeriesTicker: we.SeriesTicker,
		Title:        we.Title,
		Category:     we.Category,
		Status:       statusFromWire(we.Status),
	}
	if we.Status == "" {
		ev.Status = marketsStatus(markets)
	}
	for _, m := range markets {
		ev.Volume24h += float64(m.Volume24H)
		ev.Liquidity += float64(m.Liquidity)
		ev.OpenInterest += m.OpenInterest
		if m.CloseTime != nil && (ev.CloseTime == nil || m.CloseTime.After(*ev.CloseTime)) {
			t := *m.CloseTime
			ev.CloseTime = &t
		}
		if ev.Category == "" {
			ev.Category = m.Category
		}
	}
	return ev
}

// marketsStatus derives an event status from its markets: open while any
// market trades, settled once all have settled, closed otherwise.
func marketsStatus(markets []Market) domain.TradingStatus {
	settled := len(markets) > 0
	for _, m := range markets {
		switch statusFromWire(m.Status) {
		case domain.TradingStatusOpen:
			return domain.TradingStatusOpen
		case domain.TradingStatusSettled:
		default:
			settled = false
		}
	}
	if settled {
		return domain.TradingStatusSettled
	}
	return domain.TradingStatusClosed
}

// outcomeSetFromMarkets maps an event's markets into a domain outcome set.
// A single binary market yields the Yes/No pair; a multi-market event yields
// one outcome per market, priced on its yes side.
func outcomeSetFromMarkets(eventTicker string, markets []Market, now time.Time) domain.OutcomeSet {
	set := domain.OutcomeSet{
		EventTicker: eventTicker,
		Status:      marketsStatus(markets),
		FetchedAt:   now,
	}

	if len(markets) == 1 {
		m := markets[0]
		set.Outcomes = []domain.Outcome{
			{
				Ticker:    m.Ticker,
				Label:     "Yes",
				Price:     m.yesPrice(),
				Bid:       float64(m.YesBid) / 100,
				Ask:       float64(m.YesAsk) / 100,
				Liquidity: float64(m.Liquidity),
				Volume24h: float64(m.Volume24H),
			},
			{
				Ticker:    m.Ticker,
				Label:     "No",
				Price:     m.noPrice(),
				Bid:       float64(m.NoBid) / 100,
				Ask:       float64(m.NoAsk) / 100,
				Liquidity: float64(m.Liquidity),
				Volume24h: float64(m.Volume24H),
			},
		}
		return set
	}

	for _, m := range markets {
		set.Outcomes = append(set.Outcomes, domain.Outcome{
			Ticker:    m.Ticker,
			Label:     m.outcomeLabel(),
			Price:     m.yesPrice(),
			Bid:       float64(m.YesBid) / 100,
			Ask:       float64(m.YesAsk) / 100,
			Liquidity: float64(m.Liquidity),
			Volume24h: float64(m.Volume24H),
		})
	}
	return set
}

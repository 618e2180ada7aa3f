package domain

import "strings"

// EventPair is an ordered pair of events under dependency analysis. The order
// is canonical (lexicographic by ticker) so that (A,B) and (B,A) always map
// to the same pair and are never analyzed twice.
type EventPair struct {
	A Event
	B Event
}

// NewEventPair builds a canonical pair from two events, swapping them if
// necessary so that A.Ticker < B.Ticker.
func NewEventPair(a, b Event) EventPair {
	if b.Ticker < a.Ticker {
		a, b = b, a
	}
	return EventPair{A: a, B: b}
}

// Key returns the stable identifier for the pair.
func (p EventPair) Key() string {
	return p.A.Ticker + "|" + p.B.Ticker
}

// SameSeries reports whether both events belong to the same series.
func (p EventPair) SameSeries() bool {
	return p.A.SeriesTicker != "" && p.A.SeriesTicker == p.B.SeriesTicker
}

// SplitPairKey returns the two tickers encoded in a pair key. ok is false
// when the key is not in the canonical "A|B" form.
func SplitPairKey(key string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(key, "|")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

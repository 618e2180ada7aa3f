package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apurv101/openbet/internal/domain"
)

func TestCandidatePairs(t *testing.T) {
	events := []domain.Event{
		{Ticker: "POL-1", Category: "Politics"},
		{Ticker: "POL-2", Category: "Politics"},
		{Ticker: "ECON-1", Category: "Economics"},
		{Ticker: "SER-1", SeriesTicker: "SER", Category: "Sports"},
		{Ticker: "SER-2", SeriesTicker: "SER", Category: "Other"},
	}

	pairs := candidatePairs(events, 0)

	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.Key())
	}
	// Same category and same series qualify; cross-category without a shared
	// series does not.
	assert.ElementsMatch(t, []string{"POL-1|POL-2", "SER-1|SER-2"}, keys)
}

func TestCandidatePairsCap(t *testing.T) {
	events := []domain.Event{
		{Ticker: "A", Category: "Politics"},
		{Ticker: "B", Category: "Politics"},
		{Ticker: "C", Category: "Politics"},
		{Ticker: "D", Category: "Politics"},
	}

	pairs := candidatePairs(events, 3)
	assert.Len(t, pairs, 3)
}

func TestCandidatePairsSkipsBlankCategories(t *testing.T) {
	events := []domain.Event{
		{Ticker: "A"},
		{Ticker: "B"},
	}
	assert.Empty(t, candidatePairs(events, 0))
}

package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return key, pemBytes
}

func testClient(t *testing.T, baseURL string) (*Client, *rsa.PrivateKey) {
	t.Helper()
	key, pemBytes := testKey(t)
	c := NewClient(baseURL, "key-123")
	require.NoError(t, c.SetRSAPrivateKey(pemBytes))
	return c, key
}

func TestSignedRequestHeaders(t *testing.T) {
	var captured *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	c, key := testClient(t, srv.URL)
	_, err := c.ListEvents(context.Background(), domain.TradingStatusOpen, 10)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "key-123", captured.Header.Get("KALSHI-ACCESS-KEY"))
	ts := captured.Header.Get("KALSHI-ACCESS-TIMESTAMP")
	require.NotEmpty(t, ts)

	// The signature must verify over timestamp + method + path, query
	// excluded.
	sig, err := base64.StdEncoding.DecodeString(captured.Header.Get("KALSHI-ACCESS-SIGNATURE"))
	require.NoError(t, err)
	hash := sha256.Sum256([]byte(ts + http.MethodGet + "/events"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	assert.NoError(t, err)

	assert.Equal(t, "open", captured.URL.Query().Get("status"))
	assert.Equal(t, "10", captured.URL.Query().Get("limit"))
}

func TestSignRequestWithoutKey(t *testing.T) {
	c := NewClient("http://localhost", "key-123")
	_, err := c.ListEvents(context.Background(), domain.TradingStatusOpen, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key not configured")
}

func TestSetRSAPrivateKeyRejectsGarbage(t *testing.T) {
	c := NewClient("http://localhost", "key-123")
	err := c.SetRSAPrivateKey([]byte("not a pem"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PEM block")
}

func TestListEventsFollowsCursor(t *testing.T) {
	pages := []string{
		`{"events": [{"event_ticker": "EVT-A", "title": "A?", "status": "open"},
		             {"event_ticker": "EVT-B", "title": "B?", "status": "open"}],
		  "cursor": "next"}`,
		`{"events": [{"event_ticker": "EVT-C", "title": "C?", "status": "open"}],
		  "cursor": ""}`,
	}
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events", r.URL.Path)
		cursors = append(cursors, r.URL.Query().Get("cursor"))
		page := pages[0]
		pages = pages[1:]
		w.Write([]byte(page))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	events, err := c.ListEvents(context.Background(), domain.TradingStatusOpen, 5)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "EVT-A", events[0].Ticker)
	assert.Equal(t, "EVT-C", events[2].Ticker)
	assert.Equal(t, domain.TradingStatusOpen, events[0].Status)
	assert.Equal(t, []string{"", "next"}, cursors)
}

func TestGetEventAggregatesNestedMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events/EVT-PREZ", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("with_nested_markets"))
		w.Write([]byte(`{
			"event": {"event_ticker": "EVT-PREZ", "series_ticker": "PREZ",
			          "title": "Who wins?", "category": "Politics", "status": "open"},
			"markets": [
				{"ticker": "PREZ-ALICE", "volume_24h": 120, "liquidity": 4000,
				 "open_interest": 900, "status": "open",
				 "close_time": "2026-11-03T23:00:00Z"},
				{"ticker": "PREZ-BOB", "volume_24h": 80, "liquidity": 1000,
				 "open_interest": 600, "status": "open",
				 "close_time": "2026-11-04T23:00:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	ev, err := c.GetEvent(context.Background(), "EVT-PREZ")
	require.NoError(t, err)

	assert.Equal(t, "EVT-PREZ", ev.Ticker)
	assert.Equal(t, "PREZ", ev.SeriesTicker)
	assert.Equal(t, domain.TradingStatusOpen, ev.Status)
	assert.Equal(t, float64(200), ev.Volume24h)
	assert.Equal(t, float64(5000), ev.Liquidity)
	assert.Equal(t, int64(1500), ev.OpenInterest)
	require.NotNil(t, ev.CloseTime)
	assert.Equal(t, time.Date(2026, 11, 4, 23, 0, 0, 0, time.UTC), ev.CloseTime.UTC())
}

func TestGetEventNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": "not_found", "message": "event does not exist"}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.GetEvent(context.Background(), "EVT-MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "event does not exist")
}

func TestRateLimitedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code": "rate_limited", "message": "slow down"}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.GetMarket(context.Background(), "PREZ-ALICE")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGetOutcomeSetBinaryMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		require.Equal(t, "EVT-RAIN", r.URL.Query().Get("event_ticker"))
		w.Write([]byte(`{"markets": [
			{"ticker": "RAIN-26SEP", "event_ticker": "EVT-RAIN", "status": "open",
			 "yes_bid": 40, "yes_ask": 44, "no_bid": 56, "no_ask": 60,
			 "last_price": 41, "liquidity": 2500, "volume_24h": 300}
		]}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	set, err := c.GetOutcomeSet(context.Background(), "EVT-RAIN")
	require.NoError(t, err)

	assert.Equal(t, "EVT-RAIN", set.EventTicker)
	assert.Equal(t, domain.TradingStatusOpen, set.Status)
	require.Len(t, set.Outcomes, 2)

	yes, no := set.Outcomes[0], set.Outcomes[1]
	assert.Equal(t, "Yes", yes.Label)
	assert.InDelta(t, 0.42, yes.Price, 1e-9)
	assert.InDelta(t, 0.40, yes.Bid, 1e-9)
	assert.InDelta(t, 0.44, yes.Ask, 1e-9)
	assert.Equal(t, "No", no.Label)
	assert.InDelta(t, 0.58, no.Price, 1e-9)
	assert.Equal(t, "RAIN-26SEP", yes.Ticker)
}

func TestGetOutcomeSetMultiMarketEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets": [
			{"ticker": "PREZ-ALICE", "yes_sub_title": "Alice", "status": "open",
			 "yes_bid": 60, "yes_ask": 64},
			{"ticker": "PREZ-BOB", "yes_sub_title": "Bob", "status": "open",
			 "yes_bid": 30, "yes_ask": 34},
			{"ticker": "PREZ-OTHER", "subtitle": "Someone else", "status": "open",
			 "last_price": 4}
		]}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	set, err := c.GetOutcomeSet(context.Background(), "EVT-PREZ")
	require.NoError(t, err)

	require.Len(t, set.Outcomes, 3)
	assert.Equal(t, "Alice", set.Outcomes[0].Label)
	assert.InDelta(t, 0.62, set.Outcomes[0].Price, 1e-9)
	assert.Equal(t, "Bob", set.Outcomes[1].Label)
	assert.InDelta(t, 0.32, set.Outcomes[1].Price, 1e-9)
	// No quotes on the long shot, so the last trade prices it.
	assert.Equal(t, "Someone else", set.Outcomes[2].Label)
	assert.InDelta(t, 0.04, set.Outcomes[2].Price, 1e-9)
	assert.InDelta(t, 0.98, set.PriceSum(), 1e-9)
}

func TestGetOutcomeSetNoMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets": []}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.GetOutcomeSet(context.Background(), "EVT-EMPTY")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetOrderbook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets/RAIN-26SEP/orderbook", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("depth"))
		w.Write([]byte(`{"orderbook": {"yes": [[42, 100], [41, 250]], "no": [[57, 80]]}}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	book, err := c.GetOrderbook(context.Background(), "RAIN-26SEP", 5)
	require.NoError(t, err)

	assert.Equal(t, "RAIN-26SEP", book.Ticker)
	require.Len(t, book.Yes, 2)
	assert.Equal(t, PriceLevel{Price: 0.42, Quantity: 100}, book.Yes[0])
	assert.InDelta(t, 0.42, book.BestYes(), 1e-9)
	assert.InDelta(t, 0.57, book.BestNo(), 1e-9)
}

func TestMarketsStatus(t *testing.T) {
	assert.Equal(t, domain.TradingStatusOpen, marketsStatus([]Market{
		{Status: "closed"}, {Status: "open"},
	}))
	assert.Equal(t, domain.TradingStatusSettled, marketsStatus([]Market{
		{Status: "settled"}, {Status: "finalized"},
	}))
	assert.Equal(t, domain.TradingStatusClosed, marketsStatus([]Market{
		{Status: "closed"}, {Status: "settled"},
	}))
	assert.Equal(t, domain.TradingStatusClosed, marketsStatus(nil))
}

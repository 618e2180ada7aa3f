// Package kalshi is the REST client for the Kalshi exchange API. It signs
// requests with RSA-PSS and maps the wire types onto the domain model.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/apurv101/openbet/internal/domain"
)

const (
	// DefaultBaseURL is the production trade API root.
	DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	// pageLimit is the API maximum for one list page.
	pageLimit = 200
)

// Client is the Kalshi market-data client. It satisfies domain.MarketData.
type Client struct {
	baseURL    string
	apiKeyID   string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// NewClient creates a Kalshi client. baseURL may be empty to use the
// production API. A private key must be set with SetRSAPrivateKey before any
// request is made.
func NewClient(baseURL, apiKeyID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		apiKeyID: apiKeyID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetRSAPrivateKey loads the signing key from PEM-encoded bytes. PKCS#8 and
// PKCS#1 encodings are accepted.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// ListEvents returns up to limit events in the given status, following the
// pagination cursor across pages. limit <= 0 fetches one full page.
func (c *Client) ListEvents(ctx context.Context, status domain.TradingStatus, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = pageLimit
	}

	var (
		events []domain.Event
		cursor string
	)
	for len(events) < limit {
		page := limit - len(events)
		if page > pageLimit {
			page = pageLimit
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(page))
		if status != "" {
			params.Set("status", string(status))
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp struct {
			Events []eventPayload `json:"events"`
			Cursor string         `json:"cursor"`
		}
		if err := c.doSignedRequest(ctx, http.MethodGet, "/events", params, &resp); err != nil {
			return nil, fmt.Errorf("kalshi: list events: %w", err)
		}

		for _, we := range resp.Events {
			events = append(events, eventFromWire(we, nil))
		}
		if resp.Cursor == "" || len(resp.Events) == 0 {
			break
		}
		cursor = resp.Cursor
	}
	return events, nil
}

// GetEvent returns one event with volume, liquidity, open interest and close
// time aggregated over its nested markets.
func (c *Client) GetEvent(ctx context.Context, ticker string) (domain.Event, error) {
	path := fmt.Sprintf("/events/%s", url.PathEscape(ticker))
	params := url.Values{}
	params.Set("with_nested_markets", "true")

	var resp struct {
		Event   eventPayload `json:"event"`
		Markets []Market     `json:"markets"`
	}
	if err := c.doSignedRequest(ctx, http.MethodGet, path, params, &resp); err != nil {
		return domain.Event{}, fmt.Errorf("kalshi: get event %s: %w", ticker, err)
	}

	return eventFromWire(resp.Event, resp.Markets), nil
}

// GetOutcomeSet returns the current outcome prices for an event. A single
// binary market maps to a Yes/No pair; a multi-market event maps one outcome
// per market.
func (c *Client) GetOutcomeSet(ctx context.Context, eventTicker string) (domain.OutcomeSet, error) {
	params := url.Values{}
	params.Set("event_ticker", eventTicker)
	params.Set("limit", strconv.Itoa(pageLimit))

	var resp struct {
		Markets []Market `json:"markets"`
	}
	if err := c.doSignedRequest(ctx, http.MethodGet, "/markets", params, &resp); err != nil {
		return domain.OutcomeSet{}, fmt.Errorf("kalshi: get outcome set %s: %w", eventTicker, err)
	}
	if len(resp.Markets) == 0 {
		return domain.OutcomeSet{}, fmt.Errorf("kalshi: get outcome set %s: no markets: %w", eventTicker, domain.ErrNotFound)
	}

	return outcomeSetFromMarkets(eventTicker, resp.Markets, time.Now().UTC()), nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	var resp struct {
		Market Market `json:"market"`
	}
	if err := c.doSignedRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}
	return resp.Market, nil
}

// GetOrderbook returns the resting orderbook for a market, up to depth price
// levels per side.
func (c *Client) GetOrderbook(ctx context.Context, ticker string, depth int) (Orderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))
	params := url.Values{}
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}

	var resp struct {
		Orderbook orderbookPayload `json:"orderbook"`
	}
	if err := c.doSignedRequest(ctx, http.MethodGet, path, params, &resp); err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}

	return Orderbook{
		Ticker:    ticker,
		Yes:       levels(resp.Orderbook.Yes),
		No:        levels(resp.Orderbook.No),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedRequest builds, signs, sends and decodes one API request.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.signRequest(req, method, path); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// signRequest adds the Kalshi authentication headers. The signature is
// RSA-PSS-SHA256 over timestamp + method + path; the query string is not
// part of the signed message.
func (c *Client) signRequest(req *http.Request, method, path string) error {
	if c.privateKey == nil {
		return fmt.Errorf("kalshi: RSA private key not configured")
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := ts + method + path

	hash := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("RSA sign: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps non-2xx status codes onto domain sentinels.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrRateLimited)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}

package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

type fakeMarket struct {
	events map[string]domain.Event
	sets   map[string]domain.OutcomeSet
	errors map[string]error
}

func (m *fakeMarket) GetEvent(_ context.Context, ticker string) (domain.Event, error) {
	if err := m.errors[ticker]; err != nil {
		return domain.Event{}, err
	}
	ev, ok := m.events[ticker]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return ev, nil
}

func (m *fakeMarket) ListEvents(_ context.Context, status domain.TradingStatus, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range m.events {
		if ev.Status == status && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *fakeMarket) GetOutcomeSet(_ context.Context, ticker string) (domain.OutcomeSet, error) {
	if err := m.errors[ticker]; err != nil {
		return domain.OutcomeSet{}, err
	}
	set, ok := m.sets[ticker]
	if !ok {
		return domain.OutcomeSet{}, domain.ErrNotFound
	}
	return set, nil
}

type fakeEstimates struct {
	byTicker map[string]Estimate
}

func (f *fakeEstimates) Estimate(_ context.Context, event domain.Event) (Estimate, error) {
	est, ok := f.byTicker[event.Ticker]
	if !ok {
		return Estimate{}, domain.ErrNotFound
	}
	return est, nil
}

type fakeSignalStore struct{ inserted []domain.DivergenceSignal }

func (s *fakeSignalStore) Insert(_ context.Context, sig domain.DivergenceSignal) error {
	s.inserted = append(s.inserted, sig)
	return nil
}
func (s *fakeSignalStore) GetByID(context.Context, string) (domain.DivergenceSignal, error) {
	return domain.DivergenceSignal{}, domain.ErrNotFound
}
func (s *fakeSignalStore) ListByKind(context.Context, domain.SignalKind, domain.ListOpts) ([]domain.DivergenceSignal, error) {
	return nil, nil
}
func (s *fakeSignalStore) ListByEvent(context.Context, string, domain.ListOpts) ([]domain.DivergenceSignal, error) {
	return nil, nil
}

type fakeDecisionStore struct {
	inserted []domain.TradeDecision
	stats    domain.PerformanceStats
}

func (s *fakeDecisionStore) Insert(_ context.Context, d domain.TradeDecision) error {
	s.inserted = append(s.inserted, d)
	return nil
}
func (s *fakeDecisionStore) ListBySignal(context.Context, string) ([]domain.TradeDecision, error) {
	return nil, nil
}
func (s *fakeDecisionStore) List(context.Context, domain.ListOpts) ([]domain.TradeDecision, error) {
	return nil, nil
}
func (s *fakeDecisionStore) Performance(context.Context, time.Time) (domain.PerformanceStats, error) {
	return s.stats, nil
}

type fakePositionStore struct{ open []domain.Position }

func (s *fakePositionStore) Upsert(context.Context, domain.Position) error { return nil }
func (s *fakePositionStore) Close(context.Context, string, float64, float64) error {
	return nil
}
func (s *fakePositionStore) GetByID(context.Context, string) (domain.Position, error) {
	return domain.Position{}, domain.ErrNotFound
}
func (s *fakePositionStore) ListOpen(context.Context) ([]domain.Position, error) {
	return s.open, nil
}
func (s *fakePositionStore) GetOpenByEventSide(_ context.Context, ticker string, side domain.Side) (domain.Position, error) {
	for _, p := range s.open {
		if p.EventTicker == ticker && p.Side == side {
			return p, nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

type fakeAuditStore struct{ entries []string }

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.entries = append(s.entries, event)
	return nil
}
func (s *fakeAuditStore) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeNotifier struct {
	subjects []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, subject, _ string) error {
	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	return nil
}

type strategyFixture struct {
	strategy  *Strategy
	market    *fakeMarket
	estimates *fakeEstimates
	signals   *fakeSignalStore
	decisions *fakeDecisionStore
	positions *fakePositionStore
	audit     *fakeAuditStore
	notifier  *fakeNotifier
}

func newFixture() *strategyFixture {
	f := &strategyFixture{
		market:    &fakeMarket{events: map[string]domain.Event{}, sets: map[string]domain.OutcomeSet{}, errors: map[string]error{}},
		estimates: &fakeEstimates{byTicker: map[string]Estimate{}},
		signals:   &fakeSignalStore{},
		decisions: &fakeDecisionStore{},
		positions: &fakePositionStore{},
		audit:     &fakeAuditStore{},
		notifier:  &fakeNotifier{},
	}
	f.strategy = NewStrategy(SignalConfig{}, f.market, f.estimates, f.signals, f.decisions, f.positions, f.audit, f.notifier, testLogger())
	return f
}

func (f *strategyFixture) addEvent(ticker string, yes, no float64, est Estimate) domain.Event {
	ev := openEvent(ticker)
	f.market.events[ticker] = ev
	f.market.sets[ticker] = yesNoSet(ticker, yes, no)
	f.estimates.byTicker[ticker] = est
	return ev
}

func TestScanForEntriesRanksByDivergence(t *testing.T) {
	f := newFixture()
	small := f.addEvent("EVT-SMALL", 0.40, 0.58, Estimate{Yes: 0.48, No: 0.53})
	large := f.addEvent("EVT-LARGE", 0.40, 0.58, Estimate{Yes: 0.60, No: 0.42})
	flat := f.addEvent("EVT-FLAT", 0.50, 0.49, Estimate{Yes: 0.51, No: 0.50})

	got, err := f.strategy.ScanForEntries(context.Background(), []domain.Event{small, large, flat})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "EVT-LARGE", got[0].EventTicker)
	assert.Equal(t, "EVT-SMALL", got[1].EventTicker)
	assert.Greater(t, got[0].Divergence, got[1].Divergence)
}

func TestScanForEntriesSkipsHeldSides(t *testing.T) {
	f := newFixture()
	ev := f.addEvent("EVT-A", 0.40, 0.58, Estimate{Yes: 0.60, No: 0.42})
	f.positions.open = []domain.Position{{ID: "p1", EventTicker: "EVT-A", Side: domain.SideYes, Quantity: 50}}

	got, err := f.strategy.ScanForEntries(context.Background(), []domain.Event{ev})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanForEntriesSurvivesPerEventFailures(t *testing.T) {
	f := newFixture()
	good := f.addEvent("EVT-GOOD", 0.40, 0.58, Estimate{Yes: 0.60, No: 0.42})
	bad := openEvent("EVT-BAD")
	f.market.events["EVT-BAD"] = bad
	f.market.errors["EVT-BAD"] = errors.New("exchange unavailable")
	f.estimates.byTicker["EVT-BAD"] = Estimate{Yes: 0.60, No: 0.42}

	got, err := f.strategy.ScanForEntries(context.Background(), []domain.Event{bad, good})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EVT-GOOD", got[0].EventTicker)
}

func TestScanForEntriesFlagsExposureLimit(t *testing.T) {
	f := newFixture()
	ev := f.addEvent("EVT-A", 0.40, 0.58, Estimate{Yes: 0.60, No: 0.42})
	f.positions.open = []domain.Position{{ID: "p1", EventTicker: "EVT-A", Side: domain.SideNo, Quantity: 180}}

	got, err := f.strategy.ScanForEntries(context.Background(), []domain.Event{ev})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].PassedRisk)
	require.NotEmpty(t, got[0].RiskWarnings)
	assert.Contains(t, got[0].RiskWarnings[len(got[0].RiskWarnings)-1], "market limit")
}

func TestMonitorExitsReturnsConvergedPositions(t *testing.T) {
	f := newFixture()
	f.addEvent("EVT-A", 0.55, 0.45, Estimate{Yes: 0.555, No: 0.445})
	f.addEvent("EVT-B", 0.48, 0.52, Estimate{Yes: 0.60, No: 0.40})
	f.positions.open = []domain.Position{
		{ID: "p1", EventTicker: "EVT-A", Side: domain.SideYes, Quantity: 52, AvgPrice: 0.40},
		{ID: "p2", EventTicker: "EVT-B", Side: domain.SideYes, Quantity: 10, AvgPrice: 0.45},
	}

	got, err := f.strategy.MonitorExits(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PositionID)
	assert.Equal(t, "sell_yes", got[0].Action)
	assert.Equal(t, 52, got[0].Quantity)
}

func TestRecordDecisionPersistsAndNotifies(t *testing.T) {
	f := newFixture()
	sig := domain.DivergenceSignal{
		ID:          "s1",
		EventTicker: "EVT-A",
		Kind:        domain.SignalEntry,
		Action:      "buy_yes",
		Quantity:    52,
		Price:       0.40,
	}

	decision, err := f.strategy.RecordDecision(context.Background(), sig, domain.DecisionApproved, "looks good")
	require.NoError(t, err)
	assert.Equal(t, "s1", decision.SignalID)
	assert.Equal(t, domain.DecisionApproved, decision.Decision)
	assert.InDelta(t, 20.8, decision.Cost, 1e-9)

	require.Len(t, f.signals.inserted, 1)
	require.Len(t, f.decisions.inserted, 1)
	assert.Equal(t, []string{"trade_decision"}, f.audit.entries)
	require.Len(t, f.notifier.subjects, 1)
	assert.Contains(t, f.notifier.subjects[0], "buy_yes")
}

func TestRecordDecisionRejectionSkipsNotification(t *testing.T) {
	f := newFixture()
	sig := domain.DivergenceSignal{ID: "s1", EventTicker: "EVT-A", Action: "buy_yes"}

	_, err := f.strategy.RecordDecision(context.Background(), sig, domain.DecisionRejected, "")
	require.NoError(t, err)
	assert.Empty(t, f.notifier.subjects)
	require.Len(t, f.decisions.inserted, 1)
	assert.Equal(t, domain.DecisionRejected, f.decisions.inserted[0].Decision)
}

func TestRecordDecisionToleratesNotifierFailure(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("webhook down")
	sig := domain.DivergenceSignal{ID: "s1", EventTicker: "EVT-A", Action: "buy_yes"}

	_, err := f.strategy.RecordDecision(context.Background(), sig, domain.DecisionApproved, "")
	require.NoError(t, err)
	require.Len(t, f.decisions.inserted, 1)
}

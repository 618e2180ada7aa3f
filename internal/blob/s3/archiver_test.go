package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

type capturedPut struct {
	path        string
	contentType string
	body        string
}

type fakeWriter struct {
	puts []capturedPut
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts = append(w.puts, capturedPut{path: path, contentType: contentType, body: string(body)})
	return nil
}

type fakeDecisionStore struct {
	decisions []domain.TradeDecision
	lastOpts  domain.ListOpts
}

func (s *fakeDecisionStore) List(_ context.Context, opts domain.ListOpts) ([]domain.TradeDecision, error) {
	s.lastOpts = opts
	return s.decisions, nil
}

type fakeSignalStore struct {
	byKind map[domain.SignalKind][]domain.DivergenceSignal
}

func (s *fakeSignalStore) ListByKind(_ context.Context, kind domain.SignalKind, _ domain.ListOpts) ([]domain.DivergenceSignal, error) {
	return s.byKind[kind], nil
}

type fakeAuditStore struct {
	entries []domain.AuditEntry
	logged  []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.logged = append(s.logged, event)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return s.entries, nil
}

func TestArchiveDecisions(t *testing.T) {
	writer := &fakeWriter{}
	decisions := &fakeDecisionStore{decisions: []domain.TradeDecision{
		{ID: "d1", SignalID: "s1", Decision: domain.DecisionApproved},
		{ID: "d2", SignalID: "s2", Decision: domain.DecisionRejected},
	}}
	audit := &fakeAuditStore{}
	arch := NewArchiver(writer, decisions, &fakeSignalStore{}, audit)

	before := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	count, err := arch.ArchiveDecisions(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NotNil(t, decisions.lastOpts.Until)
	assert.Equal(t, before, *decisions.lastOpts.Until)

	require.Len(t, writer.puts, 1)
	put := writer.puts[0]
	assert.Equal(t, "archive/decisions/2026-08.jsonl", put.path)
	assert.Equal(t, "application/x-ndjson", put.contentType)
	lines := strings.Split(strings.TrimRight(put.body, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"d1"`)

	assert.Equal(t, []string{"archive.decisions"}, audit.logged)
}

func TestArchiveSignalsMergesKinds(t *testing.T) {
	writer := &fakeWriter{}
	signals := &fakeSignalStore{byKind: map[domain.SignalKind][]domain.DivergenceSignal{
		domain.SignalEntry: {{ID: "e1"}, {ID: "e2"}},
		domain.SignalExit:  {{ID: "x1"}},
	}}
	audit := &fakeAuditStore{}
	arch := NewArchiver(writer, &fakeDecisionStore{}, signals, audit)

	count, err := arch.ArchiveSignals(context.Background(), time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.Len(t, writer.puts, 1)
	assert.Equal(t, "archive/signals/2026-07.jsonl", writer.puts[0].path)
}

func TestArchiveSkipsEmpty(t *testing.T) {
	writer := &fakeWriter{}
	audit := &fakeAuditStore{}
	arch := NewArchiver(writer, &fakeDecisionStore{}, &fakeSignalStore{}, audit)

	count, err := arch.ArchiveDecisions(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.puts)
	assert.Empty(t, audit.logged)
}

func TestArchiveAudit(t *testing.T) {
	writer := &fakeWriter{}
	audit := &fakeAuditStore{entries: []domain.AuditEntry{
		{ID: 1, Event: "trade_decision"},
	}}
	arch := NewArchiver(writer, &fakeDecisionStore{}, &fakeSignalStore{}, audit)

	count, err := arch.ArchiveAudit(context.Background(), time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, writer.puts, 1)
	assert.Equal(t, "archive/audit/2026-06.jsonl", writer.puts[0].path)
	assert.Equal(t, []string{"archive.audit"}, audit.logged)
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apurv101/openbet/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy them implicitly; the archiver only needs the time-ranged queries
// it actually calls.

// DecisionArchiveStore provides read access to decisions for archival.
type DecisionArchiveStore interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.TradeDecision, error)
}

// SignalArchiveStore provides read access to signals for archival.
type SignalArchiveStore interface {
	ListByKind(ctx context.Context, kind domain.SignalKind, opts domain.ListOpts) ([]domain.DivergenceSignal, error)
}

// Archiver exports decision, signal and audit history as JSONL files in
// object storage. It never deletes from the primary store; pruning is a
// separate explicit step taken after an archive has been verified.
type Archiver struct {
	writer    BlobWriter
	decisions DecisionArchiveStore
	signals   SignalArchiveStore
	audit     domain.AuditStore
}

// NewArchiver creates an Archiver over the given stores.
func NewArchiver(writer BlobWriter, decisions DecisionArchiveStore, signals SignalArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:    writer,
		decisions: decisions,
		signals:   signals,
		audit:     audit,
	}
}

// ArchiveDecisions uploads all decisions recorded up to the cutoff as JSONL
// at archive/decisions/YYYY-MM.jsonl, records the archival in the audit log,
// and returns the number of archived records.
func (a *Archiver) ArchiveDecisions(ctx context.Context, before time.Time) (int64, error) {
	decisions, err := a.decisions.List(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions query: %w", err)
	}
	if len(decisions) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(decisions)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions marshal: %w", err)
	}

	path := archivePath("decisions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions upload: %w", err)
	}

	count := int64(len(decisions))
	if err := a.logArchive(ctx, "archive.decisions", path, count, before); err != nil {
		return count, err
	}
	return count, nil
}

// ArchiveSignals uploads entry and exit signals recorded up to the cutoff as
// JSONL at archive/signals/YYYY-MM.jsonl.
func (a *Archiver) ArchiveSignals(ctx context.Context, before time.Time) (int64, error) {
	opts := domain.ListOpts{Until: &before}

	entries, err := a.signals.ListByKind(ctx, domain.SignalEntry, opts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive entry signals query: %w", err)
	}
	exits, err := a.signals.ListByKind(ctx, domain.SignalExit, opts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive exit signals query: %w", err)
	}

	signals := append(entries, exits...)
	if len(signals) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(signals)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive signals marshal: %w", err)
	}

	path := archivePath("signals", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive signals upload: %w", err)
	}

	count := int64(len(signals))
	if err := a.logArchive(ctx, "archive.signals", path, count, before); err != nil {
		return count, err
	}
	return count, nil
}

// ArchiveAudit uploads audit entries recorded up to the cutoff as JSONL at
// archive/audit/YYYY-MM.jsonl.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.List(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	count := int64(len(entries))
	if err := a.logArchive(ctx, "archive.audit", path, count, before); err != nil {
		return count, err
	}
	return count, nil
}

func (a *Archiver) logArchive(ctx context.Context, event, path string, count int64, before time.Time) error {
	err := a.audit.Log(ctx, event, map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("s3blob: %s audit log: %w", event, err)
	}
	return nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/decisions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Package store provides in-memory implementations of the recon persistence
// contracts, used for testing and development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alms/recon-engine/recon"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements RecordStore, Applier, RunStore, ReviewStore and AuditLog
// over plain maps. WithTx simulates transactions with snapshot + rollback.
type Memory struct {
	mu      sync.RWMutex
	rows    map[recon.SourceKind]map[recon.SourceID]recon.RawRow
	backups map[string][]recon.RawRow
	links   []LinkRow
	reviews map[string]recon.ReviewItem
	runs    map[recon.RunID]recon.RunRecord
	audit   []recon.AuditEntry

	reviewSeq int
}

// LinkRow is one matching-ledger entry: member settled into anchor.
type LinkRow struct {
	Anchor recon.RecordRef
	Member recon.RecordRef
	RunID  recon.RunID
	Reason string
}

func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[recon.SourceKind]map[recon.SourceID]recon.RawRow),
		backups: make(map[string][]recon.RawRow),
		reviews: make(map[string]recon.ReviewItem),
		runs:    make(map[recon.RunID]recon.RunRecord),
	}
}

// =============================================================================
// SEEDING / INSPECTION
// =============================================================================

// AddRow inserts a raw row for a source kind. The row must carry an "id"
// column.
func (m *Memory) AddRow(kind recon.SourceKind, row recon.RawRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[kind] == nil {
		m.rows[kind] = make(map[recon.SourceID]recon.RawRow)
	}
	id := recon.SourceID(fmt.Sprintf("%v", row["id"]))
	m.rows[kind][id] = row
}

// InsertRow is the context-taking form of AddRow, matching the SQLite store.
func (m *Memory) InsertRow(_ context.Context, kind recon.SourceKind, row recon.RawRow) error {
	m.AddRow(kind, row)
	return nil
}

// ListRows returns all surviving rows of a kind, ordered by source id.
func (m *Memory) ListRows(_ context.Context, kind recon.SourceKind) ([]recon.RawRow, error) {
	return m.Rows(kind), nil
}

// Rows returns all surviving rows of a kind, ordered by source id.
func (m *Memory) Rows(kind recon.SourceKind) []recon.RawRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []recon.SourceID
	for id := range m.rows[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return recon.CompareSourceID(ids[i], ids[j]) < 0 })
	out := make([]recon.RawRow, len(ids))
	for i, id := range ids {
		out[i] = m.rows[kind][id]
	}
	return out
}

// Links returns the matching ledger.
func (m *Memory) Links() []LinkRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LinkRow(nil), m.links...)
}

// Backups returns the backup tables keyed by name.
func (m *Memory) Backups() map[string][]recon.RawRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]recon.RawRow, len(m.backups))
	for k, v := range m.backups {
		out[k] = append([]recon.RawRow(nil), v...)
	}
	return out
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (m *Memory) LoadWindow(_ context.Context, kind recon.SourceKind, from, to recon.Date) ([]recon.RawRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []recon.RawRow
	for _, row := range m.rows[kind] {
		d, ok := rowDate(row)
		if !ok {
			out = append(out, row) // let the normalizer report the bad row
			continue
		}
		if !d.Before(from) && !d.After(to) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a := recon.SourceID(fmt.Sprintf("%v", out[i]["id"]))
		b := recon.SourceID(fmt.Sprintf("%v", out[j]["id"]))
		return recon.CompareSourceID(a, b) < 0
	})
	return out, nil
}

func rowDate(row recon.RawRow) (recon.Date, bool) {
	for _, col := range []string{"date", "transaction_date", "payment_date", "receipt_date", "refund_date", "posted_date"} {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case recon.Date:
			return t, true
		case time.Time:
			return recon.DateOf(t), true
		case string:
			if d, err := recon.ParseDate(t); err == nil {
				return d, true
			}
		}
	}
	return recon.Date{}, false
}

// =============================================================================
// APPLIER - Snapshot + rollback transaction simulation
// =============================================================================

func (m *Memory) WithTx(_ context.Context, fn func(recon.ApplyOps) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memoryOps{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memoryOps struct {
	m *Memory
}

func (o *memoryOps) BackupAndDelete(kind recon.SourceKind, ids []recon.SourceID, reason string) error {
	table := o.m.rows[kind]
	backupName := fmt.Sprintf("backup_%s_%s", kind, time.Now().UTC().Format("20060102150405"))
	for _, id := range ids {
		row, ok := table[id]
		if !ok {
			return fmt.Errorf("delete %s/%s: row not found", kind, id)
		}
		o.m.backups[backupName] = append(o.m.backups[backupName], row)
		delete(table, id)
	}
	return nil
}

func (o *memoryOps) Link(anchor recon.RecordRef, members []recon.RecordRef, runID recon.RunID, reason string) error {
	for _, member := range members {
		if _, ok := o.m.rows[member.Kind][member.ID]; !ok {
			return fmt.Errorf("link %s: row not found", member)
		}
		if o.m.linked(anchor, member) {
			continue // re-runs rediscover existing links
		}
		o.m.links = append(o.m.links, LinkRow{Anchor: anchor, Member: member, RunID: runID, Reason: reason})
	}
	return nil
}

func sameRefs(a, b []recon.RecordRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Memory) linked(anchor, member recon.RecordRef) bool {
	for _, l := range m.links {
		if l.Anchor == anchor && l.Member == member {
			return true
		}
	}
	return false
}

func (o *memoryOps) Flag(refs []recon.RecordRef, runID recon.RunID, reason string) error {
	// Re-runs rediscover the same component; one open item per target set.
	for _, item := range o.m.reviews {
		if item.Status == recon.ReviewOpen && sameRefs(item.Targets, refs) {
			return nil
		}
	}

	o.m.reviewSeq++
	item := recon.ReviewItem{
		ID:        fmt.Sprintf("review-%04d", o.m.reviewSeq),
		RunID:     runID,
		Targets:   append([]recon.RecordRef(nil), refs...),
		Reason:    reason,
		Status:    recon.ReviewOpen,
		CreatedAt: time.Now().UTC(),
	}
	o.m.reviews[item.ID] = item
	return nil
}

type memorySnapshot struct {
	rows      map[recon.SourceKind]map[recon.SourceID]recon.RawRow
	backups   map[string][]recon.RawRow
	links     []LinkRow
	reviews   map[string]recon.ReviewItem
	reviewSeq int
}

func (m *Memory) snapshot() memorySnapshot {
	rows := make(map[recon.SourceKind]map[recon.SourceID]recon.RawRow, len(m.rows))
	for kind, table := range m.rows {
		cp := make(map[recon.SourceID]recon.RawRow, len(table))
		for id, row := range table {
			cp[id] = row
		}
		rows[kind] = cp
	}
	backups := make(map[string][]recon.RawRow, len(m.backups))
	for name, rs := range m.backups {
		backups[name] = append([]recon.RawRow(nil), rs...)
	}
	reviews := make(map[string]recon.ReviewItem, len(m.reviews))
	for id, item := range m.reviews {
		reviews[id] = item
	}
	return memorySnapshot{
		rows:      rows,
		backups:   backups,
		links:     append([]LinkRow(nil), m.links...),
		reviews:   reviews,
		reviewSeq: m.reviewSeq,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.rows = s.rows
	m.backups = s.backups
	m.links = s.links
	m.reviews = s.reviews
	m.reviewSeq = s.reviewSeq
}

// =============================================================================
// RUN STORE
// =============================================================================

func (m *Memory) SaveRun(_ context.Context, run recon.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id recon.RunID) (*recon.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, recon.ErrRunNotFound
	}
	return &run, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]recon.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recon.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// =============================================================================
// REVIEW STORE
// =============================================================================

func (m *Memory) ListReview(_ context.Context, status recon.ReviewStatus) ([]recon.ReviewItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []recon.ReviewItem
	for _, item := range m.reviews {
		if status == "" || item.Status == status {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetReview(_ context.Context, id string) (*recon.ReviewItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.reviews[id]
	if !ok {
		return nil, recon.ErrReviewItemNotFound
	}
	return &item, nil
}

func (m *Memory) ResolveReview(_ context.Context, id string, status recon.ReviewStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.reviews[id]
	if !ok {
		return recon.ErrReviewItemNotFound
	}
	if item.Status != recon.ReviewOpen {
		return recon.ErrReviewAlreadyResolved
	}
	item.Status = status
	item.Note = note
	item.ResolvedAt = time.Now().UTC()
	m.reviews[id] = item
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry recon.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter recon.AuditFilter) ([]recon.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []recon.AuditEntry
	for _, e := range m.audit {
		if filter.RunID != nil && e.RunID != *filter.RunID {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

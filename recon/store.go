/*
store.go - Persistence contracts around the pure engine

PURPOSE:
  The engine itself never touches a database. These interfaces define what a
  caller-supplied persistence layer must provide for the fetch-classify-
  plan-apply cycle: candidate fetch, transactional apply, review queue, run
  records, and an append-only audit log.

APPLY CONTRACT:
  Apply work runs inside ONE transaction so an action batch is all-or-
  nothing. Deletes copy the affected rows to a timestamped backup table
  first; links are foreign-key rows in a matching ledger; flags go to the
  review queue and are never auto-applied.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - recon/store/memory.go:  In-memory for testing/dev

SEE ALSO:
  - plan.go: Produces the actions the Applier consumes
  - banking/runner.go: Drives the full cycle
*/
package recon

import (
	"context"
	"time"
)

// RawRow is one row from an origin table, keyed by column name. Field meaning
// is never inferred from column order.
type RawRow map[string]any

// =============================================================================
// RECORD STORE - Candidate fetch
// =============================================================================

// RecordStore loads candidate rows for one reconciliation invocation. The
// caller bounds the set (a statement month, a banking batch); the engine is
// never run across a whole table.
type RecordStore interface {
	// LoadWindow returns all rows of one source kind dated in [from, to].
	LoadWindow(ctx context.Context, kind SourceKind, from, to Date) ([]RawRow, error)
}

// =============================================================================
// APPLIER - Transactional plan application
// =============================================================================

// Applier applies a resolution plan. WithTx runs fn inside one transaction:
// if fn returns an error everything rolls back, mirroring the
// backup-then-delete-then-commit-or-rollback discipline.
type Applier interface {
	WithTx(ctx context.Context, fn func(ApplyOps) error) error
}

// ApplyOps are the mutations available inside an apply transaction.
type ApplyOps interface {
	// BackupAndDelete copies the rows to a timestamped backup table, then
	// deletes them from the origin table.
	BackupAndDelete(kind SourceKind, ids []SourceID, reason string) error

	// Link records that the member rows settle into the anchor row.
	Link(anchor RecordRef, members []RecordRef, runID RunID, reason string) error

	// Flag queues the records for human review. Flagged records are never
	// auto-applied.
	Flag(refs []RecordRef, runID RunID, reason string) error
}

// =============================================================================
// RUN RECORDS
// =============================================================================

type RunID string

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunSummary is the user-visible outcome of one reconciliation run: a count
// of scanned/skipped/flagged/deleted items, never a silent partial commit.
type RunSummary struct {
	Scanned  int `json:"scanned"`
	Skipped  int `json:"skipped"`
	Verdicts int `json:"verdicts"`
	Deleted  int `json:"deleted"`
	Linked   int `json:"linked"`
	Flagged  int `json:"flagged"`
}

type RunRecord struct {
	ID         RunID        `json:"id"`
	Kinds      []SourceKind `json:"kinds"`
	From       Date         `json:"from"`
	To         Date         `json:"to"`
	Status     RunStatus    `json:"status"`
	Summary    RunSummary   `json:"summary"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
}

type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id RunID) (*RunRecord, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
}

// =============================================================================
// REVIEW QUEUE
// =============================================================================

type ReviewStatus string

const (
	ReviewOpen     ReviewStatus = "open"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewItem is one flagged component awaiting a human decision.
type ReviewItem struct {
	ID         string       `json:"id"`
	RunID      RunID        `json:"run_id"`
	Targets    []RecordRef  `json:"targets"`
	Reason     string       `json:"reason"`
	Status     ReviewStatus `json:"status"`
	Note       string       `json:"note,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedAt time.Time    `json:"resolved_at,omitempty"`
}

type ReviewStore interface {
	ListReview(ctx context.Context, status ReviewStatus) ([]ReviewItem, error)
	GetReview(ctx context.Context, id string) (*ReviewItem, error)
	ResolveReview(ctx context.Context, id string, status ReviewStatus, note string) error
}

// =============================================================================
// AUDIT LOG - Append-only, one entry per applied action
// =============================================================================

type AuditEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     RunID       `json:"run_id"`
	Action    ActionType  `json:"action"`
	Targets   []RecordRef `json:"targets"`
	Anchor    *RecordRef  `json:"anchor,omitempty"`
	Reason    string      `json:"reason"`
}

type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	RunID  *RunID
	Action *ActionType
	From   *time.Time
	To     *time.Time
}

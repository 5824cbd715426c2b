/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces around the reconciliation engine.

PURPOSE:
  Implements recon.RecordStore, recon.Applier, recon.RunStore,
  recon.ReviewStore and recon.AuditLog over the almsdata-shaped tables.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  banking_transactions: Bank feed rows (debit/credit pair)
  payments:             Square/LMS payment rows (signed amount)
  receipts:             Expense receipt rows
  charter_refunds:      Refund rows
  recon_links:          Matching ledger (member settled into anchor)
  review_queue:         Flagged components awaiting a human
  recon_runs:           One row per reconciliation run
  audit_log:            Append-only, one entry per applied action

BACKUP-THEN-DELETE:
  Deletes never run bare. Inside the apply transaction the affected rows
  are first copied to a timestamped backup_<table>_<ts> table, then
  deleted. The whole plan commits or rolls back as one unit.

WAL MODE:
  SQLite is opened with WAL so readers do not block during an apply.

USAGE:
  st, err := sqlite.New("./almsdata.db")
  if err != nil { log.Fatal(err) }
  defer st.Close()
  runner := banking.NewRunner(st, st, st, st)

SEE ALSO:
  - recon/store.go: Interface definitions
  - recon/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/alms/recon-engine/recon"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writes anyway, and a ":memory:"
	// database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Source tables (shapes mirror the back-office database)
	CREATE TABLE IF NOT EXISTS banking_transactions (
		id TEXT PRIMARY KEY,
		transaction_date TEXT NOT NULL,
		debit TEXT,
		credit TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_banking_date
		ON banking_transactions(transaction_date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		payment_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		customer TEXT,
		memo TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_date ON payments(payment_date);

	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		receipt_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		vendor TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_receipts_date ON receipts(receipt_date);

	CREATE TABLE IF NOT EXISTS charter_refunds (
		id TEXT PRIMARY KEY,
		refund_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		customer TEXT,
		reason TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_refunds_date ON charter_refunds(refund_date);

	-- Matching ledger: member row settled into anchor row
	CREATE TABLE IF NOT EXISTS recon_links (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		anchor_kind TEXT NOT NULL,
		anchor_id TEXT NOT NULL,
		member_kind TEXT NOT NULL,
		member_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(anchor_kind, anchor_id, member_kind, member_id)
	);
	CREATE INDEX IF NOT EXISTS idx_links_anchor
		ON recon_links(anchor_kind, anchor_id);
	CREATE INDEX IF NOT EXISTS idx_links_member
		ON recon_links(member_kind, member_id);

	-- Flagged components awaiting human review; never auto-applied
	CREATE TABLE IF NOT EXISTS review_queue (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		targets_json TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL,
		resolved_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_review_status ON review_queue(status);

	-- One row per reconciliation run
	CREATE TABLE IF NOT EXISTS recon_runs (
		id TEXT PRIMARY KEY,
		kinds TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		status TEXT NOT NULL,
		summary_json TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON recon_runs(started_at);

	-- Append-only audit log
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		action TEXT NOT NULL,
		targets_json TEXT NOT NULL,
		anchor_kind TEXT,
		anchor_id TEXT,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_log(run_id);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TABLE SPECS - Column contracts per source kind
// =============================================================================

type tableSpec struct {
	name    string
	dateCol string
	columns []string
}

var tableSpecs = map[recon.SourceKind]tableSpec{
	recon.KindBankTransaction: {
		name:    "banking_transactions",
		dateCol: "transaction_date",
		columns: []string{"id", "transaction_date", "debit", "credit", "description", "created_at"},
	},
	recon.KindPayment: {
		name:    "payments",
		dateCol: "payment_date",
		columns: []string{"id", "payment_date", "amount", "customer", "memo", "created_at"},
	},
	recon.KindReceipt: {
		name:    "receipts",
		dateCol: "receipt_date",
		columns: []string{"id", "receipt_date", "amount", "vendor", "notes", "created_at"},
	},
	recon.KindRefund: {
		name:    "charter_refunds",
		dateCol: "refund_date",
		columns: []string{"id", "refund_date", "amount", "customer", "reason", "created_at"},
	},
}

func specFor(kind recon.SourceKind) (tableSpec, error) {
	spec, ok := tableSpecs[kind]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %q", recon.ErrUnknownSourceKind, kind)
	}
	return spec, nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) LoadWindow(ctx context.Context, kind recon.SourceKind, from, to recon.Date) ([]recon.RawRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s >= ? AND %s <= ? ORDER BY id",
		strings.Join(spec.columns, ", "), spec.name, spec.dateCol, spec.dateCol)

	rows, err := s.db.QueryContext(ctx, query, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", spec.name, err)
	}
	defer rows.Close()
	return scanRawRows(rows, spec.columns)
}

// ListRows returns every row of a kind, for inspection endpoints.
func (s *Store) ListRows(ctx context.Context, kind recon.SourceKind) ([]recon.RawRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, err := specFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s, id",
		strings.Join(spec.columns, ", "), spec.name, spec.dateCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", spec.name, err)
	}
	defer rows.Close()
	return scanRawRows(rows, spec.columns)
}

// InsertRow inserts one raw row into a source table. Used by seeding and by
// import tooling; reconciliation itself never inserts source rows.
func (s *Store) InsertRow(ctx context.Context, kind recon.SourceKind, row recon.RawRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := specFor(kind)
	if err != nil {
		return err
	}
	cols := make([]string, 0, len(spec.columns))
	args := make([]any, 0, len(spec.columns))
	for _, col := range spec.columns {
		if col == "created_at" {
			cols = append(cols, col)
			args = append(args, time.Now().UTC().Format(time.RFC3339))
			continue
		}
		if v, ok := row[col]; ok && v != nil {
			cols = append(cols, col)
			args = append(args, fmt.Sprintf("%v", v))
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.name, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", spec.name, err)
	}
	return nil
}

func scanRawRows(rows *sql.Rows, columns []string) ([]recon.RawRow, error) {
	var out []recon.RawRow
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(recon.RawRow, len(columns))
		for i, col := range columns {
			if values[i].Valid {
				row[col] = values[i].String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// =============================================================================
// APPLIER - One transaction per plan
// =============================================================================

func (s *Store) WithTx(ctx context.Context, fn func(recon.ApplyOps) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ops := &txOps{ctx: ctx, tx: tx}
	if err := fn(ops); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

type txOps struct {
	ctx context.Context
	tx  *sql.Tx
}

func (o *txOps) BackupAndDelete(kind recon.SourceKind, ids []recon.SourceID, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	spec, err := specFor(kind)
	if err != nil {
		return err
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}
	in := placeholders(len(ids))

	backup := fmt.Sprintf("backup_%s_%s", spec.name, time.Now().UTC().Format("20060102150405"))
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM %s WHERE 0", backup, spec.name)
	if _, err := o.tx.ExecContext(o.ctx, create); err != nil {
		return fmt.Errorf("create backup table: %w", err)
	}
	copyStmt := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s WHERE id IN (%s)", backup, spec.name, in)
	res, err := o.tx.ExecContext(o.ctx, copyStmt, args...)
	if err != nil {
		return fmt.Errorf("backup rows: %w", err)
	}
	copied, _ := res.RowsAffected()
	if copied != int64(len(ids)) {
		return fmt.Errorf("backup %s: expected %d rows, copied %d", spec.name, len(ids), copied)
	}
	del := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", spec.name, in)
	if _, err := o.tx.ExecContext(o.ctx, del, args...); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	return nil
}

func (o *txOps) Link(anchor recon.RecordRef, members []recon.RecordRef, runID recon.RunID, reason string) error {
	// OR IGNORE: re-runs rediscover existing links; the ledger keeps one
	// row per anchor/member pair.
	stmt := `INSERT OR IGNORE INTO recon_links
		(id, run_id, anchor_kind, anchor_id, member_kind, member_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, member := range members {
		_, err := o.tx.ExecContext(o.ctx, stmt,
			uuid.NewString(), string(runID),
			string(anchor.Kind), string(anchor.ID),
			string(member.Kind), string(member.ID),
			reason, now)
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}
	return nil
}

func (o *txOps) Flag(refs []recon.RecordRef, runID recon.RunID, reason string) error {
	targets, err := json.Marshal(refs)
	if err != nil {
		return err
	}

	// Re-runs rediscover the same component; one open item per target set.
	var open int
	err = o.tx.QueryRowContext(o.ctx,
		`SELECT COUNT(*) FROM review_queue WHERE status = ? AND targets_json = ?`,
		string(recon.ReviewOpen), string(targets)).Scan(&open)
	if err != nil {
		return fmt.Errorf("check review queue: %w", err)
	}
	if open > 0 {
		return nil
	}

	stmt := `INSERT INTO review_queue
		(id, run_id, targets_json, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = o.tx.ExecContext(o.ctx, stmt,
		uuid.NewString(), string(runID), string(targets), reason,
		string(recon.ReviewOpen), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

// =============================================================================
// RUN STORE
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, run recon.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]string, len(run.Kinds))
	for i, k := range run.Kinds {
		kinds[i] = string(k)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return err
	}
	finished := ""
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Format(time.RFC3339)
	}
	stmt := `INSERT INTO recon_runs
		(id, kinds, from_date, to_date, status, summary_json, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			summary_json = excluded.summary_json,
			error = excluded.error,
			finished_at = excluded.finished_at`
	_, err = s.db.ExecContext(ctx, stmt,
		string(run.ID), strings.Join(kinds, ","),
		run.From.String(), run.To.String(), string(run.Status),
		string(summary), run.Error,
		run.StartedAt.Format(time.RFC3339), finished)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id recon.RunID) (*recon.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, kinds, from_date, to_date, status, summary_json, error, started_at, finished_at
		 FROM recon_runs WHERE id = ?`, string(id))
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, recon.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context) ([]recon.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kinds, from_date, to_date, status, summary_json, error, started_at, finished_at
		 FROM recon_runs ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*recon.RunRecord, error) {
	var run recon.RunRecord
	var kinds, fromDate, toDate, status, summaryJSON, errMsg, started string
	var finished sql.NullString
	if err := r.Scan(&run.ID, &kinds, &fromDate, &toDate, &status, &summaryJSON, &errMsg, &started, &finished); err != nil {
		return nil, err
	}
	for _, k := range strings.Split(kinds, ",") {
		if k != "" {
			run.Kinds = append(run.Kinds, recon.SourceKind(k))
		}
	}
	var err error
	if run.From, err = recon.ParseDate(fromDate); err != nil {
		return nil, err
	}
	if run.To, err = recon.ParseDate(toDate); err != nil {
		return nil, err
	}
	run.Status = recon.RunStatus(status)
	run.Error = errMsg
	if summaryJSON != "" {
		if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
			return nil, err
		}
	}
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, err
	}
	if finished.Valid && finished.String != "" {
		if run.FinishedAt, err = time.Parse(time.RFC3339, finished.String); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

// =============================================================================
// REVIEW STORE
// =============================================================================

func (s *Store) ListReview(ctx context.Context, status recon.ReviewStatus) ([]recon.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, run_id, targets_json, reason, status, note, created_at, resolved_at
		  FROM review_queue`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.ReviewItem
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) GetReview(ctx context.Context, id string) (*recon.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, targets_json, reason, status, note, created_at, resolved_at
		 FROM review_queue WHERE id = ?`, id)
	item, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, recon.ErrReviewItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) ResolveReview(ctx context.Context, id string, status recon.ReviewStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE review_queue SET status = ?, note = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), note, time.Now().UTC().Format(time.RFC3339),
		id, string(recon.ReviewOpen))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM review_queue WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return recon.ErrReviewItemNotFound
		}
		return recon.ErrReviewAlreadyResolved
	}
	return nil
}

func scanReview(r rowScanner) (*recon.ReviewItem, error) {
	var item recon.ReviewItem
	var targetsJSON, status, created string
	var note, resolved sql.NullString
	if err := r.Scan(&item.ID, &item.RunID, &targetsJSON, &item.Reason, &status, &note, &created, &resolved); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(targetsJSON), &item.Targets); err != nil {
		return nil, err
	}
	item.Status = recon.ReviewStatus(status)
	item.Note = note.String
	var err error
	if item.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if resolved.Valid && resolved.String != "" {
		if item.ResolvedAt, err = time.Parse(time.RFC3339, resolved.String); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry recon.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := json.Marshal(entry.Targets)
	if err != nil {
		return err
	}
	var anchorKind, anchorID string
	if entry.Anchor != nil {
		anchorKind = string(entry.Anchor.Kind)
		anchorID = string(entry.Anchor.ID)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log
		 (id, run_id, action, targets_json, anchor_kind, anchor_id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.RunID), string(entry.Action), string(targets),
		anchorKind, anchorID, entry.Reason, entry.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, filter recon.AuditFilter) ([]recon.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, run_id, action, targets_json, anchor_kind, anchor_id, reason, created_at
		  FROM audit_log`
	var clauses []string
	var args []any
	if filter.RunID != nil {
		clauses = append(clauses, "run_id = ?")
		args = append(args, string(*filter.RunID))
	}
	if filter.Action != nil {
		clauses = append(clauses, "action = ?")
		args = append(args, string(*filter.Action))
	}
	if filter.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.From.Format(time.RFC3339))
	}
	if filter.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.To.Format(time.RFC3339))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.AuditEntry
	for rows.Next() {
		var entry recon.AuditEntry
		var targetsJSON, created string
		var anchorKind, anchorID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Action, &targetsJSON,
			&anchorKind, &anchorID, &entry.Reason, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(targetsJSON), &entry.Targets); err != nil {
			return nil, err
		}
		if anchorKind.Valid && anchorKind.String != "" {
			entry.Anchor = &recon.RecordRef{
				Kind: recon.SourceKind(anchorKind.String),
				ID:   recon.SourceID(anchorID.String),
			}
		}
		if entry.Timestamp, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

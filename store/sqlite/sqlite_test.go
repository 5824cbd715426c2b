package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alms/recon-engine/banking"
	"github.com/alms/recon-engine/recon"
	"github.com/alms/recon-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func insertBank(t *testing.T, st *sqlite.Store, id, date, debit, credit, desc string) {
	t.Helper()
	row := recon.RawRow{"id": id, "transaction_date": date, "description": desc}
	if debit != "" {
		row["debit"] = debit
	}
	if credit != "" {
		row["credit"] = credit
	}
	require.NoError(t, st.InsertRow(context.Background(), recon.KindBankTransaction, row))
}

func sept(day int) recon.Date {
	return recon.NewDate(2024, time.September, day)
}

// =============================================================================
// RECORD STORE
// =============================================================================

func TestStore_InsertAndLoadWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	insertBank(t, st, "1", "2024-09-05", "10.00", "", "EARLY")
	insertBank(t, st, "2", "2024-09-15", "20.00", "", "MID")
	insertBank(t, st, "3", "2024-09-25", "30.00", "", "LATE")

	rows, err := st.LoadWindow(ctx, recon.KindBankTransaction, sept(10), sept(20))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0]["id"])
	assert.Equal(t, "20.00", rows[0]["debit"])

	all, err := st.ListRows(ctx, recon.KindBankTransaction)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_LoadWindow_BoundaryInclusive(t *testing.T) {
	st := newTestStore(t)
	insertBank(t, st, "1", "2024-09-10", "10.00", "", "ON FROM")
	insertBank(t, st, "2", "2024-09-20", "10.00", "", "ON TO")

	rows, err := st.LoadWindow(context.Background(), recon.KindBankTransaction, sept(10), sept(20))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_UnknownKind_Rejected(t *testing.T) {
	st := newTestStore(t)
	_, err := st.ListRows(context.Background(), recon.SourceKind("invoices"))
	assert.True(t, errors.Is(err, recon.ErrUnknownSourceKind))
}

// =============================================================================
// APPLIER
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that deletes a row and then fails
	// WHEN: WithTx returns
	// THEN: The row is still there; the plan is all-or-nothing

	st := newTestStore(t)
	ctx := context.Background()
	insertBank(t, st, "1", "2024-09-05", "10.00", "", "SURVIVOR")

	boom := errors.New("downstream failure")
	err := st.WithTx(ctx, func(ops recon.ApplyOps) error {
		if err := ops.BackupAndDelete(recon.KindBankTransaction, []recon.SourceID{"1"}, "test"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := st.ListRows(ctx, recon.KindBankTransaction)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rollback must restore the deleted row")
}

func TestStore_BackupAndDelete_MissingRowFailsTx(t *testing.T) {
	st := newTestStore(t)
	err := st.WithTx(context.Background(), func(ops recon.ApplyOps) error {
		return ops.BackupAndDelete(recon.KindBankTransaction, []recon.SourceID{"404"}, "test")
	})
	assert.Error(t, err, "deleting a nonexistent row must fail the transaction")
}

func TestStore_Link_SecondInsertIgnored(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	anchor := recon.RecordRef{Kind: recon.KindBankTransaction, ID: "1007"}
	member := recon.RecordRef{Kind: recon.KindPayment, ID: "2001"}

	for i := 0; i < 2; i++ {
		err := st.WithTx(ctx, func(ops recon.ApplyOps) error {
			return ops.Link(anchor, []recon.RecordRef{member}, "run-1", "settled")
		})
		require.NoError(t, err, "re-linking the same pair must be a no-op, not an error")
	}
}

func TestStore_Flag_OneOpenItemPerTargetSet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	targets := []recon.RecordRef{
		{Kind: recon.KindBankTransaction, ID: "1003"},
		{Kind: recon.KindBankTransaction, ID: "1004"},
	}

	for i := 0; i < 2; i++ {
		err := st.WithTx(ctx, func(ops recon.ApplyOps) error {
			return ops.Flag(targets, "run-1", "NSF pair")
		})
		require.NoError(t, err)
	}

	items, err := st.ListReview(ctx, recon.ReviewOpen)
	require.NoError(t, err)
	assert.Len(t, items, 1, "re-flagging the same component must not duplicate the item")
}

// =============================================================================
// RUN STORE
// =============================================================================

func TestStore_SaveRun_Upsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := recon.RunRecord{
		ID:        "run-1",
		Kinds:     []recon.SourceKind{recon.KindBankTransaction},
		From:      sept(1),
		To:        sept(30),
		Status:    recon.RunRunning,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, st.SaveRun(ctx, run))

	run.Status = recon.RunCompleted
	run.Summary = recon.RunSummary{Scanned: 10, Deleted: 1}
	run.FinishedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recon.RunCompleted, got.Status)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, run.Kinds, got.Kinds)

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "upsert must not create a second row")
}

func TestStore_GetRun_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetRun(context.Background(), "no-such-run")
	assert.True(t, recon.IsNotFound(err))
}

// =============================================================================
// REVIEW STORE
// =============================================================================

func TestStore_ResolveReview_Lifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	targets := []recon.RecordRef{{Kind: recon.KindBankTransaction, ID: "1003"}}

	require.NoError(t, st.WithTx(ctx, func(ops recon.ApplyOps) error {
		return ops.Flag(targets, "run-1", "needs a look")
	}))

	items, err := st.ListReview(ctx, recon.ReviewOpen)
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	require.NoError(t, st.ResolveReview(ctx, id, recon.ReviewApproved, "checked"))

	item, err := st.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, recon.ReviewApproved, item.Status)
	assert.Equal(t, "checked", item.Note)
	assert.Equal(t, targets, item.Targets)

	err = st.ResolveReview(ctx, id, recon.ReviewRejected, "again")
	assert.True(t, errors.Is(err, recon.ErrReviewAlreadyResolved))

	err = st.ResolveReview(ctx, "missing", recon.ReviewApproved, "")
	assert.True(t, errors.Is(err, recon.ErrReviewItemNotFound))
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func TestStore_Audit_AppendAndFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i, action := range []recon.ActionType{recon.ActionDelete, recon.ActionLink} {
		require.NoError(t, st.AppendAudit(ctx, recon.AuditEntry{
			ID:        string(rune('a' + i)),
			Timestamp: time.Now().UTC(),
			RunID:     "run-1",
			Action:    action,
			Targets:   []recon.RecordRef{{Kind: recon.KindBankTransaction, ID: "1"}},
			Reason:    "test",
		}))
	}

	del := recon.ActionDelete
	entries, err := st.QueryAudit(ctx, recon.AuditFilter{Action: &del})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, recon.ActionDelete, entries[0].Action)

	runID := recon.RunID("run-1")
	entries, err = st.QueryAudit(ctx, recon.AuditFilter{RunID: &runID})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// END TO END OVER SQLITE
// =============================================================================

func TestStore_FullReconciliationRun(t *testing.T) {
	// GIVEN: A duplicated charge and a deposit settled by two payments,
	//        persisted in SQLite
	// WHEN: Running a cross-kind reconciliation through the banking runner
	// THEN: The duplicate is deleted and the run record reflects the plan

	st := newTestStore(t)
	ctx := context.Background()

	insertBank(t, st, "1001", "2024-09-15", "135.00", "", "FUEL STATION 000123")
	insertBank(t, st, "1002", "2024-09-15", "135.00", "", "FUEL STATION 000123")
	insertBank(t, st, "1007", "2024-09-20", "", "1087.50", "SQUARE DEPOSIT")
	require.NoError(t, st.InsertRow(ctx, recon.KindPayment, recon.RawRow{
		"id": "2001", "payment_date": "2024-09-20", "amount": "593.92", "customer": "SMITH"}))
	require.NoError(t, st.InsertRow(ctx, recon.KindPayment, recon.RawRow{
		"id": "2002", "payment_date": "2024-09-20", "amount": "493.58", "customer": "JONES"}))

	runner := banking.NewRunner(st, st, st, st)
	run, err := runner.RunCross(ctx, nil, sept(1), sept(30))
	require.NoError(t, err)

	assert.Equal(t, recon.RunCompleted, run.Status)
	assert.Equal(t, 1, run.Summary.Deleted)
	assert.Equal(t, 2, run.Summary.Linked)

	rows, err := st.ListRows(ctx, recon.KindBankTransaction)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row["id"].(string))
	}
	assert.NotContains(t, ids, "1002")
	assert.Contains(t, ids, "1001")

	saved, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Summary, saved.Summary)
}

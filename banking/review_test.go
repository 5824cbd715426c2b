package banking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alms/recon-engine/banking"
	"github.com/alms/recon-engine/recon"
	"github.com/alms/recon-engine/recon/store"
)

// flagOne pushes a single flagged component into the store and returns its id.
func flagOne(t *testing.T, mem *store.Memory) string {
	t.Helper()
	err := mem.WithTx(context.Background(), func(ops recon.ApplyOps) error {
		return ops.Flag([]recon.RecordRef{bankRef("1003"), bankRef("1004")}, "run-1", "NSF pair")
	})
	require.NoError(t, err)

	items, err := mem.ListReview(context.Background(), recon.ReviewOpen)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].ID
}

func TestReviewer_Approve(t *testing.T) {
	// GIVEN: One open review item
	// WHEN: Approving it
	// THEN: The item is closed as approved and the decision is audited

	mem := store.NewMemory()
	reviewer := banking.NewReviewer(mem, mem)
	id := flagOne(t, mem)
	ctx := context.Background()

	require.NoError(t, reviewer.Approve(ctx, id, "verified against the statement"))

	item, err := mem.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, recon.ReviewApproved, item.Status)
	assert.Equal(t, "verified against the statement", item.Note)
	assert.False(t, item.ResolvedAt.IsZero())

	pending, err := reviewer.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	entries, err := mem.QueryAudit(ctx, recon.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Reason, "review approved")
}

func TestReviewer_Reject_ReturnsAmbiguousMatch(t *testing.T) {
	// GIVEN: One open review item
	// WHEN: Rejecting it
	// THEN: The item is closed as rejected and the caller receives an
	//       AmbiguousMatchError carrying the flagged targets

	mem := store.NewMemory()
	reviewer := banking.NewReviewer(mem, mem)
	id := flagOne(t, mem)
	ctx := context.Background()

	err := reviewer.Reject(ctx, id, "two distinct cheques")
	require.Error(t, err)

	var ambiguous *recon.AmbiguousMatchError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, id, ambiguous.ReviewID)
	assert.Len(t, ambiguous.Targets, 2)

	item, getErr := mem.GetReview(ctx, id)
	require.NoError(t, getErr)
	assert.Equal(t, recon.ReviewRejected, item.Status)
}

func TestReviewer_ResolveTwice_Conflict(t *testing.T) {
	mem := store.NewMemory()
	reviewer := banking.NewReviewer(mem, mem)
	id := flagOne(t, mem)
	ctx := context.Background()

	require.NoError(t, reviewer.Approve(ctx, id, "first"))

	err := reviewer.Approve(ctx, id, "second")
	assert.True(t, errors.Is(err, recon.ErrReviewAlreadyResolved))
}

func TestReviewer_UnknownItem_NotFound(t *testing.T) {
	mem := store.NewMemory()
	reviewer := banking.NewReviewer(mem, mem)

	err := reviewer.Approve(context.Background(), "review-9999", "")
	assert.True(t, recon.IsNotFound(err))
}

/*
review.go - Human review of flagged components

PURPOSE:
  Flagged components are surfaced to a human, never auto-applied. Approving
  an item records that the operator will act on it manually; rejecting it
  records an AmbiguousMatchError against the audit trail so the wrong
  automatic action is never silently repeated.
*/
package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alms/recon-engine/recon"
)

// Reviewer resolves flagged review items.
type Reviewer struct {
	Reviews recon.ReviewStore
	Audit   recon.AuditLog
}

func NewReviewer(reviews recon.ReviewStore, audit recon.AuditLog) *Reviewer {
	return &Reviewer{Reviews: reviews, Audit: audit}
}

// Pending returns the open review queue.
func (r *Reviewer) Pending(ctx context.Context) ([]recon.ReviewItem, error) {
	return r.Reviews.ListReview(ctx, recon.ReviewOpen)
}

// Approve marks an item as reviewed-and-accepted. The engine still does not
// touch the flagged rows; the operator applies whatever fix they decided on.
func (r *Reviewer) Approve(ctx context.Context, id, note string) error {
	item, err := r.Reviews.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if err := r.Reviews.ResolveReview(ctx, id, recon.ReviewApproved, note); err != nil {
		return err
	}
	return r.audit(ctx, item, "review approved: "+note)
}

// Reject marks an item as a bad match and returns the AmbiguousMatchError
// that callers propagate or log.
func (r *Reviewer) Reject(ctx context.Context, id, note string) error {
	item, err := r.Reviews.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if err := r.Reviews.ResolveReview(ctx, id, recon.ReviewRejected, note); err != nil {
		return err
	}
	if err := r.audit(ctx, item, "review rejected: "+note); err != nil {
		return err
	}
	return &recon.AmbiguousMatchError{
		ReviewID: item.ID,
		Targets:  item.Targets,
		Note:     note,
	}
}

func (r *Reviewer) audit(ctx context.Context, item *recon.ReviewItem, reason string) error {
	entry := recon.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		RunID:     item.RunID,
		Action:    recon.ActionFlagForReview,
		Targets:   item.Targets,
		Reason:    fmt.Sprintf("%s (item %s)", reason, item.ID),
	}
	return r.Audit.AppendAudit(ctx, entry)
}

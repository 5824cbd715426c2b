/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/alms/recon-engine/recon"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TriggerRunRequest starts a reconciliation run over a date window.
// Kinds empty + cross_kind true reconciles all four tables together.
type TriggerRunRequest struct {
	Kinds     []string `json:"kinds"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	CrossKind bool     `json:"cross_kind"`
}

// RunDTO represents one reconciliation run.
type RunDTO struct {
	ID         string           `json:"id"`
	Kinds      []string         `json:"kinds"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Status     string           `json:"status"`
	Summary    recon.RunSummary `json:"summary"`
	Error      string           `json:"error,omitempty"`
	StartedAt  string           `json:"started_at"`
	FinishedAt string           `json:"finished_at,omitempty"`
}

func runDTO(run recon.RunRecord) RunDTO {
	kinds := make([]string, len(run.Kinds))
	for i, k := range run.Kinds {
		kinds[i] = string(k)
	}
	dto := RunDTO{
		ID:        string(run.ID),
		Kinds:     kinds,
		From:      run.From.String(),
		To:        run.To.String(),
		Status:    string(run.Status),
		Summary:   run.Summary,
		Error:     run.Error,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		dto.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return dto
}

// ReviewItemDTO represents one flagged component.
type ReviewItemDTO struct {
	ID         string            `json:"id"`
	RunID      string            `json:"run_id"`
	Targets    []recon.RecordRef `json:"targets"`
	Reason     string            `json:"reason"`
	Status     string            `json:"status"`
	Note       string            `json:"note,omitempty"`
	CreatedAt  string            `json:"created_at"`
	ResolvedAt string            `json:"resolved_at,omitempty"`
}

func reviewDTO(item recon.ReviewItem) ReviewItemDTO {
	dto := ReviewItemDTO{
		ID:        item.ID,
		RunID:     string(item.RunID),
		Targets:   item.Targets,
		Reason:    item.Reason,
		Status:    string(item.Status),
		Note:      item.Note,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
	}
	if !item.ResolvedAt.IsZero() {
		dto.ResolvedAt = item.ResolvedAt.Format(time.RFC3339)
	}
	return dto
}

// ResolveReviewRequest carries a reviewer's decision on a flagged item.
type ResolveReviewRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
	Note     string `json:"note"`
}

// ResolveReviewResponse reports the recorded outcome. For rejections the
// detail carries the ambiguous-match description for the operator's log.
type ResolveReviewResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// AuditEntryDTO represents one audit log entry.
type AuditEntryDTO struct {
	ID        string            `json:"id"`
	RunID     string            `json:"run_id"`
	Action    string            `json:"action"`
	Targets   []recon.RecordRef `json:"targets"`
	Anchor    *recon.RecordRef  `json:"anchor,omitempty"`
	Reason    string            `json:"reason"`
	Timestamp string            `json:"timestamp"`
}

func auditDTO(e recon.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		RunID:     string(e.RunID),
		Action:    string(e.Action),
		Targets:   e.Targets,
		Anchor:    e.Anchor,
		Reason:    e.Reason,
		Timestamp: e.Timestamp.Format(time.RFC3339),
	}
}

// SeedResponse reports how many demo rows were inserted per table.
type SeedResponse struct {
	Inserted map[string]int `json:"inserted"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

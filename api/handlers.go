/*
handlers.go - HTTP API handlers for the reconciliation service

PURPOSE:
  Exposes the reconciliation engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates to the banking runner and reviewer.

ENDPOINTS:
  Runs:
    POST   /api/runs             Trigger a reconciliation run
    GET    /api/runs             List runs
    GET    /api/runs/{id}        Get one run
    GET    /api/runs/{id}/audit  Audit entries for one run

  Review:
    GET    /api/review                 Review queue (default: open items)
    POST   /api/review/{id}/resolve    Approve or reject a flagged item

  Audit:
    GET    /api/audit            Query the audit trail

  Records:
    GET    /api/records/{kind}   Raw rows of one source table

  Dev:
    POST   /api/seed             Load the demo dataset

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Run or review item not found
  - 409: Review item already resolved
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alms/recon-engine/banking"
	"github.com/alms/recon-engine/recon"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the handlers need from persistence. Satisfied by both
// store/sqlite.Store and recon/store.Memory.
type Store interface {
	recon.RecordStore
	recon.Applier
	recon.RunStore
	recon.ReviewStore
	recon.AuditLog

	ListRows(ctx context.Context, kind recon.SourceKind) ([]recon.RawRow, error)
	InsertRow(ctx context.Context, kind recon.SourceKind, row recon.RawRow) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    Store
	Runner   *banking.Runner
	Reviewer *banking.Reviewer
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:    store,
		Runner:   banking.NewRunner(store, store, store, store),
		Reviewer: banking.NewReviewer(store, store),
	}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// TriggerRun starts a reconciliation run and returns its record.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from, err := recon.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := recon.ParseDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "Window end before start", nil)
		return
	}

	kinds, err := parseKinds(req.Kinds)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid source kind", err)
		return
	}

	// Cross-kind matching uses a wider window and tolerance, so it is
	// never implied: multiple kinds require opting in explicitly.
	if !req.CrossKind && len(kinds) != 1 {
		writeError(w, http.StatusBadRequest,
			"Multiple kinds require cross_kind=true (or pass a single kind)", nil)
		return
	}

	var run *recon.RunRecord
	if req.CrossKind {
		run, err = h.Runner.RunCross(r.Context(), kinds, from, to)
	} else {
		run, err = h.Runner.Run(r.Context(), kinds[0], from, to)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, runDTO(*run))
}

// ListRuns returns all runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = runDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := recon.RunID(chi.URLParam(r, "id"))
	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		if recon.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Run not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, runDTO(*run))
}

// GetRunAudit returns the audit entries for one run.
func (h *Handler) GetRunAudit(w http.ResponseWriter, r *http.Request) {
	id := recon.RunID(chi.URLParam(r, "id"))
	entries, err := h.Store.QueryAudit(r.Context(), recon.AuditFilter{RunID: &id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit", err)
		return
	}
	writeJSON(w, http.StatusOK, auditDTOs(entries))
}

// =============================================================================
// REVIEW HANDLERS
// =============================================================================

// ListReview returns queue items, filtered by ?status= (default open).
func (h *Handler) ListReview(w http.ResponseWriter, r *http.Request) {
	status := recon.ReviewStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = recon.ReviewOpen
	}
	if status == "all" {
		status = ""
	}
	items, err := h.Store.ListReview(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list review queue", err)
		return
	}
	dtos := make([]ReviewItemDTO, len(items))
	for i, item := range items {
		dtos[i] = reviewDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResolveReview records a reviewer decision. Rejection surfaces the
// ambiguous-match detail in the response body; it is an expected outcome,
// not a server error.
func (h *Handler) ResolveReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	resp := ResolveReviewResponse{ID: id}
	switch req.Decision {
	case "approve":
		err = h.Reviewer.Approve(r.Context(), id, req.Note)
		resp.Status = string(recon.ReviewApproved)
	case "reject":
		err = h.Reviewer.Reject(r.Context(), id, req.Note)
		var ambiguous *recon.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			resp.Status = string(recon.ReviewRejected)
			resp.Detail = ambiguous.Error()
			err = nil
		}
	default:
		writeError(w, http.StatusBadRequest, "Decision must be approve or reject", nil)
		return
	}

	if err != nil {
		switch {
		case recon.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Review item not found", nil)
		case errors.Is(err, recon.ErrReviewAlreadyResolved):
			writeError(w, http.StatusConflict, "Review item already resolved", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to resolve review item", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAudit returns audit entries, filterable by ?run_id= and ?action=.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	var filter recon.AuditFilter
	if v := r.URL.Query().Get("run_id"); v != "" {
		id := recon.RunID(v)
		filter.RunID = &id
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := recon.ActionType(v)
		filter.Action = &action
	}
	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit", err)
		return
	}
	writeJSON(w, http.StatusOK, auditDTOs(entries))
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns the raw rows of one source table.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	kind := recon.SourceKind(chi.URLParam(r, "kind"))
	if banking.TableFor(kind) == "" {
		writeError(w, http.StatusBadRequest, "Unknown source kind", nil)
		return
	}
	rows, err := h.Store.ListRows(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseKinds(raw []string) ([]recon.SourceKind, error) {
	if len(raw) == 0 {
		return banking.AllKinds(), nil
	}
	kinds := make([]recon.SourceKind, len(raw))
	for i, s := range raw {
		kind := recon.SourceKind(s)
		if banking.TableFor(kind) == "" {
			return nil, errors.New("unknown source kind " + s)
		}
		kinds[i] = kind
	}
	return kinds, nil
}

func auditDTOs(entries []recon.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = auditDTO(e)
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Normalization errors - Raw row missing or malformed required fields
  2. Review errors        - Human reviewer rejected a flagged group
  3. Store errors         - Persistence-level failures (implementations wrap these)

PROPAGATION POLICY:
  Normalization errors are recoverable per row: the caller skips the row,
  logs it, and continues the batch. Classification and planning are pure and
  fail only on programmer error, which surfaces as a plain error meant to be
  caught in tests.

SEE ALSO:
  - normalize.go: Raises NormalizationError
  - banking/runner.go: Skip-and-log handling, counts skipped rows
*/
package recon

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingDate is returned when a raw row supplies no usable date field.
	ErrMissingDate = errors.New("missing date field")

	// ErrMissingAmount is returned when a raw row supplies neither a signed
	// amount column nor a debit/credit pair.
	ErrMissingAmount = errors.New("missing amount field")

	// ErrBadValue is returned when a required field is present but unparseable.
	ErrBadValue = errors.New("unparseable field value")

	// ErrUnknownSourceKind is returned for a source kind outside the four
	// origin tables.
	ErrUnknownSourceKind = errors.New("unknown source kind")

	// ErrRunNotFound is returned when a referenced reconciliation run does
	// not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrReviewItemNotFound is returned when a referenced review item does
	// not exist.
	ErrReviewItemNotFound = errors.New("review item not found")

	// ErrReviewAlreadyResolved is returned when resolving a review item twice.
	ErrReviewAlreadyResolved = errors.New("review item already resolved")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NormalizationError reports a raw row that could not be converted to a
// FinancialRecord. The batch continues; the row is skipped and logged.
type NormalizationError struct {
	SourceKind SourceKind
	SourceID   SourceID
	Field      string
	Err        error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s/%s: field %q: %v", e.SourceKind, e.SourceID, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// AmbiguousMatchError records a human reviewer rejecting a flagged group.
// The classifier itself never raises it: ambiguity always resolves to
// flag-for-review rather than a wrong automatic action.
type AmbiguousMatchError struct {
	ReviewID string
	Targets  []RecordRef
	Note     string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match rejected by reviewer (review %s, %d records): %s",
		e.ReviewID, len(e.Targets), e.Note)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsSkippable returns true if the error means "skip this row and continue".
func IsSkippable(err error) bool {
	var ne *NormalizationError
	return errors.As(err, &ne)
}

// IsNotFound returns true if the error indicates a missing run or review item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrReviewItemNotFound)
}

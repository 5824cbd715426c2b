/*
Package recon provides the core reconciliation and deduplication engine.

PURPOSE:
  This package contains the pure decision logic for deciding whether two or
  more financial records represent the same real-world event (and should be
  merged or deleted) or legitimately distinct events (and must be preserved).
  It never touches a database: callers fetch candidate rows, run the engine,
  and apply the resulting action plan themselves.

KEY CONCEPTS IN THIS FILE (types.go):
  - FinancialRecord: Canonical comparison form of a raw row
  - MatchVerdict:    Classifier output covering 2+ records
  - ResolutionAction: Planner output (delete / link / flag)
  - RecordRef:       (source kind, source id) pair identifying one row

DESIGN PRINCIPLES:
  1. Immutability: FinancialRecords are never mutated after construction
  2. Precision: Uses decimal.Decimal for money, never float
  3. Type Safety: Strong typing for record references and verdict kinds
  4. Auditability: Every action carries a human-readable reason

PIPELINE:
  raw rows -> Normalize -> Classify -> Plan -> actions -> caller applies

SEE ALSO:
  - normalize.go: Raw row to FinancialRecord conversion
  - classify.go:  The four-tier matching decision ladder
  - plan.go:      Verdicts to actions with conflict resolution
*/
package recon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE IDENTIFICATION
// =============================================================================

// SourceKind identifies which origin table a record came from.
type SourceKind string

const (
	KindBankTransaction SourceKind = "bank_transaction"
	KindPayment         SourceKind = "payment"
	KindReceipt         SourceKind = "receipt"
	KindRefund          SourceKind = "refund"
)

// SourceID is the row identifier in the origin table. It is opaque and only
// meaningful together with a SourceKind; it is never a universal key.
type SourceID string

// RecordRef pins a record to its origin table. Actions carry refs rather than
// bare IDs so the caller always knows which table to touch.
type RecordRef struct {
	Kind SourceKind `json:"kind"`
	ID   SourceID   `json:"id"`
}

func (r RecordRef) String() string { return string(r.Kind) + "/" + string(r.ID) }

// CompareSourceID orders source IDs with numeric awareness: all-digit IDs
// compare numerically, everything else lexicographically. The lowest ID is
// the tie-break proxy for earliest-inserted.
func CompareSourceID(a, b SourceID) int {
	an, aErr := strconv.ParseInt(string(a), 10, 64)
	bn, bErr := strconv.ParseInt(string(b), 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(string(a), string(b))
}

// =============================================================================
// TAGS - Lightweight flags derived from the counterparty text
// =============================================================================

type Tag string

const (
	// TagRecurring marks rent/lease/insurance/utility style charges that
	// legitimately repeat the same amount on different dates.
	TagRecurring Tag = "recurring"

	// TagNSF marks non-sufficient-funds charges and their reversals.
	TagNSF Tag = "nsf"

	// TagFee marks bank and service fees.
	TagFee Tag = "fee"
)

// TagSet is a value type so records stay immutable and comparable.
type TagSet struct {
	Recurring bool
	NSF       bool
	Fee       bool
}

func (t TagSet) Has(tag Tag) bool {
	switch tag {
	case TagRecurring:
		return t.Recurring
	case TagNSF:
		return t.NSF
	case TagFee:
		return t.Fee
	}
	return false
}

func (t TagSet) IsEmpty() bool { return !t.Recurring && !t.NSF && !t.Fee }

func (t TagSet) List() []Tag {
	var tags []Tag
	if t.Recurring {
		tags = append(tags, TagRecurring)
	}
	if t.NSF {
		tags = append(tags, TagNSF)
	}
	if t.Fee {
		tags = append(tags, TagFee)
	}
	return tags
}

func (t TagSet) String() string {
	tags := t.List()
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = string(tag)
	}
	return strings.Join(parts, ",")
}

// =============================================================================
// FINANCIAL RECORD - Canonical comparison form
// =============================================================================

// FinancialRecord is the canonical form of a raw row, produced by Normalize.
// Amount is signed: positive = inflow, negative = outflow, rounded to the
// currency minor unit. Immutable once constructed.
type FinancialRecord struct {
	SourceKind       SourceKind
	SourceID         SourceID
	Date             Date
	Amount           decimal.Decimal
	CounterpartyText string
	Tags             TagSet
}

func (r FinancialRecord) Ref() RecordRef {
	return RecordRef{Kind: r.SourceKind, ID: r.SourceID}
}

func (r FinancialRecord) String() string {
	return fmt.Sprintf("%s/%s %s %s %q", r.SourceKind, r.SourceID, r.Date, r.Amount.StringFixed(2), r.CounterpartyText)
}

// =============================================================================
// MATCH VERDICT - Classifier output
// =============================================================================

type VerdictKind string

const (
	VerdictExactDuplicate    VerdictKind = "exact_duplicate"
	VerdictRecurringDistinct VerdictKind = "recurring_distinct"
	VerdictNSFPair           VerdictKind = "nsf_pair"
	VerdictGroupedMatch      VerdictKind = "grouped_match"
	VerdictUnrelated         VerdictKind = "unrelated"
)

// NoKeep is the KeepIndex value for verdict kinds where retention is not
// meaningful (NSF pairs, recurring-distinct).
const NoKeep = -1

// MatchVerdict covers two or more records the classifier decided belong
// together. KeepIndex points into Members and is meaningful only for
// exact-duplicate and grouped-match verdicts.
type MatchVerdict struct {
	Kind       VerdictKind
	Members    []FinancialRecord
	KeepIndex  int
	Confidence float64
}

// Keep returns the retained member, or nil when retention is not meaningful.
func (v MatchVerdict) Keep() *FinancialRecord {
	if v.KeepIndex < 0 || v.KeepIndex >= len(v.Members) {
		return nil
	}
	return &v.Members[v.KeepIndex]
}

// MemberRefs returns the refs of all members in order.
func (v MatchVerdict) MemberRefs() []RecordRef {
	refs := make([]RecordRef, len(v.Members))
	for i, m := range v.Members {
		refs[i] = m.Ref()
	}
	return refs
}

// =============================================================================
// RESOLUTION ACTION - Planner output
// =============================================================================

type ActionType string

const (
	ActionDelete        ActionType = "delete"
	ActionLink          ActionType = "link"
	ActionFlagForReview ActionType = "flag_for_review"
)

// ResolutionAction is one step of the plan the caller applies against the
// database. Reason is always populated; it feeds the audit log.
type ResolutionAction struct {
	Action  ActionType
	Targets []RecordRef
	Anchor  *RecordRef // grouping record, set for link actions only
	Reason  string
}

// TargetIDs returns the bare source IDs, for callers that resolve per table.
func (a ResolutionAction) TargetIDs() []SourceID {
	ids := make([]SourceID, len(a.Targets))
	for i, t := range a.Targets {
		ids[i] = t.ID
	}
	return ids
}

/*
spec_test.go - Specification Tests for the Reconciliation Engine

PURPOSE:
  These tests serve as EXECUTABLE SPECIFICATIONS of the engine's guarantees.
  Each test documents one behavior from DESIGN.md and validates that the
  implementation conforms to it.

ORGANIZATION:
  Tests are grouped by guarantee area:
  1. Verdict Disjointness - A record belongs to at most one verdict
  2. Ladder Ordering      - NSF before duplicates before groups
  3. Retention            - The keep is never a delete target
  4. Grouped Sums         - Anchor equals member sum within tolerance
  5. Idempotence          - Re-planning survivors deletes nothing further

READING THESE TESTS:
  Each test has:
  - A descriptive name that states the behavior
  - GIVEN/WHEN/THEN comments explaining the scenario
  - Clear assertions with explanatory messages

These tests are intentionally verbose for documentation purposes.
*/
package recon_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alms/recon-engine/recon"
)

// messyBatch is a candidate set exercising every tier at once: a duplicated
// fuel charge, an NSF charge/reversal pair, recurring rent on two dates, a
// deposit composed of two payments, and an unrelated stray.
func messyBatch(t *testing.T) []recon.FinancialRecord {
	t.Helper()
	oct := normRec(t, recon.KindBankTransaction, "1006", "-682.50", "GARAGE RENT OCT", 1)
	oct.Date = oct.Date.AddDays(30)
	return []recon.FinancialRecord{
		bankRec(t, "1001", "-135.00", "FUEL STATION 000123", 15),
		bankRec(t, "1002", "-135.00", "FUEL STATION 000123", 15),
		bankRec(t, "1003", "-138.73", "RTN NSF CHEQUE 88112", 3),
		bankRec(t, "1004", "138.73", "NSF REVERSAL 88112", 5),
		bankRec(t, "1005", "-682.50", "GARAGE RENT SEPT", 1),
		oct,
		bankRec(t, "1007", "1087.50", "SQUARE DEPOSIT", 20),
		payRec(t, "2001", "593.92", "AIRPORT RUN SMITH", 20),
		payRec(t, "2002", "493.58", "WINE TOUR JONES", 20),
		bankRec(t, "1008", "-86.40", "CAR WASH DEPOT", 12),
	}
}

// =============================================================================
// SPEC 1: VERDICT DISJOINTNESS
// =============================================================================

func TestSpec_Verdicts_Disjoint_EachRecordClaimedOnce(t *testing.T) {
	// SPEC: "Verdicts partition the claimed records: once a record is part
	//        of a verdict it is withdrawn from every later tier"
	//
	// GIVEN: A batch triggering all four verdict kinds at once
	// WHEN: Classifying
	// THEN: No record appears in more than one verdict

	cfg := recon.DefaultClassifierConfig()
	cfg.CrossKind = true
	verdicts := recon.Classify(messyBatch(t), cfg)

	if len(verdicts) != 4 {
		t.Fatalf("expected 4 verdicts (nsf, duplicate, group, recurring), got %d: %+v", len(verdicts), verdicts)
	}

	seen := make(map[recon.RecordRef]recon.VerdictKind)
	for _, v := range verdicts {
		for _, ref := range v.MemberRefs() {
			if prev, ok := seen[ref]; ok {
				t.Errorf("SPEC VIOLATION: %s claimed by both %s and %s", ref, prev, v.Kind)
			}
			seen[ref] = v.Kind
		}
	}
}

// =============================================================================
// SPEC 2: LADDER ORDERING
// =============================================================================

func TestSpec_Ladder_NSFBeatsDuplicate(t *testing.T) {
	// SPEC: "The tiers run in a fixed order and the first match wins"
	//
	// GIVEN: An NSF reversal that is also an exact duplicate of another row
	// WHEN: Classifying
	// THEN: The NSF pair claims it; no duplicate verdict includes it

	reversalA := bankRec(t, "2", "138.73", "NSF REVERSAL 88112", 4)
	verdicts := classify(
		bankRec(t, "1", "-138.73", "RTN NSF CHEQUE 88112", 3),
		reversalA,
		bankRec(t, "3", "138.73", "NSF REVERSAL 88112", 4),
	)

	for _, v := range verdicts {
		if v.Kind != recon.VerdictNSFPair {
			continue
		}
		for _, ref := range v.MemberRefs() {
			if ref == reversalA.Ref() {
				return // claimed by the NSF tier, as specified
			}
		}
	}
	t.Error("SPEC VIOLATION: the reversal should be claimed by the NSF tier")
}

func TestSpec_Ladder_RecurringExemptFromDuplicates(t *testing.T) {
	// SPEC: "A pair where both records carry the recurring tag is never an
	//        exact duplicate"
	//
	// GIVEN: Identical rent rows on the same date
	// THEN: No duplicate verdict; deleting a rent row is never automatic

	verdicts := classify(
		bankRec(t, "1", "-682.50", "GARAGE RENT", 1),
		bankRec(t, "2", "-682.50", "GARAGE RENT", 1),
	)
	for _, v := range verdicts {
		if v.Kind == recon.VerdictExactDuplicate {
			t.Fatalf("SPEC VIOLATION: recurring rows classified as duplicates: %+v", v)
		}
	}
}

// =============================================================================
// SPEC 3: RETENTION
// =============================================================================

func TestSpec_Retention_KeepIsNeverADeleteTarget(t *testing.T) {
	// SPEC: "A record that is a keep in any verdict is never a delete target"
	//
	// GIVEN: The full messy batch
	// WHEN: Classifying and planning
	// THEN: No delete action targets any verdict's keep

	cfg := recon.DefaultClassifierConfig()
	cfg.CrossKind = true
	verdicts := recon.Classify(messyBatch(t), cfg)
	actions := recon.Plan(verdicts)

	keeps := make(map[recon.RecordRef]bool)
	for _, v := range verdicts {
		if k := v.Keep(); k != nil {
			keeps[k.Ref()] = true
		}
	}
	for _, a := range actions {
		if a.Action != recon.ActionDelete {
			continue
		}
		for _, ref := range a.Targets {
			if keeps[ref] {
				t.Errorf("SPEC VIOLATION: keep %s scheduled for deletion", ref)
			}
		}
	}
}

func TestSpec_Retention_NSFTaggedNeverDeleted(t *testing.T) {
	// SPEC: "An NSF-tagged record is never a delete target"

	cfg := recon.DefaultClassifierConfig()
	cfg.CrossKind = true
	batch := messyBatch(t)
	actions := recon.Plan(recon.Classify(batch, cfg))

	nsf := make(map[recon.RecordRef]bool)
	for _, r := range batch {
		if r.Tags.NSF {
			nsf[r.Ref()] = true
		}
	}
	for _, a := range actions {
		if a.Action != recon.ActionDelete {
			continue
		}
		for _, ref := range a.Targets {
			if nsf[ref] {
				t.Errorf("SPEC VIOLATION: NSF-tagged %s scheduled for deletion", ref)
			}
		}
	}
}

// =============================================================================
// SPEC 4: GROUPED SUMS
// =============================================================================

func TestSpec_GroupedMatch_AnchorEqualsMemberSumWithinTolerance(t *testing.T) {
	// SPEC: "A grouped match holds only when the anchor amount equals the
	//        member sum within the money tolerance"

	cfg := recon.DefaultClassifierConfig()
	cfg.CrossKind = true
	verdicts := recon.Classify(messyBatch(t), cfg)

	found := false
	for _, v := range verdicts {
		if v.Kind != recon.VerdictGroupedMatch {
			continue
		}
		found = true
		anchor := v.Keep()
		if anchor == nil {
			t.Fatal("grouped verdict without an anchor")
		}
		sum := decimal.Zero
		for i, m := range v.Members {
			if i == v.KeepIndex {
				continue
			}
			sum = sum.Add(m.Amount)
		}
		diff := anchor.Amount.Sub(sum).Abs()
		if diff.GreaterThan(cfg.MoneyTolerance) {
			t.Errorf("SPEC VIOLATION: anchor %s vs member sum %s, off by %s",
				anchor.Amount, sum, diff)
		}
	}
	if !found {
		t.Fatal("expected a grouped-match verdict in the messy batch")
	}
}

// =============================================================================
// SPEC 5: IDEMPOTENCE
// =============================================================================

func TestSpec_Idempotence_ReplanningSurvivorsDeletesNothing(t *testing.T) {
	// SPEC: "Re-planning the surviving records of a fully applied plan
	//        yields no further deletes"
	//
	// GIVEN: The messy batch, classified, planned and deletes applied
	// WHEN: Classifying and planning the survivors
	// THEN: The second plan contains no delete actions

	cfg := recon.DefaultClassifierConfig()
	cfg.CrossKind = true
	batch := messyBatch(t)

	first := recon.Plan(recon.Classify(batch, cfg))
	deleted := make(map[recon.RecordRef]bool)
	for _, a := range first {
		if a.Action == recon.ActionDelete {
			for _, ref := range a.Targets {
				deleted[ref] = true
			}
		}
	}
	if len(deleted) == 0 {
		t.Fatal("the messy batch should produce at least one delete")
	}

	var survivors []recon.FinancialRecord
	for _, r := range batch {
		if !deleted[r.Ref()] {
			survivors = append(survivors, r)
		}
	}

	second := recon.Plan(recon.Classify(survivors, cfg))
	for _, a := range second {
		if a.Action == recon.ActionDelete {
			t.Errorf("SPEC VIOLATION: second pass still deletes %v", a.Targets)
		}
	}
}

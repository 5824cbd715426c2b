/*
classify.go - The four-tier matching decision ladder

PURPOSE:
  Given a candidate set of FinancialRecords (pre-filtered by the caller to a
  plausible window, e.g. one statement month), produce zero or more
  MatchVerdicts covering that set. This is the core algorithmic piece; the
  rest of the system is plumbing around it.

DECISION LADDER (first match wins; the order is deliberate):
  1. NSF pair detection   - reversal pairs are flagged, never auto-deleted;
                            an unpaired NSF charge matches nothing at all
  2. Exact duplicate      - same date, same amount, fuzzy-similar text;
                            a pair where both carry the recurring tag is
                            never a duplicate
  3. Grouped match        - one record equals the sum of a disjoint subset
                            (deposit = sum of payments); members are linked,
                            never deleted
  4. Recurring distinct   - protective verdict so rent/lease/insurance rows
                            with equal amounts on different dates can never
                            be treated as duplicates downstream

  Anything not classified is implicitly unrelated and produces no verdict.

CROSS-KIND MATCHING:
  Records from different source kinds are never compared unless the caller
  opts in. Cross-kind matching uses its own wider day window and a money
  tolerance instead of exact amounts (same-table matching is exact). A
  cross-kind one-to-one match is expressed as a grouped match of size one:
  across tables the correct outcome is a link, never a delete.

SEE ALSO:
  - similarity.go: The shared text ratio
  - plan.go:       Turns verdicts into actions
*/
package recon

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// ClassifierConfig carries the tolerance knobs. The legacy scripts hard-coded
// inconsistent values for these; here they are parameters with one set of
// defaults.
type ClassifierConfig struct {
	// DayWindow is the same-kind matching window in days.
	DayWindow int

	// MoneyTolerance applies to grouped-match sums and all cross-kind
	// amount comparisons. Same-kind duplicate checks are exact.
	MoneyTolerance decimal.Decimal

	// TextSimilarityThreshold is the minimum ratio for duplicate text.
	TextSimilarityThreshold float64

	// CrossKind enables comparisons across source kinds.
	CrossKind bool

	// CrossKindDayWindow is the wider window used when kinds differ.
	CrossKindDayWindow int

	// MaxGroupSize and MaxGroupCandidates bound the grouped-match subset
	// search so pathological batches stay CPU-bounded.
	MaxGroupSize       int
	MaxGroupCandidates int
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		DayWindow:               3,
		MoneyTolerance:          decimal.New(1, -2), // $0.01
		TextSimilarityThreshold: 0.85,
		CrossKindDayWindow:      7,
		MaxGroupSize:            6,
		MaxGroupCandidates:      24,
	}
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	def := DefaultClassifierConfig()
	if c.DayWindow <= 0 {
		c.DayWindow = def.DayWindow
	}
	if c.MoneyTolerance.IsZero() {
		c.MoneyTolerance = def.MoneyTolerance
	}
	if c.TextSimilarityThreshold <= 0 {
		c.TextSimilarityThreshold = def.TextSimilarityThreshold
	}
	if c.CrossKindDayWindow <= 0 {
		c.CrossKindDayWindow = def.CrossKindDayWindow
	}
	if c.MaxGroupSize <= 0 {
		c.MaxGroupSize = def.MaxGroupSize
	}
	if c.MaxGroupCandidates <= 0 {
		c.MaxGroupCandidates = def.MaxGroupCandidates
	}
	return c
}

// Confidence levels by match quality.
const (
	ConfidenceIdentical      = 1.0  // byte-identical text, exact date+amount
	ConfidenceFuzzyDuplicate = 0.9  // fuzzy text, exact date+amount
	ConfidenceRecurring      = 0.95 // exact amount equality, protective
	ConfidenceNSFPair        = 0.85
	ConfidenceGroupExact     = 0.9
	ConfidenceGroupTolerance = 0.8
)

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify runs the decision ladder over a candidate set and returns the
// verdicts. Records not covered by any verdict are implicitly unrelated; the
// classifier never emits negative verdicts.
func Classify(candidates []FinancialRecord, cfg ClassifierConfig) []MatchVerdict {
	cfg = cfg.withDefaults()

	c := &classifier{cfg: cfg}
	c.recs = make([]FinancialRecord, len(candidates))
	copy(c.recs, candidates)
	sortRecords(c.recs)
	c.claimed = make([]bool, len(c.recs))

	c.classifyNSFPairs()
	c.classifyExactDuplicates()
	c.classifyGroupedMatches()
	c.classifyRecurringDistinct()
	return c.verdicts
}

type classifier struct {
	cfg      ClassifierConfig
	recs     []FinancialRecord
	claimed  []bool
	verdicts []MatchVerdict
}

// sortRecords fixes the working order: kind, then date, then source id.
// Deterministic input order makes verdict output deterministic.
func sortRecords(recs []FinancialRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.SourceKind != b.SourceKind {
			return a.SourceKind < b.SourceKind
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return CompareSourceID(a.SourceID, b.SourceID) < 0
	})
}

func (c *classifier) comparable(a, b FinancialRecord) bool {
	return a.SourceKind == b.SourceKind || c.cfg.CrossKind
}

func (c *classifier) windowFor(a, b FinancialRecord) int {
	if a.SourceKind == b.SourceKind {
		return c.cfg.DayWindow
	}
	return c.cfg.CrossKindDayWindow
}

// =============================================================================
// TIER 1: NSF PAIRS
// =============================================================================

// classifyNSFPairs pairs each NSF-tagged record with the nearest exact
// opposite-amount record inside the day window. Both sides go to review;
// neither side is ever a deletion candidate. An NSF record with no paired
// reversal is unrelated to everything: after this pass every NSF-tagged
// record is withdrawn from the remaining tiers.
func (c *classifier) classifyNSFPairs() {
	for i := range c.recs {
		if c.claimed[i] || !c.recs[i].Tags.NSF {
			continue
		}
		j := c.findReversal(i)
		if j < 0 {
			continue
		}
		members := []FinancialRecord{c.recs[i], c.recs[j]}
		sortRecords(members)
		c.verdicts = append(c.verdicts, MatchVerdict{
			Kind:       VerdictNSFPair,
			Members:    members,
			KeepIndex:  NoKeep,
			Confidence: ConfidenceNSFPair,
		})
		c.claimed[i], c.claimed[j] = true, true
	}

	// Unpaired NSF charges are NOT duplicates of anything.
	for i := range c.recs {
		if c.recs[i].Tags.NSF {
			c.claimed[i] = true
		}
	}
}

func (c *classifier) findReversal(i int) int {
	rec := c.recs[i]
	want := rec.Amount.Neg()
	best := -1
	bestDays := 0
	for j := range c.recs {
		if j == i || c.claimed[j] {
			continue
		}
		other := c.recs[j]
		if !c.comparable(rec, other) || !other.Amount.Equal(want) {
			continue
		}
		days := DaysApart(rec.Date, other.Date)
		if days > c.windowFor(rec, other) {
			continue
		}
		if best < 0 || days < bestDays ||
			(days == bestDays && CompareSourceID(other.SourceID, c.recs[best].SourceID) < 0) {
			best, bestDays = j, days
		}
	}
	return best
}

// =============================================================================
// TIER 2: EXACT DUPLICATES
// =============================================================================

// classifyExactDuplicates finds same-kind records with identical date,
// identical amount to the minor unit, and text similarity at or above the
// threshold. A pair where both records carry the recurring tag is never a
// duplicate; that is what keeps June rent and July rent apart even when a
// candidate window spans both.
func (c *classifier) classifyExactDuplicates() {
	type bucketKey struct {
		kind   SourceKind
		date   string
		amount string
	}
	buckets := make(map[bucketKey][]int)
	var order []bucketKey
	for i := range c.recs {
		if c.claimed[i] {
			continue
		}
		k := bucketKey{c.recs[i].SourceKind, c.recs[i].Date.String(), c.recs[i].Amount.StringFixed(2)}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], i)
	}

	for _, k := range order {
		idxs := buckets[k]
		if len(idxs) < 2 {
			continue
		}
		sort.Slice(idxs, func(a, b int) bool {
			return CompareSourceID(c.recs[idxs[a]].SourceID, c.recs[idxs[b]].SourceID) < 0
		})
		c.clusterDuplicates(idxs)
	}
}

// clusterDuplicates greedily clusters a same-(kind,date,amount) bucket by
// text similarity to the earliest-inserted seed.
func (c *classifier) clusterDuplicates(idxs []int) {
	used := make([]bool, len(idxs))
	for s := range idxs {
		if used[s] || c.claimed[idxs[s]] {
			continue
		}
		seed := c.recs[idxs[s]]
		cluster := []int{idxs[s]}
		identical := true
		for o := s + 1; o < len(idxs); o++ {
			if used[o] || c.claimed[idxs[o]] {
				continue
			}
			other := c.recs[idxs[o]]
			if seed.Tags.Recurring && other.Tags.Recurring {
				continue
			}
			sim := TextSimilarity(seed.CounterpartyText, other.CounterpartyText)
			if sim < c.cfg.TextSimilarityThreshold {
				continue
			}
			if other.CounterpartyText != seed.CounterpartyText {
				identical = false
			}
			cluster = append(cluster, idxs[o])
			used[o] = true
		}
		used[s] = true
		if len(cluster) < 2 {
			continue
		}

		members := make([]FinancialRecord, len(cluster))
		for i, idx := range cluster {
			members[i] = c.recs[idx]
			c.claimed[idx] = true
		}
		confidence := ConfidenceIdentical
		if !identical {
			confidence = ConfidenceFuzzyDuplicate
		}
		// cluster is in SourceID order, so the keep is member 0
		c.verdicts = append(c.verdicts, MatchVerdict{
			Kind:       VerdictExactDuplicate,
			Members:    members,
			KeepIndex:  0,
			Confidence: confidence,
		})
	}
}

// =============================================================================
// TIER 3: GROUPED MATCHES
// =============================================================================

// classifyGroupedMatches finds a record G whose amount equals, within the
// money tolerance, the sum of a disjoint subset of other candidates inside
// the day window. G is retained and the members are linked to it, never
// deleted. Larger records are tried as G first since deposits and payouts
// are the grouping side.
//
// A cross-kind subset of size one is allowed: one deposit settled by one
// payment is a link, not a duplicate.
func (c *classifier) classifyGroupedMatches() {
	order := make([]int, 0, len(c.recs))
	for i := range c.recs {
		if !c.claimed[i] && !c.recs[i].Amount.IsZero() {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		aa, ba := c.recs[order[a]].Amount.Abs(), c.recs[order[b]].Amount.Abs()
		if !aa.Equal(ba) {
			return aa.GreaterThan(ba)
		}
		return CompareSourceID(c.recs[order[a]].SourceID, c.recs[order[b]].SourceID) < 0
	})

	for _, g := range order {
		if c.claimed[g] {
			continue
		}
		subset, exact := c.findGroupSubset(g)
		if subset == nil {
			continue
		}

		members := make([]FinancialRecord, 0, len(subset)+1)
		members = append(members, c.recs[g])
		for _, idx := range subset {
			members = append(members, c.recs[idx])
		}
		confidence := ConfidenceGroupExact
		if !exact {
			confidence = ConfidenceGroupTolerance
		}
		c.verdicts = append(c.verdicts, MatchVerdict{
			Kind:       VerdictGroupedMatch,
			Members:    members,
			KeepIndex:  0,
			Confidence: confidence,
		})
		c.claimed[g] = true
		for _, idx := range subset {
			c.claimed[idx] = true
		}
	}
}

// findGroupSubset searches for a disjoint subset summing to the amount of
// c.recs[g]. Returns nil if none exists within the caps. The second return
// reports whether the sum was exact (no tolerance used).
func (c *classifier) findGroupSubset(g int) ([]int, bool) {
	rec := c.recs[g]
	sign := rec.Amount.Sign()
	targetAbs := rec.Amount.Abs()

	var pool []int
	for j := range c.recs {
		if j == g || c.claimed[j] {
			continue
		}
		other := c.recs[j]
		if !c.comparable(rec, other) || other.Amount.Sign() != sign {
			continue
		}
		if !WithinWindow(rec.Date, other.Date, c.windowFor(rec, other)) {
			continue
		}
		if other.Amount.Abs().GreaterThan(targetAbs.Add(c.cfg.MoneyTolerance)) {
			continue
		}
		pool = append(pool, j)
	}
	if len(pool) == 0 {
		return nil, false
	}

	// Largest first: prunes the search fastest and prefers few-member groups.
	sort.Slice(pool, func(a, b int) bool {
		aa, ba := c.recs[pool[a]].Amount.Abs(), c.recs[pool[b]].Amount.Abs()
		if !aa.Equal(ba) {
			return aa.GreaterThan(ba)
		}
		return CompareSourceID(c.recs[pool[a]].SourceID, c.recs[pool[b]].SourceID) < 0
	})
	if len(pool) > c.cfg.MaxGroupCandidates {
		pool = pool[:c.cfg.MaxGroupCandidates]
	}

	// Work in integer cents; tolerance and amounts are minor-unit precise.
	target := centsOf(targetAbs)
	tol := centsOf(c.cfg.MoneyTolerance)
	values := make([]int64, len(pool))
	suffix := make([]int64, len(pool)+1)
	for i, idx := range pool {
		values[i] = centsOf(c.recs[idx].Amount.Abs())
	}
	for i := len(pool) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + values[i]
	}

	var chosen []int
	var dfs func(pos int, sum int64) bool
	dfs = func(pos int, sum int64) bool {
		diff := target - sum
		if diff < 0 {
			diff = -diff
		}
		if diff <= tol && c.subsetAllowed(g, chosen) {
			return true
		}
		if pos >= len(pool) || len(chosen) >= c.cfg.MaxGroupSize {
			return false
		}
		if sum+suffix[pos]+tol < target {
			return false // remaining pool cannot reach the target
		}
		// include pool[pos]
		if sum+values[pos] <= target+tol {
			chosen = append(chosen, pool[pos])
			if dfs(pos+1, sum+values[pos]) {
				return true
			}
			chosen = chosen[:len(chosen)-1]
		}
		// exclude pool[pos]
		return dfs(pos+1, sum)
	}
	if !dfs(0, 0) {
		return nil, false
	}

	subset := append([]int(nil), chosen...)
	sort.Slice(subset, func(a, b int) bool {
		return CompareSourceID(c.recs[subset[a]].SourceID, c.recs[subset[b]].SourceID) < 0
	})
	var sum decimal.Decimal
	for _, idx := range subset {
		sum = sum.Add(c.recs[idx].Amount)
	}
	return subset, sum.Equal(c.recs[g].Amount)
}

// subsetAllowed enforces the minimum group size: two-plus members same-kind,
// one member acceptable only when it comes from a different table than G.
func (c *classifier) subsetAllowed(g int, subset []int) bool {
	switch len(subset) {
	case 0:
		return false
	case 1:
		return c.recs[subset[0]].SourceKind != c.recs[g].SourceKind
	default:
		return true
	}
}

func centsOf(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// =============================================================================
// TIER 4: RECURRING DISTINCT
// =============================================================================

// classifyRecurringDistinct issues the protective verdict for remaining
// recurring-tagged records sharing a kind and an amount across different
// dates. The verdict produces no action; it exists so nothing downstream can
// mistake the set for duplicates.
func (c *classifier) classifyRecurringDistinct() {
	type bucketKey struct {
		kind   SourceKind
		amount string
	}
	buckets := make(map[bucketKey][]int)
	var order []bucketKey
	for i := range c.recs {
		if c.claimed[i] || !c.recs[i].Tags.Recurring {
			continue
		}
		k := bucketKey{c.recs[i].SourceKind, c.recs[i].Amount.StringFixed(2)}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], i)
	}

	for _, k := range order {
		idxs := buckets[k]
		if len(idxs) < 2 {
			continue
		}
		dates := make(map[string]bool)
		for _, idx := range idxs {
			dates[c.recs[idx].Date.String()] = true
		}
		if len(dates) < 2 {
			continue
		}
		members := make([]FinancialRecord, len(idxs))
		for i, idx := range idxs {
			members[i] = c.recs[idx]
			c.claimed[idx] = true
		}
		c.verdicts = append(c.verdicts, MatchVerdict{
			Kind:       VerdictRecurringDistinct,
			Members:    members,
			KeepIndex:  NoKeep,
			Confidence: ConfidenceRecurring,
		})
	}
}

/*
plan.go - Resolution Planner

PURPOSE:
  Turns a list of MatchVerdicts into a list of ResolutionActions, resolving
  conflicts when a record appears in more than one verdict (possible when
  verdicts from several classify calls are planned together, or when a
  record is the keep of one duplicate group and a member elsewhere).

ALGORITHM:
  1. Union-find over every record touched by an action-bearing verdict.
  2. Per connected component, safety-first resolution:
     - any NSF pair in the component         -> flag the whole component
     - duplicate chains mixed with groups    -> flag (ambiguous overlap)
     - any would-be delete target tagged NSF -> flag
     - duplicate-only component              -> one delete of all non-keeps,
                                                transitively merged chains
                                                keep exactly one record
     - group-only component                  -> link actions, no deletes
  3. Recurring-distinct verdicts never union and never produce an action;
     they exist to suppress matching, not to trigger one.

GUARANTEES:
  - A record that is a keep in any verdict is never a delete target.
  - An NSF-tagged record is never a delete target.
  - Re-planning the surviving records of a fully applied plan yields no
    further deletes.

SEE ALSO:
  - classify.go: Produces the verdicts
  - banking/runner.go: Applies the plan inside one transaction
*/
package recon

import (
	"fmt"
	"sort"
	"strings"
)

// Plan converts verdicts into an ordered action list. It performs no I/O;
// the caller applies the actions (with backups and inside a transaction).
func Plan(verdicts []MatchVerdict) []ResolutionAction {
	p := newPlanner(verdicts)
	return p.resolve()
}

// =============================================================================
// PLANNER
// =============================================================================

type planner struct {
	verdicts []MatchVerdict
	uf       *unionFind
	records  map[RecordRef]FinancialRecord
}

func newPlanner(verdicts []MatchVerdict) *planner {
	p := &planner{
		verdicts: verdicts,
		uf:       newUnionFind(),
		records:  make(map[RecordRef]FinancialRecord),
	}
	for _, v := range verdicts {
		if !v.unions() {
			continue
		}
		refs := v.MemberRefs()
		for i, ref := range refs {
			p.records[ref] = v.Members[i]
			if i > 0 {
				p.uf.union(refs[0], ref)
			} else {
				p.uf.add(ref)
			}
		}
	}
	return p
}

// unions reports whether a verdict participates in component building.
// Recurring-distinct and unrelated verdicts are informational only.
func (v MatchVerdict) unions() bool {
	switch v.Kind {
	case VerdictNSFPair, VerdictExactDuplicate, VerdictGroupedMatch:
		return len(v.Members) >= 2
	default:
		return false
	}
}

func (p *planner) resolve() []ResolutionAction {
	// Group verdicts by component root.
	type component struct {
		root     RecordRef
		verdicts []MatchVerdict
	}
	byRoot := make(map[RecordRef]*component)
	var order []RecordRef
	for _, v := range p.verdicts {
		if !v.unions() {
			continue
		}
		root := p.uf.find(v.Members[0].Ref())
		comp, ok := byRoot[root]
		if !ok {
			comp = &component{root: root}
			byRoot[root] = comp
			order = append(order, root)
		}
		comp.verdicts = append(comp.verdicts, v)
	}

	var actions []ResolutionAction
	for _, root := range order {
		actions = append(actions, p.resolveComponent(byRoot[root].verdicts)...)
	}
	return actions
}

func (p *planner) resolveComponent(verdicts []MatchVerdict) []ResolutionAction {
	var hasNSF, hasDup, hasGroup bool
	for _, v := range verdicts {
		switch v.Kind {
		case VerdictNSFPair:
			hasNSF = true
		case VerdictExactDuplicate:
			hasDup = true
		case VerdictGroupedMatch:
			hasGroup = true
		}
	}

	memberSet := make(map[RecordRef]bool)
	var members []RecordRef
	for _, v := range verdicts {
		for _, ref := range v.MemberRefs() {
			if !memberSet[ref] {
				memberSet[ref] = true
				members = append(members, ref)
			}
		}
	}
	sortRefs(members)

	// Safety first: anything connected to an NSF pair goes to review.
	if hasNSF {
		return []ResolutionAction{{
			Action:  ActionFlagForReview,
			Targets: members,
			Reason:  "NSF charge/reversal pair in component; never auto-delete an NSF side",
		}}
	}

	// A record cannot be both merged away and linked; humans untangle that.
	if hasDup && hasGroup {
		return []ResolutionAction{{
			Action:  ActionFlagForReview,
			Targets: members,
			Reason:  "record belongs to both a duplicate chain and a grouped match; ambiguous",
		}}
	}

	if hasDup {
		return p.resolveDuplicateChain(verdicts, members)
	}
	return p.resolveGroups(verdicts)
}

// resolveDuplicateChain merges overlapping duplicate verdicts transitively:
// the earliest-inserted keep survives, everything else in the component is
// deleted in one action.
func (p *planner) resolveDuplicateChain(verdicts []MatchVerdict, members []RecordRef) []ResolutionAction {
	keep := RecordRef{}
	for _, v := range verdicts {
		if v.Kind != VerdictExactDuplicate {
			continue
		}
		k := v.Keep()
		if k == nil {
			continue
		}
		if keep.ID == "" || CompareSourceID(k.SourceID, keep.ID) < 0 {
			keep = k.Ref()
		}
	}

	var targets []RecordRef
	for _, ref := range members {
		if ref == keep {
			continue
		}
		// Defensive: an NSF-tagged record must never be deleted, whatever
		// verdict it arrived through.
		if p.records[ref].Tags.NSF {
			return []ResolutionAction{{
				Action:  ActionFlagForReview,
				Targets: members,
				Reason:  "duplicate chain contains an NSF-tagged record",
			}}
		}
		targets = append(targets, ref)
	}
	if len(targets) == 0 {
		return nil
	}
	return []ResolutionAction{{
		Action:  ActionDelete,
		Targets: targets,
		Reason:  fmt.Sprintf("exact duplicate of %s (kept lowest source id)", keep),
	}}
}

// resolveGroups emits one link action per grouped-match verdict: every
// non-grouping member is associated with the grouping record. No deletions.
func (p *planner) resolveGroups(verdicts []MatchVerdict) []ResolutionAction {
	var actions []ResolutionAction
	for _, v := range verdicts {
		if v.Kind != VerdictGroupedMatch {
			continue
		}
		keep := v.Keep()
		if keep == nil || len(v.Members) < 2 {
			continue
		}
		anchor := keep.Ref()
		var targets []RecordRef
		var sum []string
		for i, m := range v.Members {
			if i == v.KeepIndex {
				continue
			}
			targets = append(targets, m.Ref())
			sum = append(sum, m.Amount.StringFixed(2))
		}
		sortRefs(targets)
		actions = append(actions, ResolutionAction{
			Action:  ActionLink,
			Targets: targets,
			Anchor:  &anchor,
			Reason: fmt.Sprintf("%s %s settled as %s", anchor,
				keep.Amount.StringFixed(2), strings.Join(sum, " + ")),
		})
	}
	return actions
}

func sortRefs(refs []RecordRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return CompareSourceID(refs[i].ID, refs[j].ID) < 0
	})
}

// =============================================================================
// UNION-FIND
// =============================================================================

type unionFind struct {
	parent map[RecordRef]RecordRef
	rank   map[RecordRef]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[RecordRef]RecordRef),
		rank:   make(map[RecordRef]int),
	}
}

func (u *unionFind) add(ref RecordRef) {
	if _, ok := u.parent[ref]; !ok {
		u.parent[ref] = ref
	}
}

func (u *unionFind) find(ref RecordRef) RecordRef {
	u.add(ref)
	root := ref
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// path compression
	for u.parent[ref] != root {
		ref, u.parent[ref] = u.parent[ref], root
	}
	return root
}

func (u *unionFind) union(a, b RecordRef) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

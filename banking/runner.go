/*
runner.go - The reconciliation run loop

PURPOSE:
  Drives one recorded reconciliation run: fetch candidate rows, normalize
  them (skipping unparseable rows without failing the batch), classify,
  plan, apply the plan inside a single transaction, and write one audit
  entry per applied action.

RUN MODES:
  Run:      one source kind, same-table matching (exact amounts)
  RunCross: several kinds together with cross-kind matching enabled
            (wider day window, money tolerance) - this is how deposits
            are matched to the payments that compose them

IDEMPOTENCE:
  Re-running over an already-resolved window deletes nothing further:
  duplicates are gone after the first pass. Grouped matches are rediscovered
  but the stores keep one ledger row per anchor/member pair, so the link
  ledger is stable. Each run is independent; there is no shared mutable
  state.

SEE ALSO:
  - recon/classify.go: The decision ladder
  - recon/plan.go:     Conflict resolution
*/
package banking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/alms/recon-engine/recon"
)

// Runner owns one set of persistence dependencies and runs reconciliations
// against them. All state is per-invocation.
type Runner struct {
	Records    recon.RecordStore
	Applier    recon.Applier
	Runs       recon.RunStore
	Audit      recon.AuditLog
	Normalizer *recon.Normalizer
	Config     recon.ClassifierConfig
}

func NewRunner(records recon.RecordStore, applier recon.Applier, runs recon.RunStore, audit recon.AuditLog) *Runner {
	return &Runner{
		Records:    records,
		Applier:    applier,
		Runs:       runs,
		Audit:      audit,
		Normalizer: NewNormalizer(),
		Config:     recon.DefaultClassifierConfig(),
	}
}

// Run reconciles one source kind over a date window using same-table
// matching (exact amount equality).
func (r *Runner) Run(ctx context.Context, kind recon.SourceKind, from, to recon.Date) (*recon.RunRecord, error) {
	return r.run(ctx, []recon.SourceKind{kind}, from, to, false)
}

// RunCross reconciles several kinds together with cross-kind matching
// enabled: wider day window, amount tolerance, and link-only resolution
// across tables.
func (r *Runner) RunCross(ctx context.Context, kinds []recon.SourceKind, from, to recon.Date) (*recon.RunRecord, error) {
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	return r.run(ctx, kinds, from, to, true)
}

func (r *Runner) run(ctx context.Context, kinds []recon.SourceKind, from, to recon.Date, crossKind bool) (*recon.RunRecord, error) {
	run := recon.RunRecord{
		ID:        recon.RunID(uuid.NewString()),
		Kinds:     kinds,
		From:      from,
		To:        to,
		Status:    recon.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.Runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	result, err := r.execute(ctx, run, kinds, from, to, crossKind)
	if err != nil {
		run.Status = recon.RunFailed
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		if saveErr := r.Runs.SaveRun(ctx, run); saveErr != nil {
			log.Printf("run %s: failed to record failure: %v", run.ID, saveErr)
		}
		return nil, err
	}

	run.Status = recon.RunCompleted
	run.Summary = *result
	run.FinishedAt = time.Now().UTC()
	if err := r.Runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	log.Printf("run %s: scanned=%d skipped=%d verdicts=%d deleted=%d linked=%d flagged=%d",
		run.ID, result.Scanned, result.Skipped, result.Verdicts, result.Deleted, result.Linked, result.Flagged)
	return &run, nil
}

func (r *Runner) execute(ctx context.Context, run recon.RunRecord, kinds []recon.SourceKind, from, to recon.Date, crossKind bool) (*recon.RunSummary, error) {
	var summary recon.RunSummary

	var records []recon.FinancialRecord
	for _, kind := range kinds {
		rows, err := r.Records.LoadWindow(ctx, kind, from, to)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", TableFor(kind), err)
		}
		for _, row := range rows {
			summary.Scanned++
			rec, err := r.Normalizer.Normalize(kind, row)
			if err != nil {
				if recon.IsSkippable(err) {
					summary.Skipped++
					log.Printf("run %s: skipping row: %v", run.ID, err)
					continue
				}
				return nil, err
			}
			records = append(records, rec)
		}
	}

	cfg := r.Config
	cfg.CrossKind = crossKind
	verdicts := recon.Classify(records, cfg)
	summary.Verdicts = len(verdicts)

	actions := recon.Plan(verdicts)
	if err := r.apply(ctx, run.ID, actions, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// apply executes the whole action list inside one transaction, then writes
// one audit entry per action. If any step fails nothing is committed.
func (r *Runner) apply(ctx context.Context, runID recon.RunID, actions []recon.ResolutionAction, summary *recon.RunSummary) error {
	if len(actions) == 0 {
		return nil
	}

	err := r.Applier.WithTx(ctx, func(ops recon.ApplyOps) error {
		for _, action := range actions {
			switch action.Action {
			case recon.ActionDelete:
				for kind, ids := range groupByKind(action.Targets) {
					if err := ops.BackupAndDelete(kind, ids, action.Reason); err != nil {
						return err
					}
				}
				summary.Deleted += len(action.Targets)
			case recon.ActionLink:
				if action.Anchor == nil {
					return fmt.Errorf("link action without anchor: %v", action.Targets)
				}
				if err := ops.Link(*action.Anchor, action.Targets, runID, action.Reason); err != nil {
					return err
				}
				summary.Linked += len(action.Targets)
			case recon.ActionFlagForReview:
				if err := ops.Flag(action.Targets, runID, action.Reason); err != nil {
					return err
				}
				summary.Flagged += len(action.Targets)
			default:
				return fmt.Errorf("unknown action type %q", action.Action)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply actions: %w", err)
	}

	for _, action := range actions {
		entry := recon.AuditEntry{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			RunID:     runID,
			Action:    action.Action,
			Targets:   action.Targets,
			Anchor:    action.Anchor,
			Reason:    action.Reason,
		}
		if err := r.Audit.AppendAudit(ctx, entry); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
	}
	return nil
}

func groupByKind(refs []recon.RecordRef) map[recon.SourceKind][]recon.SourceID {
	out := make(map[recon.SourceKind][]recon.SourceID)
	for _, ref := range refs {
		out[ref.Kind] = append(out[ref.Kind], ref.ID)
	}
	return out
}

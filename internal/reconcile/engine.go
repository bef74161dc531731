// Package reconcile synchronizes stored wallet records with the live
// membership directory.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"wallet-roster/internal/directory"
	"wallet-roster/internal/domain"
	"wallet-roster/internal/idhash"
	"wallet-roster/internal/observability"
	"wallet-roster/internal/roles"
	"wallet-roster/internal/storage"
)

// Default worker pool widths. Prune passes are lookup-bound, so they
// run wider than passes that also write.
const (
	defaultWorkers      = 5
	defaultPruneWorkers = 20

	defaultLookupTimeout = 10 * time.Second
)

// Options configures an Engine.
type Options struct {
	Store     storage.WalletStore
	Directory directory.Directory
	Roles     *roles.PriorityList

	// Audit receives per-member outcomes after each pass. Optional;
	// audit failures are logged, never surfaced.
	Audit storage.ReconcileAuditStore

	// Notifier delivers async pass results. Required for RunAsync.
	Notifier Notifier

	Metrics *observability.Metrics

	// Workers overrides the per-mode pool width when > 0.
	Workers int

	// LookupTimeout bounds each directory call. Zero means default.
	LookupTimeout time.Duration

	// DryRun computes the full diff but submits nothing.
	DryRun bool

	Logger *log.Logger
}

// Engine runs reconciliation passes over the wallet record store.
type Engine struct {
	store         storage.WalletStore
	directory     directory.Directory
	roles         *roles.PriorityList
	audit         storage.ReconcileAuditStore
	notifier      Notifier
	metrics       *observability.Metrics
	workers       int
	lookupTimeout time.Duration
	dryRun        bool
	logger        *log.Logger
}

// Result is the full product of one pass: aggregate counts plus the
// per-member outcomes they were derived from.
type Result struct {
	Summary  domain.Summary
	Outcomes []*domain.ReconcileOutcome
}

// NewEngine creates a reconciliation engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if opts.Roles == nil {
		return nil, fmt.Errorf("priority list is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}

	return &Engine{
		store:         opts.Store,
		directory:     opts.Directory,
		roles:         opts.Roles,
		audit:         opts.Audit,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		workers:       opts.Workers,
		lookupTimeout: lookupTimeout,
		dryRun:        opts.DryRun,
		logger:        logger,
	}, nil
}

// Run executes one reconciliation pass: snapshot, per-member checks
// through a bounded worker pool, then at most one batched role update
// and one batched delete. A failed batch aborts the remaining
// submission; the returned Result still carries the counts applied so
// far.
func (e *Engine) Run(ctx context.Context, mode domain.Mode) (*Result, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("run pass: invalid mode %q", mode)
	}

	started := time.Now()

	snapshot, err := e.store.List(ctx)
	if err != nil {
		e.recordPass(mode, "error", time.Since(started))
		return nil, fmt.Errorf("list wallet records: %w", err)
	}

	worklist := snapshot
	if mode == domain.ModeFill {
		worklist = worklist[:0:0]
		for _, rec := range snapshot {
			if rec.RoleLabel == "" {
				worklist = append(worklist, rec)
			}
		}
	}

	passID := idhash.ComputePassID(mode, started.UnixMilli(), len(worklist))
	e.logger.Printf("reconcile: starting %s pass %s over %d records", mode, passID[:12], len(worklist))

	outcomes := e.checkAll(ctx, mode, passID, worklist)

	summary := domain.Summary{Mode: mode}
	var updates []domain.RoleUpdate
	var deletes []domain.RecordRef
	for i, o := range outcomes {
		if o == nil {
			continue // pass cancelled before this item was claimed
		}
		summary.Checked++
		if o.LookupError {
			summary.Errors++
		}
		switch o.Action {
		case domain.ActionUpdate:
			updates = append(updates, domain.RoleUpdate{
				Row:       worklist[i].Row,
				MemberID:  o.MemberID,
				RoleLabel: o.NewRole,
			})
		case domain.ActionDelete:
			deletes = append(deletes, domain.RecordRef{
				Row:      worklist[i].Row,
				MemberID: o.MemberID,
			})
		}
	}

	result := &Result{Outcomes: compact(outcomes)}

	if err := ctx.Err(); err != nil {
		summary.Duration = time.Since(started)
		result.Summary = summary
		e.recordPass(mode, "cancelled", summary.Duration)
		return result, fmt.Errorf("pass interrupted: %w", err)
	}

	if e.dryRun {
		summary.Changed = len(updates)
		summary.Deleted = len(deletes)
		summary.Duration = time.Since(started)
		result.Summary = summary
		e.logger.Printf("reconcile: dry run %s would change %d and delete %d of %d records",
			mode, summary.Changed, summary.Deleted, summary.Checked)
		return result, nil
	}

	if len(updates) > 0 {
		n, err := e.store.BatchUpdateRoles(ctx, updates)
		summary.Changed = n
		if err != nil {
			summary.Duration = time.Since(started)
			result.Summary = summary
			e.finishPass(mode, &summary, result.Outcomes, "error")
			return result, fmt.Errorf("apply role updates: %w", err)
		}
	}

	if len(deletes) > 0 {
		n, err := e.store.BatchDelete(ctx, deletes)
		summary.Deleted = n
		if err != nil {
			summary.Duration = time.Since(started)
			result.Summary = summary
			e.finishPass(mode, &summary, result.Outcomes, "error")
			return result, fmt.Errorf("apply deletions: %w", err)
		}
	}

	summary.Duration = time.Since(started)
	result.Summary = summary
	e.finishPass(mode, &summary, result.Outcomes, "ok")

	e.logger.Printf("reconcile: %s pass done: checked=%d changed=%d deleted=%d errors=%d in %s",
		mode, summary.Checked, summary.Changed, summary.Deleted, summary.Errors,
		summary.Duration.Round(time.Millisecond))

	return result, nil
}

// RunAsync acknowledges immediately and runs the pass in the
// background; the outcome is delivered through the Notifier. The pass
// itself is detached from the caller's cancellation.
func (e *Engine) RunAsync(ctx context.Context, mode domain.Mode, recipient string) error {
	if e.notifier == nil {
		return fmt.Errorf("run async pass: notifier is required")
	}
	if !mode.IsValid() {
		return fmt.Errorf("run async pass: invalid mode %q", mode)
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		result, err := e.Run(bg, mode)
		msg := summaryMessage(mode, result, err)
		if nerr := e.notifier.Notify(bg, recipient, msg); nerr != nil {
			e.logger.Printf("reconcile: notify %s failed: %v", recipient, nerr)
		}
	}()

	return nil
}

// checkAll fans the worklist out to a pull-based worker pool and
// returns outcomes positionally aligned with it.
func (e *Engine) checkAll(ctx context.Context, mode domain.Mode, passID string, worklist []*domain.WalletRecord) []*domain.ReconcileOutcome {
	outcomes := make([]*domain.ReconcileOutcome, len(worklist))
	if len(worklist) == 0 {
		return outcomes
	}

	jobs := make(chan int, len(worklist))
	for i := range worklist {
		jobs <- i
	}
	close(jobs)

	workers := e.workersFor(mode)
	if workers > len(worklist) {
		workers = len(worklist)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				outcomes[i] = e.check(ctx, mode, passID, worklist[i])
			}
		}()
	}
	wg.Wait()

	return outcomes
}

// check resolves one record against the directory and applies the
// mode's policy. Lookup failures never escape: they are coerced to the
// mode's fail-safe action and flagged on the outcome.
func (e *Engine) check(ctx context.Context, mode domain.Mode, passID string, rec *domain.WalletRecord) *domain.ReconcileOutcome {
	o := &domain.ReconcileOutcome{
		PassID:      passID,
		Mode:        mode,
		MemberID:    rec.MemberID,
		DisplayName: rec.DisplayName,
		OldRole:     rec.RoleLabel,
		NewRole:     rec.RoleLabel,
		Action:      domain.ActionNone,
		OccurredAt:  time.Now().UnixMilli(),
	}

	lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	member, err := e.directory.Member(lctx, rec.MemberID)
	switch {
	case errors.Is(err, directory.ErrMemberNotFound):
		if mode == domain.ModeFill {
			o.Action = domain.ActionSkip
		} else {
			o.Action = domain.ActionDelete
			o.NewRole = ""
		}

	case err != nil:
		o.LookupError = true
		// Prune fails safe toward removal; the other modes preserve.
		if mode == domain.ModePrune {
			o.Action = domain.ActionDelete
			o.NewRole = ""
		}
		e.logger.Printf("reconcile: lookup %s failed (%s mode): %v", rec.MemberID, mode, err)
		if e.metrics != nil {
			e.metrics.LookupErrors.WithLabelValues(mode.String()).Inc()
		}

	default:
		label := e.roles.Resolve(member.Roles)
		switch mode {
		case domain.ModePrune:
			if label == "" {
				o.Action = domain.ActionDelete
				o.NewRole = ""
			}
		case domain.ModeFill:
			if label != "" && label != rec.RoleLabel {
				o.Action = domain.ActionUpdate
				o.NewRole = label
			}
		default: // refresh
			if label != rec.RoleLabel {
				o.Action = domain.ActionUpdate
				o.NewRole = label
			}
		}
	}

	return o
}

func (e *Engine) workersFor(mode domain.Mode) int {
	if e.workers > 0 {
		return e.workers
	}
	if mode == domain.ModePrune {
		return defaultPruneWorkers
	}
	return defaultWorkers
}

// finishPass persists the audit trail and records metrics. Both are
// best effort.
func (e *Engine) finishPass(mode domain.Mode, summary *domain.Summary, outcomes []*domain.ReconcileOutcome, status string) {
	if e.audit != nil && len(outcomes) > 0 {
		actx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.audit.InsertOutcomes(actx, outcomes); err != nil {
			e.logger.Printf("reconcile: audit insert failed: %v", err)
		}
	}

	e.recordPass(mode, status, summary.Duration)
	if e.metrics != nil {
		e.metrics.RecordsChecked.WithLabelValues(mode.String()).Add(float64(summary.Checked))
		e.metrics.RolesUpdated.Add(float64(summary.Changed))
		e.metrics.RecordsDeleted.Add(float64(summary.Deleted))
		if status == "ok" {
			e.metrics.LastSuccessfulPass.WithLabelValues(mode.String()).SetToCurrentTime()
		}
	}
}

func (e *Engine) recordPass(mode domain.Mode, status string, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordPass(mode.String(), status, duration.Seconds())
}

// compact drops the nil slots left by a cancelled pass.
func compact(outcomes []*domain.ReconcileOutcome) []*domain.ReconcileOutcome {
	out := outcomes[:0:0]
	for _, o := range outcomes {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// summaryMessage renders the async notification body.
func summaryMessage(mode domain.Mode, result *Result, err error) string {
	if err != nil {
		if result != nil {
			s := result.Summary
			return fmt.Sprintf("%s pass failed after %d checks (%d changed, %d deleted applied): %v",
				mode, s.Checked, s.Changed, s.Deleted, err)
		}
		return fmt.Sprintf("%s pass failed: %v", mode, err)
	}

	s := result.Summary
	return fmt.Sprintf("%s pass finished: checked %d, changed %d, deleted %d, errors %d in %s",
		mode, s.Checked, s.Changed, s.Deleted, s.Errors, s.Duration.Round(time.Millisecond))
}

package reconciler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"scmcicd/internal/policy"
	"scmcicd/pkg/logging"
)

// StateError reports a Session method called in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// batch is the kind-independent face of a typed record batch.
type batch interface {
	kind() policy.Kind
	plan(ctx context.Context) ([]Result, error)
	steps() []PlanStep
	execute(ctx context.Context, dryRun bool) []Result
}

// BatchOptions tunes how a batch is scoped.
type BatchOptions struct {
	// DefaultRulebase applies to records without their own rulebase.
	DefaultRulebase policy.Rulebase
	// Invalid are records rejected while loading; they are reported as failed.
	Invalid []*policy.RecordError
}

// Session is one reconciliation invocation. It moves through
// Idle → Loaded → Planned → Executed → Committed|CommitSkipped and refuses
// out-of-order calls. An attempted commit that did not succeed ends in
// CommitFailed or CommitPending. A dry run stays in Planned.
type Session struct {
	state   State
	batches []batch
	report  *Report
	metrics *RunMetrics
}

// NewSession starts an idle session.
func NewSession() *Session {
	return &Session{
		state:   StateIdle,
		metrics: NewRunMetrics(),
		report: &Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
			State:     StateIdle,
		},
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Report returns the report so far.
func (s *Session) Report() *Report {
	s.report.State = s.state
	s.report.Tally()
	return s.report
}

// Metrics returns the per-kind run metrics.
func (s *Session) Metrics() *RunMetrics { return s.metrics }

func (s *Session) transition(to State) {
	logging.Debug("Reconciler", "Run %s: %s -> %s", s.report.RunID, s.state, to)
	s.state = to
	s.report.State = to
}

func (s *Session) record(results ...Result) {
	for _, r := range results {
		s.metrics.RecordResult(r)
	}
	s.report.Results = append(s.report.Results, results...)
}

// AddBatch loads records of one kind into the session. Batches are planned and
// executed in the order they were added. Records whose scope cannot be
// resolved are reported as failed, as are opts.Invalid.
func AddBatch[T policy.Record[T]](s *Session, store Store[T], kind policy.Kind, records []T, opts BatchOptions) error {
	if s.state != StateIdle && s.state != StateLoaded {
		return &StateError{Op: "load records", State: s.state}
	}

	for _, invalid := range opts.Invalid {
		s.record(failedResult(kind, policy.Scope{}, invalid.Name, ActionValidate, invalid))
	}

	b := &typedBatch[T]{store: store, k: kind}
	for _, r := range records {
		scope, err := r.RecordScope(opts.DefaultRulebase)
		if err != nil {
			s.record(failedResult(kind, policy.Scope{}, r.RecordName(), ActionValidate, err))
			continue
		}
		b.add(scope, r)
	}

	s.batches = append(s.batches, b)
	s.transition(StateLoaded)
	logging.Info("Reconciler", "Loaded %d %s record(s) in %d scope(s)", len(records), kind, len(b.order))
	return nil
}

// Plan fetches a snapshot of every scope and computes the plans. A fatal
// error while fetching (see IsFatal) aborts the session and is returned. Any
// other fetch error fails the records of that scope only; the remaining
// scopes are still planned.
func (s *Session) Plan(ctx context.Context) error {
	if s.state != StateLoaded {
		return &StateError{Op: "plan", State: s.state}
	}
	for _, b := range s.batches {
		failed, err := b.plan(ctx)
		if err != nil {
			s.transition(StateAborted)
			return err
		}
		s.record(failed...)
	}
	s.transition(StatePlanned)
	return nil
}

// Steps returns every planned operation in execution order.
func (s *Session) Steps() []PlanStep {
	var steps []PlanStep
	for _, b := range s.batches {
		steps = append(steps, b.steps()...)
	}
	return steps
}

// Execute runs the plans. A dry run makes no remote call, reports simulated
// results and leaves the session in Planned; otherwise it moves to Executed.
func (s *Session) Execute(ctx context.Context, dryRun bool) (*Report, error) {
	if s.state != StatePlanned {
		return nil, &StateError{Op: "execute", State: s.state}
	}
	s.report.DryRun = dryRun
	for _, b := range s.batches {
		s.record(b.execute(ctx, dryRun)...)
	}
	s.report.FinishedAt = time.Now()
	if !dryRun {
		s.transition(StateExecuted)
	}
	return s.Report(), nil
}

// Commit runs the commit step at most once, after Execute. The outcome is
// stored in the report and decides the final state.
func (s *Session) Commit(ctx context.Context, committer Committer, opts CommitOptions) (*CommitOutcome, error) {
	if s.state != StateExecuted {
		return nil, &StateError{Op: "commit", State: s.state}
	}

	outcome := CommitResults(ctx, committer, s.report.Results, opts)
	s.report.Commit = &outcome
	s.report.FinishedAt = time.Now()
	switch outcome.Status {
	case CommitSkipped:
		s.transition(StateCommitSkipped)
	case CommitFailed:
		s.transition(StateCommitFailed)
	case CommitPending:
		s.transition(StateCommitPending)
	default:
		s.transition(StateCommitted)
	}
	return &outcome, outcome.Err
}

// CommitResults decides whether results warrant a commit and performs it.
//
// The commit is skipped when not requested, when any result failed (unless
// opts.Force), when nothing changed, or when no changed scope is a folder.
func CommitResults(ctx context.Context, committer Committer, results []Result, opts CommitOptions) CommitOutcome {
	if !opts.Requested {
		return CommitOutcome{Status: CommitSkipped, Reason: "commit not requested"}
	}

	counts := CountResults(results)
	if counts.Failed > 0 && !opts.Force {
		logging.Warn("Reconciler", "Skipping commit: %d operation(s) failed", counts.Failed)
		return CommitOutcome{
			Status: CommitSkipped,
			Reason: fmt.Sprintf("%d operation(s) failed; use --force to commit anyway", counts.Failed),
		}
	}

	folderSet := make(map[string]bool)
	changed := false
	for _, r := range results {
		if !r.Status.Changed() || r.Simulated {
			continue
		}
		changed = true
		if r.Scope.Container.Committable() {
			folderSet[r.Scope.Container.Name] = true
		}
	}
	if !changed {
		return CommitOutcome{Status: CommitSkipped, Reason: "no changes to commit"}
	}
	if len(folderSet) == 0 {
		logging.Warn("Reconciler", "Skipping commit: changes are only in snippets or devices, which cannot be committed")
		return CommitOutcome{Status: CommitSkipped, Reason: "no committable folder containers"}
	}

	folders := make([]string, 0, len(folderSet))
	for f := range folderSet {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	outcome := CommitOutcome{Folders: folders, Message: opts.Message}
	logging.Info("Reconciler", "Committing folders %v", folders)
	result, err := committer.Commit(ctx, folders, opts.Message)
	outcome.Result = result
	switch {
	case err != nil:
		outcome.Status = CommitFailed
		outcome.Reason = err.Error()
		outcome.Err = err
	case result.Succeeded():
		outcome.Status = CommitCommitted
	case result.Status == policy.CommitStatusPending:
		outcome.Status = CommitPending
		outcome.Reason = "commit job still running"
	default:
		outcome.Status = CommitFailed
		outcome.Reason = result.Message
		if outcome.Reason == "" {
			outcome.Reason = "commit job failed"
		}
	}
	return outcome
}

// typedBatch holds the records of one kind grouped by scope.
type typedBatch[T policy.Record[T]] struct {
	store Store[T]
	k     policy.Kind
	order []policy.Scope
	byKey map[policy.Scope][]T
	plans []Plan[T]
}

func (b *typedBatch[T]) kind() policy.Kind { return b.k }

func (b *typedBatch[T]) add(scope policy.Scope, r T) {
	if b.byKey == nil {
		b.byKey = make(map[policy.Scope][]T)
	}
	if _, ok := b.byKey[scope]; !ok {
		b.order = append(b.order, scope)
	}
	b.byKey[scope] = append(b.byKey[scope], r)
}

func (b *typedBatch[T]) plan(ctx context.Context) ([]Result, error) {
	b.plans = b.plans[:0]
	var failed []Result
	for _, scope := range b.order {
		remote, err := b.store.List(ctx, scope)
		if err != nil {
			err = fmt.Errorf("failed to fetch %s records in %s: %w", b.k, scope, err)
			if IsFatal(err) {
				return nil, err
			}
			logging.Error("Reconciler", err, "Skipping %d %s record(s) in %s", len(b.byKey[scope]), b.k, scope)
			for _, r := range b.byKey[scope] {
				failed = append(failed, failedResult(b.k, scope, r.RecordName(), ActionFetch, err))
			}
			continue
		}
		remote = inContainer(remote, scope.Container)

		plan := BuildPlan(b.k, scope, b.byKey[scope], remote)
		create, update, skip := plan.Counts()
		logging.Info("Reconciler", "Planned %s in %s: %d create, %d update, %d unchanged",
			b.k, scope, create, update, skip)
		b.plans = append(b.plans, plan)
	}
	return failed, nil
}

func (b *typedBatch[T]) steps() []PlanStep {
	var steps []PlanStep
	for _, p := range b.plans {
		steps = append(steps, p.Steps()...)
	}
	return steps
}

func (b *typedBatch[T]) execute(ctx context.Context, dryRun bool) []Result {
	var results []Result
	for _, p := range b.plans {
		results = append(results, Execute(ctx, b.store, p, dryRun)...)
	}
	return results
}

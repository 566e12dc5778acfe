package reconciler

import (
	"context"
	"errors"
	"time"

	"scmcicd/internal/policy"
)

// Store is the remote state of one kind. Implementations issue one call at a
// time and classify errors (see IsFatal).
type Store[T any] interface {
	// List returns every record visible in the scope's container.
	List(ctx context.Context, scope policy.Scope) ([]T, error)
	// Create creates record and returns the id assigned by the store.
	Create(ctx context.Context, scope policy.Scope, record T) (string, error)
	// Update replaces the record identified by id.
	Update(ctx context.Context, scope policy.Scope, id string, record T) error
	// Delete removes the record identified by id.
	Delete(ctx context.Context, scope policy.Scope, id string) error
}

// Committer pushes pending changes of the given folders.
type Committer interface {
	Commit(ctx context.Context, folders []string, message string) (policy.CommitResult, error)
}

// IsFatal reports whether err ends the run: an error anywhere in its chain
// that says so through a Fatal() bool method (auth and connection failures).
func IsFatal(err error) bool {
	var fatal interface{ Fatal() bool }
	return errors.As(err, &fatal) && fatal.Fatal()
}

// Action is what a plan decided for one record.
type Action string

const (
	// ActionCreate creates a record missing from the store.
	ActionCreate Action = "create"
	// ActionUpdate overwrites a record whose managed fields differ.
	ActionUpdate Action = "update"
	// ActionSkip leaves a record alone.
	ActionSkip Action = "skip"
	// ActionDelete removes a record; only explicit delete requests produce it.
	ActionDelete Action = "delete"
	// ActionValidate marks records rejected before planning.
	ActionValidate Action = "validate"
	// ActionFetch marks records whose scope could not be fetched.
	ActionFetch Action = "fetch"
)

// Status is the outcome of one operation.
type Status string

const (
	StatusCreated  Status = "created"
	StatusUpdated  Status = "updated"
	StatusSkipped  Status = "skipped"
	StatusDeleted  Status = "deleted"
	StatusNotFound Status = "not-found"
	StatusFailed   Status = "failed"
)

// Changed reports whether the status reflects a change in the store.
func (s Status) Changed() bool {
	return s == StatusCreated || s == StatusUpdated || s == StatusDeleted
}

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle          State = "Idle"
	StateLoaded        State = "Loaded"
	StatePlanned       State = "Planned"
	StateExecuted      State = "Executed"
	StateCommitted     State = "Committed"
	StateCommitSkipped State = "CommitSkipped"
	// StateCommitFailed is entered when the commit call or job failed.
	StateCommitFailed State = "CommitFailed"
	// StateCommitPending is entered when the commit job outlived the poll timeout.
	StateCommitPending State = "CommitPending"
	// StateAborted is entered when a fatal error stops the run.
	StateAborted State = "Aborted"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateCommitSkipped, StateCommitFailed, StateCommitPending, StateAborted:
		return true
	default:
		return false
	}
}

// Skip reasons.
const (
	ReasonUnchanged = "unchanged"
	ReasonDuplicate = "duplicate of an earlier record"
)

// Operation is one step of a Plan.
type Operation[T any] struct {
	Action Action
	Name   string
	// ID is the remote id the operation targets; empty for Create.
	ID string
	// Record is the payload: the desired record for Create, the remote record
	// overlaid with desired fields for Update.
	Record T
	// Reason explains a Skip.
	Reason string
	// Changed lists the fields an Update rewrites.
	Changed []string
}

// Plan is the ordered list of operations converging one scope.
type Plan[T any] struct {
	Kind       policy.Kind
	Scope      policy.Scope
	Operations []Operation[T]
}

// Counts tallies a plan by action.
func (p Plan[T]) Counts() (create, update, skip int) {
	for _, op := range p.Operations {
		switch op.Action {
		case ActionCreate:
			create++
		case ActionUpdate:
			update++
		case ActionSkip:
			skip++
		}
	}
	return create, update, skip
}

// PlanStep is a kind-independent view of one planned operation.
type PlanStep struct {
	Kind    policy.Kind  `json:"kind" yaml:"kind"`
	Scope   policy.Scope `json:"scope" yaml:"scope"`
	Action  Action       `json:"action" yaml:"action"`
	Name    string       `json:"name" yaml:"name"`
	ID      string       `json:"id,omitempty" yaml:"id,omitempty"`
	Reason  string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Changed []string     `json:"changed,omitempty" yaml:"changed,omitempty"`
}

// Steps flattens the plan for display.
func (p Plan[T]) Steps() []PlanStep {
	steps := make([]PlanStep, 0, len(p.Operations))
	for _, op := range p.Operations {
		steps = append(steps, PlanStep{
			Kind:    p.Kind,
			Scope:   p.Scope,
			Action:  op.Action,
			Name:    op.Name,
			ID:      op.ID,
			Reason:  op.Reason,
			Changed: op.Changed,
		})
	}
	return steps
}

// Result is the outcome of one operation.
type Result struct {
	Kind      policy.Kind  `json:"kind" yaml:"kind"`
	Scope     policy.Scope `json:"scope" yaml:"scope"`
	Name      string       `json:"name" yaml:"name"`
	Action    Action       `json:"action" yaml:"action"`
	Status    Status       `json:"status" yaml:"status"`
	ID        string       `json:"id,omitempty" yaml:"id,omitempty"`
	Reason    string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Changed   []string     `json:"changed,omitempty" yaml:"changed,omitempty"`
	Simulated bool         `json:"simulated,omitempty" yaml:"simulated,omitempty"`
	Message   string       `json:"error,omitempty" yaml:"error,omitempty"`
	Err       error        `json:"-" yaml:"-"`
}

func failedResult(kind policy.Kind, scope policy.Scope, name string, action Action, err error) Result {
	return Result{
		Kind:    kind,
		Scope:   scope,
		Name:    name,
		Action:  action,
		Status:  StatusFailed,
		Message: err.Error(),
		Err:     err,
	}
}

// CommitStatus is the outcome of the commit step.
type CommitStatus string

const (
	CommitCommitted CommitStatus = "committed"
	CommitSkipped   CommitStatus = "skipped"
	CommitFailed    CommitStatus = "failed"
	CommitPending   CommitStatus = "pending"
)

// CommitOptions controls the commit step.
type CommitOptions struct {
	// Requested is false when the user did not ask for a commit.
	Requested bool
	// Force commits even when operations failed.
	Force   bool
	Message string
}

// CommitOutcome records what the commit step did and why.
type CommitOutcome struct {
	Status  CommitStatus        `json:"status" yaml:"status"`
	Reason  string              `json:"reason,omitempty" yaml:"reason,omitempty"`
	Folders []string            `json:"folders,omitempty" yaml:"folders,omitempty"`
	Result  policy.CommitResult `json:"result,omitempty" yaml:"result,omitempty"`
	Message string              `json:"message,omitempty" yaml:"message,omitempty"`
	Err     error               `json:"-" yaml:"-"`
}

// Counts tallies results by status.
type Counts struct {
	Created   int `json:"created" yaml:"created"`
	Updated   int `json:"updated" yaml:"updated"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Deleted   int `json:"deleted" yaml:"deleted"`
	NotFound  int `json:"not_found" yaml:"not_found"`
	Failed    int `json:"failed" yaml:"failed"`
	Simulated int `json:"simulated" yaml:"simulated"`
}

// Report is the outcome of one invocation.
type Report struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	DryRun     bool           `json:"dry_run" yaml:"dry_run"`
	State      State          `json:"state" yaml:"state"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Results    []Result       `json:"results" yaml:"results"`
	Counts     Counts         `json:"counts" yaml:"counts"`
	Commit     *CommitOutcome `json:"commit,omitempty" yaml:"commit,omitempty"`
}

// Tally recomputes Counts from Results.
func (r *Report) Tally() {
	r.Counts = CountResults(r.Results)
}

// Failed returns the number of failed results.
func (r *Report) Failed() int {
	return CountResults(r.Results).Failed
}

// CountResults tallies results by status.
func CountResults(results []Result) Counts {
	var c Counts
	for _, res := range results {
		switch res.Status {
		case StatusCreated:
			c.Created++
		case StatusUpdated:
			c.Updated++
		case StatusSkipped:
			c.Skipped++
		case StatusDeleted:
			c.Deleted++
		case StatusNotFound:
			c.NotFound++
		case StatusFailed:
			c.Failed++
		}
		if res.Simulated {
			c.Simulated++
		}
	}
	return c
}

package reconciler

import (
	"context"

	"scmcicd/pkg/logging"
)

// Execute applies plan to store in order, one call at a time. Every failure is
// recorded in its Result and execution moves on to the next operation.
//
// With dryRun set no call is made: every create and update is reported as a
// simulated success.
func Execute[T any](ctx context.Context, store Store[T], plan Plan[T], dryRun bool) []Result {
	results := make([]Result, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		res := Result{
			Kind:    plan.Kind,
			Scope:   plan.Scope,
			Name:    op.Name,
			Action:  op.Action,
			ID:      op.ID,
			Reason:  op.Reason,
			Changed: op.Changed,
		}

		switch op.Action {
		case ActionSkip:
			res.Status = StatusSkipped
			logging.Debug("Reconciler", "Skipping %s %s in %s: %s", plan.Kind, op.Name, plan.Scope, op.Reason)

		case ActionCreate:
			if dryRun {
				res.Status, res.Simulated = StatusCreated, true
				break
			}
			id, err := store.Create(ctx, plan.Scope, op.Record)
			if err != nil {
				res = failedResult(plan.Kind, plan.Scope, op.Name, op.Action, err)
				logging.Error("Reconciler", err, "Failed to create %s %s in %s", plan.Kind, op.Name, plan.Scope)
				break
			}
			res.Status, res.ID = StatusCreated, id
			logging.Info("Reconciler", "Created %s %s in %s", plan.Kind, op.Name, plan.Scope)

		case ActionUpdate:
			if dryRun {
				res.Status, res.Simulated = StatusUpdated, true
				break
			}
			if err := store.Update(ctx, plan.Scope, op.ID, op.Record); err != nil {
				res = failedResult(plan.Kind, plan.Scope, op.Name, op.Action, err)
				res.ID, res.Changed = op.ID, op.Changed
				logging.Error("Reconciler", err, "Failed to update %s %s in %s", plan.Kind, op.Name, plan.Scope)
				break
			}
			res.Status = StatusUpdated
			logging.Info("Reconciler", "Updated %s %s in %s (%v)", plan.Kind, op.Name, plan.Scope, op.Changed)
		}

		results = append(results, res)
	}
	return results
}

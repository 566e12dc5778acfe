package reconciler

import (
	"context"
	"fmt"

	"scmcicd/internal/policy"
	"scmcicd/pkg/logging"
)

// Delete removes the record called name from scope. A record that does not
// exist is reported as StatusNotFound, which is not an error. Only a failure
// to look the record up is returned as an error; a rejected delete call is
// recorded in the Result.
func Delete[T policy.Record[T]](ctx context.Context, store Store[T], kind policy.Kind, scope policy.Scope, name string) (Result, error) {
	res := Result{Kind: kind, Scope: scope, Name: name, Action: ActionDelete}

	remote, err := store.List(ctx, scope)
	if err != nil {
		return res, fmt.Errorf("failed to fetch %s records in %s: %w", kind, scope, err)
	}

	var target *T
	for _, r := range inContainer(remote, scope.Container) {
		if r.RecordName() == name {
			r := r
			target = &r
			break
		}
	}
	if target == nil {
		logging.Info("Reconciler", "%s %s not found in %s, nothing to delete", kind, name, scope)
		res.Status = StatusNotFound
		return res, nil
	}

	res.ID = (*target).RecordID()
	if err := store.Delete(ctx, scope, res.ID); err != nil {
		logging.Error("Reconciler", err, "Failed to delete %s %s from %s", kind, name, scope)
		failed := failedResult(kind, scope, name, ActionDelete, err)
		failed.ID = res.ID
		return failed, nil
	}

	logging.Info("Reconciler", "Deleted %s %s from %s", kind, name, scope)
	res.Status = StatusDeleted
	return res, nil
}

package reconciler

import (
	"scmcicd/internal/policy"
)

// BuildPlan computes the operations converging scope from remote to desired.
// Desired records are taken in input order: a record missing remotely is
// created, one whose managed fields differ is updated with the remote record
// overlaid by the desired fields, and anything else is skipped. Remote records
// absent from desired are ignored; BuildPlan never deletes.
//
// BuildPlan makes no calls and depends only on its arguments.
func BuildPlan[T policy.Record[T]](kind policy.Kind, scope policy.Scope, desired, remote []T) Plan[T] {
	byName := make(map[string]T, len(remote))
	for _, r := range remote {
		if _, ok := byName[r.RecordName()]; !ok {
			byName[r.RecordName()] = r
		}
	}

	plan := Plan[T]{Kind: kind, Scope: scope, Operations: make([]Operation[T], 0, len(desired))}
	seen := make(map[string]bool, len(desired))
	for _, want := range desired {
		name := want.RecordName()
		if seen[name] {
			plan.Operations = append(plan.Operations, Operation[T]{Action: ActionSkip, Name: name, Reason: ReasonDuplicate})
			continue
		}
		seen[name] = true

		have, exists := byName[name]
		if !exists {
			plan.Operations = append(plan.Operations, Operation[T]{Action: ActionCreate, Name: name, Record: want.ForCreate()})
			continue
		}

		merged, changed := policy.Merge(want, have)
		if len(changed) == 0 {
			plan.Operations = append(plan.Operations, Operation[T]{
				Action: ActionSkip,
				Name:   name,
				ID:     have.RecordID(),
				Reason: ReasonUnchanged,
			})
			continue
		}
		plan.Operations = append(plan.Operations, Operation[T]{
			Action:  ActionUpdate,
			Name:    name,
			ID:      have.RecordID(),
			Record:  merged,
			Changed: changed,
		})
	}
	return plan
}

// inContainer keeps the remote records defined directly in container. Stores
// also return records inherited from parent containers, which must not be
// matched by name.
func inContainer[T policy.Record[T]](records []T, container policy.Container) []T {
	kept := records[:0:0]
	for _, r := range records {
		scope, err := r.RecordScope("")
		if err != nil || scope.Container == container {
			kept = append(kept, r)
		}
	}
	return kept
}

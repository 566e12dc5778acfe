// Package reconciler converges the remote policy store with desired records.
//
// # Overview
//
// A reconciliation run reads desired records from files, fetches a snapshot of
// the remote records in each scope (a container plus, for rules, a rulebase),
// and computes a Plan per scope:
//
//   - a record missing remotely is created
//   - a record whose managed fields differ is updated in place, keeping every
//     field the desired record leaves unset
//   - anything else is skipped as unchanged
//
// Plans never delete. Deletion is an explicit request served by Delete.
//
// # Sessions
//
// Session drives one invocation through its states:
//
//	Idle → Loaded → Planned → Executed → Committed | CommitSkipped
//
// A commit that was attempted but did not succeed ends in CommitFailed or,
// when the job is still running, CommitPending.
//
// Out-of-order calls fail with a *StateError. A dry run executes without
// calling the store and stays in Planned. A fatal error while fetching the
// snapshot (see IsFatal) moves the session to Aborted; any other fetch error
// fails the records of that scope and planning goes on.
//
//	s := reconciler.NewSession()
//	_ = reconciler.AddBatch(s, client.Addresses(), policy.KindAddress, addrs, opts)
//	_ = reconciler.AddBatch(s, client.SecurityRules(), policy.KindSecurityRule, rules, opts)
//	if err := s.Plan(ctx); err != nil {
//		return err
//	}
//	report, _ := s.Execute(ctx, false)
//	outcome, err := s.Commit(ctx, client, reconciler.CommitOptions{Requested: true})
//
// Batches run in the order they are added; the commit happens once, after all
// of them, and is skipped when any operation failed unless forced.
//
// # Watching
//
// FileWatcher re-triggers planning when input files change. It is used by the
// plan command's watch mode.
package reconciler

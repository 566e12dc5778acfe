// Package mock provides in-memory stand-ins for the remote policy store.
//
// Store is a generic in-memory implementation of reconciler.Store. It assigns
// ids, keeps records per scope in insertion order, counts every call and can
// be told to fail specific calls:
//
//	rules := mock.NewStore[policy.SecurityRule]()
//	rules.Seed(scope, existing...)
//	rules.FailOn(mock.OpCreate, "bad-rule", mock.Rejected("name in use"))
//
// Committer records commit calls and returns a configurable result.
//
// Server wraps both behind an httptest server speaking the store's REST
// dialect, token endpoint included, so the real scm client can be exercised
// end to end.
package mock

// Package authz provides a dynamic, path-scoped HTTP authorization engine.
//
// Given an authenticated subject, a request path, and an HTTP method, the
// engine decides allow/deny by evaluating an ordered set of policies that
// bind resource path patterns to (role, action) grants. The policy set is
// mutable external state: the engine observes store change notifications
// and applies them to subsequent decisions without restart and without
// blocking the decision path on remote reads.
//
// # Architecture
//
//	Store (source package)
//	   │  one async initial read + change batches
//	   ▼
//	SnapshotHolder ── atomic replace, blocking only pre-first-load
//	   ▼
//	Evaluator ── ascending-index order, first match terminal
//	   ▼
//	Engine.IsAllowed ── bool, fail-closed on read failure
//
// # Decision semantics
//
//   - No configuration container, or a container with zero policies: allow.
//   - Policies are evaluated in ascending index order; the first policy
//     whose resource pattern matches the path is terminal.
//   - Within the terminal policy, the first permission whose role the
//     subject holds and whose actions contain the method (compared
//     case-insensitively) allows; otherwise the request is denied without
//     consulting later policies.
//   - A failed initial store read denies fail-closed, which is logged and
//     counted separately from policy denies.
//
// # Basic usage
//
//	store, err := source.NewFileStore(&source.FileStoreConfig{Path: "authz.yaml"}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := authz.Activate(store, authz.Options{Logger: logger})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if engine.IsAllowed(ctx, r.URL.Path, r.Method, subject) {
//	    // serve request
//	}
//
// # Thread safety
//
// Decisions run concurrently with each other and with snapshot updates. The
// snapshot is a single atomic reference; no lock is held during role
// membership checks, whose cost is controlled by the caller's Subject
// implementation. Consistency is eventual: a decision may observe a
// snapshot that is stale relative to a store commit whose notification has
// not yet been delivered.
package authz

// Package source provides authorization stores for the authz engine.
//
// A store supplies the current AuthorizationConfig via a one-shot read and
// delivers ordered batches of change notifications via Watch. Three
// implementations are provided:
//
//   - MemoryStore: programmatic configuration, used in tests and by
//     embedders.
//   - FileStore: YAML file watched with fsnotify; saves are debounced into
//     a single change, and deleting the file reports an absent container.
//   - SQLiteStore: policies persisted in SQLite with a version counter;
//     writes between two polls coalesce into one observed transition.
//
// All stores deliver changes in commit order and close their watch
// channels when the subscriber's context is cancelled or the store is
// closed.
//
// # File format
//
//	policies:
//	  - index: 1
//	    resource: /admin/**
//	    permissions:
//	      - role: admin
//	        actions: [GET, POST, PUT, DELETE]
//	  - index: 2
//	    resource: /api/**
//	    permissions:
//	      - role: user
//	        actions: [GET]
package source

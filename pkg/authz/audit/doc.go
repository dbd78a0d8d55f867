// Package audit records authorization decisions for later inspection.
//
// The Recorder implements authz.DecisionObserver: every decision is turned
// into a Record and written to a storage backend by a background worker, so
// the decision path never waits on storage. Backends are provided for
// SQLite (durable) and memory (tests). The Pruner enforces a retention
// period, either on demand or on a cron schedule.
//
//	storage, err := audit.NewSQLiteStorage(audit.DefaultSQLiteConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	recorder := audit.NewRecorder(storage, audit.DefaultConfig())
//	defer recorder.Close()
//
//	engine, err := authz.Activate(store, authz.Options{Observer: recorder})
package audit

package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DecisionObserver receives every decision the engine makes. Implementations
// must not block; the audit recorder satisfies this by enqueueing
// asynchronously.
type DecisionObserver interface {
	ObserveDecision(ctx context.Context, path, method string, d Decision)
}

// Options configures engine activation. All fields are optional.
type Options struct {
	// Logger for engine diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics receives decision and snapshot counters when non-nil.
	Metrics *Metrics

	// Observer receives every decision when non-nil (audit trail).
	Observer DecisionObserver
}

// Engine is a path-scoped HTTP authorization engine bound to one store.
//
// Activation issues a single asynchronous read of the store and registers
// for change notifications; each notification batch atomically replaces the
// effective configuration with the batch's final state. Decisions read
// whatever snapshot is current and never trigger store I/O, so decision
// latency is decoupled from store latency after the first load.
type Engine struct {
	store     Store
	holder    *SnapshotHolder
	evaluator *Evaluator
	logger    *slog.Logger
	metrics   *Metrics
	observer  DecisionObserver

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Activate creates an engine, kicks off the initial asynchronous
// configuration fetch, and registers the change subscription. It returns a
// SubscribeError if the subscription cannot be established; the engine is
// not usable in that case.
func Activate(store Store, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("authorization store cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "authz.engine")

	ctx, cancel := context.WithCancel(context.Background())

	events, err := store.Watch(ctx)
	if err != nil {
		cancel()
		return nil, &SubscribeError{Cause: err}
	}

	e := &Engine{
		store:     store,
		holder:    NewSnapshotHolder(),
		evaluator: NewEvaluator(logger),
		logger:    logger,
		metrics:   opts.Metrics,
		observer:  opts.Observer,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go e.fetchInitial(ctx)
	go e.subscribe(ctx, events)

	logger.Info("authorization engine activated")
	return e, nil
}

// fetchInitial performs the one-shot initial read and resolves the pending
// snapshot handle. A change notification arriving first wins; the stale
// fetch result is then discarded by the holder.
func (e *Engine) fetchInitial(ctx context.Context) {
	cfg, err := e.store.ReadConfig(ctx)
	if err != nil {
		readErr := &StoreReadError{Cause: err}
		e.logger.Warn("initial authorization config read failed, decisions will fail closed",
			"error", err,
		)
		e.holder.Resolve(nil, readErr)
		return
	}

	e.holder.Resolve(cfg, nil)
	e.logger.Info("initial authorization config loaded",
		"present", cfg != nil,
	)
}

// subscribe drains the change stream, installing each batch's final state.
func (e *Engine) subscribe(ctx context.Context, events <-chan ChangeBatch) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				e.logger.Info("authorization change stream closed")
				return
			}
			if len(batch) == 0 {
				continue
			}

			cfg := batch.Final()
			e.holder.Replace(cfg)
			if e.metrics != nil {
				e.metrics.RecordSnapshotUpdate()
			}
			e.logger.Debug("authorization config updated",
				"changes", len(batch),
				"present", cfg != nil,
			)
		}
	}
}

// IsAllowed decides whether subject may perform method on path. It never
// returns an error: a failed initial fetch denies fail-closed, while absent
// or empty configuration allows. The call blocks only if the
// initial fetch is still outstanding, bounded by ctx.
func (e *Engine) IsAllowed(ctx context.Context, path, method string, subject Subject) bool {
	return e.Decide(ctx, path, method, subject).Allowed
}

// Decide is IsAllowed with the full decision, including the reason and the
// terminal policy index.
func (e *Engine) Decide(ctx context.Context, path, method string, subject Subject) Decision {
	start := time.Now()

	var decision Decision
	cfg, err := e.holder.Get(ctx)
	if err != nil {
		// Infrastructure failure reading the config container: deny.
		// Distinct from an absent configuration, which allows.
		e.logger.Warn("authorization config unavailable, denying access",
			"path", path,
			"method", method,
			"error", err,
		)
		decision = Decision{Allowed: false, Reason: ReasonReadFailure, PolicyIndex: -1}
	} else {
		decision = e.evaluator.Evaluate(cfg, path, method, subject)
	}

	if e.metrics != nil {
		e.metrics.RecordDecision(decision)
		e.metrics.RecordEvalDuration(time.Since(start).Seconds())
	}
	if e.observer != nil {
		e.observer.ObserveDecision(ctx, path, method, decision)
	}

	return decision
}

// Close unregisters the change subscription and waits for the subscription
// goroutine to exit. It is idempotent and safe to call concurrently.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		<-e.done
		e.logger.Info("authorization engine closed")
	})
	return nil
}

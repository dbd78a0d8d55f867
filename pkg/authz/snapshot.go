package authz

import (
	"context"
	"sync"
	"sync/atomic"
)

// snapshotState is one immutable value held by the SnapshotHolder. Exactly
// one of cfg/err is meaningful; err is only ever set by a failed initial
// fetch.
type snapshotState struct {
	cfg *AuthorizationConfig
	err error
}

// SnapshotHolder is a single-writer many-reader cell holding the currently
// effective configuration. It starts out pending: Get blocks until either
// the initial fetch resolves the pending handle or a change notification
// performs the first Replace. After that, Get never blocks again and
// Replace is a plain atomic pointer swap.
type SnapshotHolder struct {
	current atomic.Pointer[snapshotState]

	// pending identifies the unresolved initial handle so a late-arriving
	// fetch result cannot clobber a config installed by a newer change
	// notification.
	pending *snapshotState

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSnapshotHolder creates a holder in the pending state.
func NewSnapshotHolder() *SnapshotHolder {
	h := &SnapshotHolder{
		pending: &snapshotState{},
		ready:   make(chan struct{}),
	}
	h.current.Store(h.pending)
	return h
}

// Get returns the current configuration. It blocks only while the initial
// fetch is outstanding; ctx bounds that wait. The returned error is either
// the initial fetch failure or ctx's error, never a policy condition.
func (h *SnapshotHolder) Get(ctx context.Context) (*AuthorizationConfig, error) {
	select {
	case <-h.ready:
	default:
		select {
		case <-h.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s := h.current.Load()
	return s.cfg, s.err
}

// Resolve completes the initial pending handle with the fetch result. If a
// Replace already occurred, the stale fetch result is discarded: the
// notification that triggered the Replace is strictly newer. Resolve is a
// no-op after the first call.
func (h *SnapshotHolder) Resolve(cfg *AuthorizationConfig, err error) {
	if h.current.CompareAndSwap(h.pending, &snapshotState{cfg: cfg, err: err}) {
		h.readyOnce.Do(func() { close(h.ready) })
	}
}

// Replace unconditionally installs cfg (which may be nil, meaning the
// container was deleted) as the current configuration. It never blocks and
// never fails; all subsequent Get calls observe the new value.
func (h *SnapshotHolder) Replace(cfg *AuthorizationConfig) {
	h.current.Store(&snapshotState{cfg: cfg})
	h.readyOnce.Do(func() { close(h.ready) })
}

// Resolved reports whether the holder has left the pending state.
func (h *SnapshotHolder) Resolved() bool {
	select {
	case <-h.ready:
		return true
	default:
		return false
	}
}

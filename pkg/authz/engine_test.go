package authz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is a controllable Store for engine tests.
type fakeStore struct {
	cfg     *AuthorizationConfig
	readErr error

	// readGate, when non-nil, blocks ReadConfig until closed.
	readGate chan struct{}

	events   chan ChangeBatch
	watchErr error
}

func newFakeStore(cfg *AuthorizationConfig) *fakeStore {
	return &fakeStore{
		cfg:    cfg,
		events: make(chan ChangeBatch),
	}
}

func (s *fakeStore) ReadConfig(ctx context.Context) (*AuthorizationConfig, error) {
	if s.readGate != nil {
		select {
		case <-s.readGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.cfg, nil
}

func (s *fakeStore) Watch(ctx context.Context) (<-chan ChangeBatch, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.events, nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestActivate_Validation rejects a nil store and surfaces subscription
// failures
func TestActivate_Validation(t *testing.T) {
	if _, err := Activate(nil, Options{}); err == nil {
		t.Error("Activate(nil) error = nil, want error")
	}

	store := newFakeStore(nil)
	store.watchErr = errors.New("subscription refused")
	_, err := Activate(store, Options{})
	if err == nil {
		t.Fatal("Activate() error = nil, want SubscribeError")
	}
	var se *SubscribeError
	if !errors.As(err, &se) {
		t.Errorf("Activate() error = %v, want *SubscribeError", err)
	}
}

// TestEngine_AllowsWithAbsentConfig covers the no-restriction default
func TestEngine_AllowsWithAbsentConfig(t *testing.T) {
	store := newFakeStore(nil)
	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if !engine.IsAllowed(context.Background(), "/any/path", "GET", Roles()) {
		t.Error("IsAllowed() = false with absent config, want true")
	}
}

// TestEngine_EvaluatesInitialConfig covers decisions against the first
// fetched snapshot
func TestEngine_EvaluatesInitialConfig(t *testing.T) {
	store := newFakeStore(&AuthorizationConfig{Policies: []Policy{adminPolicy(1)}})
	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	if !engine.IsAllowed(ctx, "/admin/users", "GET", Roles("admin")) {
		t.Error("IsAllowed() = false for granted request, want true")
	}
	if engine.IsAllowed(ctx, "/admin/users", "GET", Roles("guest")) {
		t.Error("IsAllowed() = true for subject without role, want false")
	}
}

// TestEngine_FirstDecisionBlocksOnInitialFetch verifies decisions wait for
// the outstanding initial read and then proceed
func TestEngine_FirstDecisionBlocksOnInitialFetch(t *testing.T) {
	store := newFakeStore(&AuthorizationConfig{Policies: []Policy{adminPolicy(1)}})
	store.readGate = make(chan struct{})

	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	decided := make(chan bool, 1)
	go func() {
		decided <- engine.IsAllowed(context.Background(), "/admin/users", "GET", Roles("admin"))
	}()

	select {
	case <-decided:
		t.Fatal("decision returned while initial fetch was outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	close(store.readGate)

	select {
	case allowed := <-decided:
		if !allowed {
			t.Error("decision after fetch completed = deny, want allow")
		}
	case <-time.After(time.Second):
		t.Fatal("decision never completed after initial fetch resolved")
	}
}

// TestEngine_FailsClosedOnReadFailure verifies infrastructure failures deny
// rather than defaulting open
func TestEngine_FailsClosedOnReadFailure(t *testing.T) {
	store := newFakeStore(nil)
	store.readErr = errors.New("datastore unavailable")

	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	eventually(t, time.Second, func() bool {
		d := engine.Decide(ctx, "/any/path", "GET", Roles("admin"))
		return !d.Allowed && d.Reason == ReasonReadFailure
	}, "decision never failed closed with read_failure reason")
}

// TestEngine_ObservesChangeNotifications verifies a delivered batch replaces
// the snapshot for subsequent decisions
func TestEngine_ObservesChangeNotifications(t *testing.T) {
	store := newFakeStore(nil)
	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	if !engine.IsAllowed(ctx, "/admin/users", "GET", Roles("guest")) {
		t.Fatal("IsAllowed() = false before any policy exists")
	}

	restricted := &AuthorizationConfig{Policies: []Policy{adminPolicy(1)}}
	store.events <- ChangeBatch{{Before: nil, After: restricted}}

	eventually(t, time.Second, func() bool {
		return !engine.IsAllowed(ctx, "/admin/users", "GET", Roles("guest"))
	}, "new config was never observed by decisions")

	// Deleting the container reverts to default-allow.
	store.events <- ChangeBatch{{Before: restricted, After: nil}}

	eventually(t, time.Second, func() bool {
		return engine.IsAllowed(ctx, "/admin/users", "GET", Roles("guest"))
	}, "container deletion was never observed by decisions")
}

// TestEngine_BatchLastEntryWins verifies only the final state of a coalesced
// batch is installed
func TestEngine_BatchLastEntryWins(t *testing.T) {
	store := newFakeStore(nil)
	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	intermediate := &AuthorizationConfig{Policies: []Policy{
		{Index: 1, Resource: "/**", Permissions: nil},
	}}
	final := &AuthorizationConfig{Policies: []Policy{adminPolicy(1)}}

	store.events <- ChangeBatch{
		{Before: nil, After: intermediate},
		{Before: intermediate, After: final},
	}

	ctx := context.Background()
	eventually(t, time.Second, func() bool {
		return engine.IsAllowed(ctx, "/admin/users", "GET", Roles("admin"))
	}, "batch final state was never installed")
}

// TestEngine_ChangeBeatsSlowInitialFetch verifies a notification arriving
// before the initial fetch resolves takes precedence over the fetch result
func TestEngine_ChangeBeatsSlowInitialFetch(t *testing.T) {
	stale := &AuthorizationConfig{Policies: []Policy{
		{Index: 1, Resource: "/**", Permissions: nil},
	}}
	store := newFakeStore(stale)
	store.readGate = make(chan struct{})

	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	fresh := &AuthorizationConfig{Policies: []Policy{adminPolicy(1)}}
	store.events <- ChangeBatch{{Before: stale, After: fresh}}

	ctx := context.Background()
	eventually(t, time.Second, func() bool {
		return engine.IsAllowed(ctx, "/admin/users", "GET", Roles("admin"))
	}, "notification config was never observed")

	// Let the stale fetch complete; it must not displace the fresh config.
	close(store.readGate)
	time.Sleep(20 * time.Millisecond)

	if !engine.IsAllowed(ctx, "/admin/users", "GET", Roles("admin")) {
		t.Error("stale initial fetch displaced a newer notification config")
	}
}

// TestEngine_CloseIsIdempotent verifies repeated Close calls are safe
func TestEngine_CloseIsIdempotent(t *testing.T) {
	store := newFakeStore(nil)
	engine, err := Activate(store, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

// recordingObserver captures observed decisions.
type recordingObserver struct {
	mu        sync.Mutex
	decisions []Decision
}

func (o *recordingObserver) ObserveDecision(ctx context.Context, path, method string, d Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.decisions)
}

// TestEngine_NotifiesObserver verifies every decision reaches the observer
func TestEngine_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	store := newFakeStore(nil)
	engine, err := Activate(store, Options{Observer: obs})
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	engine.IsAllowed(ctx, "/a", "GET", Roles())
	engine.IsAllowed(ctx, "/b", "POST", Roles())

	if got := obs.count(); got != 2 {
		t.Errorf("observer saw %d decisions, want 2", got)
	}
}

// TestChangeBatch_Final covers the last-entry extraction
func TestChangeBatch_Final(t *testing.T) {
	a := &AuthorizationConfig{}
	b := &AuthorizationConfig{Policies: []Policy{{Index: 1}}}

	tests := []struct {
		name  string
		batch ChangeBatch
		want  *AuthorizationConfig
	}{
		{
			name:  "empty batch",
			batch: nil,
			want:  nil,
		},
		{
			name:  "single entry",
			batch: ChangeBatch{{After: a}},
			want:  a,
		},
		{
			name:  "last entry wins",
			batch: ChangeBatch{{After: a}, {Before: a, After: b}},
			want:  b,
		},
		{
			name:  "deletion as final state",
			batch: ChangeBatch{{After: a}, {Before: a, After: nil}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.Final(); got != tt.want {
				t.Errorf("Final() = %p, want %p", got, tt.want)
			}
		})
	}
}

package source

import (
	"context"
	"sync"

	"mercator-hq/sentinel/pkg/authz"
)

// MemoryStore is an in-memory authorization store. It is used in tests and
// by embedders that manage the configuration programmatically.
type MemoryStore struct {
	mu    sync.Mutex
	cfg   *authz.AuthorizationConfig
	bcast *broadcaster
}

// NewMemoryStore creates a memory store with an initial configuration.
// A nil cfg means the container starts out absent.
func NewMemoryStore(cfg *authz.AuthorizationConfig) *MemoryStore {
	return &MemoryStore{
		cfg:   cfg.Clone(),
		bcast: newBroadcaster(),
	}
}

// ReadConfig returns a copy of the current configuration.
func (s *MemoryStore) ReadConfig(ctx context.Context) (*authz.AuthorizationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone(), nil
}

// Watch implements authz.Store.
func (s *MemoryStore) Watch(ctx context.Context) (<-chan authz.ChangeBatch, error) {
	return s.bcast.subscribe(ctx), nil
}

// SetConfig replaces the configuration and notifies watchers. Passing nil
// deletes the container.
func (s *MemoryStore) SetConfig(cfg *authz.AuthorizationConfig) {
	s.mu.Lock()
	before := s.cfg
	s.cfg = cfg.Clone()
	after := s.cfg
	s.mu.Unlock()

	s.bcast.publish(authz.Change{Before: before, After: after.Clone()})
}

// Close shuts down all watch subscriptions.
func (s *MemoryStore) Close() error {
	s.bcast.close()
	return nil
}

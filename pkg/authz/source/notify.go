package source

import (
	"context"
	"sync"

	"mercator-hq/sentinel/pkg/authz"
)

// broadcaster fans configuration changes out to subscribers. Changes that
// accumulate while a subscriber is busy are coalesced into a single ordered
// batch, so a slow consumer always observes the latest state without
// unbounded buffering.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	mu      sync.Mutex
	pending authz.ChangeBatch
	signal  chan struct{}
	out     chan authz.ChangeBatch
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uint64]*subscription)}
}

// publish appends change to every subscriber's pending batch. It never
// blocks on consumers.
func (b *broadcaster) publish(change authz.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		sub.mu.Lock()
		sub.pending = append(sub.pending, change)
		sub.mu.Unlock()

		select {
		case sub.signal <- struct{}{}:
		default:
			// Forwarder already signalled; the change rides along in
			// the pending batch.
		}
	}
}

// subscribe registers a new subscriber. The returned channel delivers
// batches in publish order and is closed when ctx is cancelled or the
// broadcaster shuts down.
func (b *broadcaster) subscribe(ctx context.Context) <-chan authz.ChangeBatch {
	sub := &subscription{
		signal: make(chan struct{}, 1),
		out:    make(chan authz.ChangeBatch),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.out)
		return sub.out
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.signal:
				if !ok {
					return
				}
			}

			sub.mu.Lock()
			batch := sub.pending
			sub.pending = nil
			sub.mu.Unlock()

			if len(batch) == 0 {
				continue
			}

			select {
			case sub.out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub.out
}

// close shuts down all subscriptions. Safe to call more than once.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.signal)
	}
}

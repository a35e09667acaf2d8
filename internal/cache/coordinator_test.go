package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type blockingInvalidator struct {
	calls   atomic.Int64
	release chan struct{}
	entered chan struct{}
	block   bool
	mu      sync.Mutex
}

func newBlockingInvalidator(block bool) *blockingInvalidator {
	return &blockingInvalidator{
		block:   block,
		release: make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
}

func (b *blockingInvalidator) Invalidate(ctx context.Context) error {
	b.calls.Add(1)
	b.entered <- struct{}{}
	if b.block {
		b.mu.Lock()
		release := b.release
		b.mu.Unlock()
		<-release
	}
	return nil
}

func (b *blockingInvalidator) releaseOne() {
	b.release <- struct{}{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInvalidateAfterCommit(t *testing.T) {
	inv := newBlockingInvalidator(false)
	c := NewCoordinator(inv, zap.NewNop(), nil)
	defer c.Close()

	c.OnMutationCommitted("create")
	waitFor(t, func() bool { return inv.calls.Load() == 1 })
}

func TestBurstCoalescesButLastCommitInvalidates(t *testing.T) {
	inv := newBlockingInvalidator(true)
	c := NewCoordinator(inv, zap.NewNop(), nil)

	// first commit starts an invalidation that we hold open
	c.OnMutationCommitted("create")
	<-inv.entered

	// a burst lands while the invalidation is in flight; the signals
	// coalesce into one pending invalidation
	for i := 0; i < 10; i++ {
		c.OnMutationCommitted("update")
	}

	inv.releaseOne() // finish the first invalidation
	<-inv.entered    // the coalesced one begins
	inv.releaseOne()

	waitFor(t, func() bool { return inv.calls.Load() == 2 })

	// quiet period: no further invalidations appear
	time.Sleep(50 * time.Millisecond)
	if got := inv.calls.Load(); got != 2 {
		t.Fatalf("invalidations = %d, want burst coalesced into 2", got)
	}
	inv.block = false
	c.Close()
}

func TestCloseDrainsPendingInvalidation(t *testing.T) {
	inv := newBlockingInvalidator(false)
	c := NewCoordinator(inv, zap.NewNop(), nil)

	// a commit that signals right at shutdown must still invalidate
	c.OnMutationCommitted("delete")
	c.Close()

	if got := inv.calls.Load(); got < 1 {
		t.Fatalf("pending invalidation lost on close, calls = %d", got)
	}
}

func TestNoInvalidationWithoutCommit(t *testing.T) {
	inv := newBlockingInvalidator(false)
	c := NewCoordinator(inv, zap.NewNop(), nil)
	defer c.Close()

	time.Sleep(30 * time.Millisecond)
	if got := inv.calls.Load(); got != 0 {
		t.Fatalf("invalidations = %d without any commit", got)
	}
}

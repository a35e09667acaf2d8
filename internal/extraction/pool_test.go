package extraction

import (
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(4, zap.NewNop())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if got := ran.Load(); got != 32 {
		t.Fatalf("ran = %d, want 32", got)
	}
	p.Close()
}

func TestPoolSubmitAfterClose(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	p.Close()
	p.Close() // idempotent

	if err := p.Submit(func() {}); err != ErrPoolClosed {
		t.Fatalf("Submit after close = %v, want ErrPoolClosed", err)
	}
}

func TestPoolCloseWaitsForInFlight(t *testing.T) {
	p := NewPool(2, zap.NewNop())

	started := make(chan struct{})
	var finished atomic.Bool
	_ = p.Submit(func() {
		close(started)
		finished.Store(true)
	})

	<-started
	p.Close()
	if !finished.Load() {
		t.Fatalf("Close returned before in-flight task finished")
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	defer p.Close()

	done := make(chan struct{})
	_ = p.Submit(func() { panic("boom") })
	_ = p.Submit(func() { close(done) })
	<-done
}

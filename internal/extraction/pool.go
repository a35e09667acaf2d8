package extraction

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a drained pool.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is the process-wide bounded worker pool that runs extraction
// tasks. It is started once at process init and drained on shutdown.
type Pool struct {
	logger *zap.Logger
	tasks  chan func()
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts size workers. Sizes below one fall back to one worker.
func NewPool(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		logger: logger,
		tasks:  make(chan func(), size*2),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task, blocking while the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	// the send stays under the lock so Close cannot close the channel
	// out from under a blocked submitter
	p.tasks <- task
	return nil
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.runTask(task)
	}
}

func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extraction task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

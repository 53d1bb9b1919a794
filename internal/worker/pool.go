package worker

import (
	"log/slog"
	"sync"

	"github.com/swapbnb/exchange-coordinator/internal/metrics"
)

type task func()

// Pool runs fire-and-forget tasks on a fixed number of goroutines. A task
// that panics is logged and does not take its worker down.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan task
	mu     sync.RWMutex
	closed bool
}

func NewPool(n, queue int) *Pool {
	if queue <= 0 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker task panic", "err", rec)
		}
	}()
	job()
}

// Submit enqueues f without blocking. It reports false when the queue is
// full or the pool is stopped.
func (p *Pool) Submit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	// counted before the send so a fast worker never drives the gauge negative
	metrics.WorkerQueueDepth.Inc()
	select {
	case p.jobs <- f:
		return true
	default:
		metrics.WorkerQueueDepth.Dec()
		return false
	}
}

// Stop drains queued tasks and waits for the workers to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

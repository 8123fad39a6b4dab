package library

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// pool runs submitted tasks on their own goroutines, at most size at a time.
// submit never blocks the caller.
type pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPool(size int) *pool {
	return &pool{sem: semaphore.NewWeighted(int64(size))}
}

func (p *pool) submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		// Background never cancels, so Acquire only returns once a slot frees.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		task()
	}()

	return nil
}

// close rejects new tasks and waits for queued and running ones to finish.
func (p *pool) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"marketpulse/internal/ports"
)

// Pool bridges blocking, synchronous vendor calls into the orchestration path
// without stalling it. At most Size calls run concurrently; callers suspend
// until their call completes or their context is canceled. A canceled caller
// returns immediately while the vendor call finishes in the background and its
// result is discarded.
type Pool struct {
	sem    *semaphore.Weighted
	logger ports.Logger
	size   int
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a pool with a fixed number of slots.
func New(size int, logger ports.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: worker pool size must be positive", ports.ErrConfiguration)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for worker pool", ports.ErrConfiguration)
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger,
		size:   size,
	}, nil
}

// Size returns the number of pool slots.
func (p *Pool) Size() int {
	return p.size
}

// Do runs fn on a pool slot and waits for it to finish. Acquiring a slot and
// waiting for the result both honor ctx: on cancellation Do returns the
// context error without waiting for the in-flight vendor call.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("%w: worker pool is closed", ports.ErrConfiguration)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return p.translateCtxErr(err)
	}

	done := make(chan error, 1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The vendor call keeps running on its goroutine; the slot is
		// released when it returns and the result is dropped.
		return p.translateCtxErr(ctx.Err())
	}
}

func (p *Pool) translateCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
}

// Close marks the pool closed and waits for in-flight work to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

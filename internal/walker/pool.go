package walker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/forgewalk/forge/pkg/forge"
)

// PoolMetrics tracks bounded-pool operational counters.
type PoolMetrics struct {
	Active    int64
	Completed int64
	Failed    int64
	Panics    int64
}

// Pool bounds the number of concurrently in-flight action goroutines
// across an entire session (not just one node), since a tree can visit
// many Action nodes whose fan-outs would otherwise pile up unbounded
// goroutines if a node is slow to retire. Go blocks for a free slot,
// respecting context cancellation while waiting, and recovers any
// panic from fn so a single misbehaving host-supplied action handler
// cannot bring down the process: the panic is reported to report as a
// forge.ForgeError instead.
type Pool struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics PoolMetrics
}

// NewPool creates a Pool allowing up to size concurrent goroutines.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Go runs fn in a new goroutine once a slot is free, or returns ctx.Err()
// if ctx is cancelled first while waiting for one. fn's result (or, if fn
// panics, a forge.ForgeError describing the panic) is passed to report
// exactly once.
func (p *Pool) Go(ctx context.Context, fn func() error, report func(error)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.wg.Add(1)
	atomic.AddInt64(&p.metrics.Active, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&p.metrics.Panics, 1)
				atomic.AddInt64(&p.metrics.Failed, 1)
				report(forge.NewErrorf(forge.ErrCodePanic, "action panicked: %v", r))
			}
			atomic.AddInt64(&p.metrics.Active, -1)
			<-p.sem
			p.wg.Done()
		}()

		err := fn()
		if err != nil {
			atomic.AddInt64(&p.metrics.Failed, 1)
		} else {
			atomic.AddInt64(&p.metrics.Completed, 1)
		}
		report(err)
	}()
	return nil
}

// Wait blocks until every goroutine submitted via Go has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Metrics returns a snapshot of the pool's current counters.
func (p *Pool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
	}
}

package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultAcquireTimeout bounds how long a request waits for a free session
const DefaultAcquireTimeout = 5 * time.Second

// ErrPoolClosed is returned when acquiring from a closed pool
var ErrPoolClosed = errors.New("session pool is closed")

// PoolMetrics describes session pool usage
type PoolMetrics struct {
	Size            int           `json:"size"`
	InUse           int           `json:"in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time"`
}

// pool hands out a fixed set of sessions, one request at a time each
type pool struct {
	sessions       chan *session
	size           int
	acquireTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	drained chan struct{} // closed once the pool is closed and nothing is in use
	metrics PoolMetrics
}

func newPool(size int, acquireTimeout time.Duration, create func() (*session, error)) (*pool, error) {
	if size <= 0 {
		size = 1
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	p := &pool{
		sessions:       make(chan *session, size),
		size:           size,
		acquireTimeout: acquireTimeout,
		drained:        make(chan struct{}),
		metrics:        PoolMetrics{Size: size},
	}

	for i := 0; i < size; i++ {
		s, err := create()
		if err != nil {
			_ = p.close(context.Background())
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		p.sessions <- s
	}

	return p, nil
}

func (p *pool) acquire(ctx context.Context) (*session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case s, ok := <-p.sessions:
		p.mu.Lock()
		defer p.mu.Unlock()
		p.metrics.WaitTime += time.Since(start)
		if !ok {
			return nil, ErrPoolClosed
		}
		if p.closed {
			// Received just before close drained the channel
			s.destroy()
			return nil, ErrPoolClosed
		}
		p.metrics.InUse++
		p.metrics.TotalAcquired++
		return s, nil
	case <-timer.C:
		p.mu.Lock()
		p.metrics.AcquireFailures++
		p.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		p.mu.Lock()
		p.metrics.AcquireFailures++
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (p *pool) release(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.InUse--
	p.metrics.TotalReleased++

	if p.closed {
		s.destroy()
		if p.metrics.InUse == 0 {
			close(p.drained)
		}
		return
	}
	p.sessions <- s
}

// close destroys idle sessions, then waits until every session in use has
// been released and destroyed or ctx is done
func (p *pool) close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.sessions)
		for s := range p.sessions {
			s.destroy()
		}
		if p.metrics.InUse == 0 {
			close(p.drained)
		}
	}
	p.mu.Unlock()

	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		inUse := p.metrics.InUse
		p.mu.Unlock()
		return fmt.Errorf("%d sessions still in use: %w", inUse, ctx.Err())
	}
}

func (p *pool) getMetrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

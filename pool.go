package md2png

import (
	"context"
	"runtime"
	"sync/atomic"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one render can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent browser sessions to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// PoolStats is a snapshot of RenderPool activity.
type PoolStats struct {
	Size      int    `json:"size"`
	InUse     int    `json:"in_use"`
	Idle      int    `json:"idle"`
	Waiting   int    `json:"waiting"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// RenderPool bounds how many renders, and so browser sessions, run at once.
// Sessions are never shared: each slot only admits one Render of the
// wrapped Renderer at a time.
type RenderPool struct {
	renderer  Renderer
	sem       chan struct{}
	waiting   atomic.Int64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewRenderPool wraps r so that at most n renders run concurrently.
// n < 1 is treated as 1.
func NewRenderPool(r Renderer, n int) *RenderPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &RenderPool{
		renderer: r,
		sem:      make(chan struct{}, n),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *RenderPool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	default:
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (p *RenderPool) Release() {
	<-p.sem
}

// Render waits for a slot, then delegates to the wrapped Renderer.
func (p *RenderPool) Render(ctx context.Context, input Input) (*Result, error) {
	// Rejecting bad input does not need a slot.
	if input.Markdown == "" {
		return p.renderer.Render(ctx, input)
	}

	if err := p.Acquire(ctx); err != nil {
		p.failed.Add(1)
		return nil, newRenderError(KindRenderFailure, err)
	}
	defer p.Release()

	res, err := p.renderer.Render(ctx, input)
	if err != nil {
		p.failed.Add(1)
		return nil, err
	}
	p.completed.Add(1)
	return res, nil
}

// Size returns the pool capacity.
func (p *RenderPool) Size() int {
	return cap(p.sem)
}

// Stats returns a snapshot of pool activity.
func (p *RenderPool) Stats() PoolStats {
	inUse := len(p.sem)
	return PoolStats{
		Size:      cap(p.sem),
		InUse:     inUse,
		Idle:      cap(p.sem) - inUse,
		Waiting:   int(p.waiting.Load()),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is container-aware once automaxprocs has run.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	return max(MinPoolSize, min(n, MaxPoolSize))
}

// Compile-time interface check.
var _ Renderer = (*RenderPool)(nil)

package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// BuildFunc produces a finished chunk for coord. It must honour ctx cancellation.
type BuildFunc func(ctx context.Context, coord ChunkCoord) (*Chunk, error)

// GenerateHandle tracks one generation job. The chunk is only exposed once the job finished Ready.
type GenerateHandle struct {
	coord  ChunkCoord
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	chunk *Chunk
	err   error
}

func newGenerateHandle(parent context.Context, coord ChunkCoord) *GenerateHandle {
	ctx, cancel := context.WithCancel(parent)
	return &GenerateHandle{coord: coord, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (h *GenerateHandle) finish(c *Chunk, err error) {
	h.once.Do(func() {
		h.chunk, h.err = c, err
		h.cancel()
		close(h.done)
	})
}

// Coord returns the chunk coordinate being generated.
func (h *GenerateHandle) Coord() ChunkCoord { return h.coord }

// Done is closed when the job has finished, successfully or not.
func (h *GenerateHandle) Done() <-chan struct{} { return h.done }

// Poll reports whether the job finished and, if so, its outcome. It never blocks.
func (h *GenerateHandle) Poll() (*Chunk, bool, error) {
	select {
	case <-h.done:
		return h.chunk, true, h.err
	default:
		return nil, false, nil
	}
}

// Await blocks until the job finishes or ctx is done. Giving up on ctx does not cancel the job.
func (h *GenerateHandle) Await(ctx context.Context) (*Chunk, error) {
	select {
	case <-h.done:
		return h.chunk, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel asks the job to stop. A job that already finished is unaffected.
func (h *GenerateHandle) Cancel() { h.cancel() }

// GenerationPool runs BuildFunc jobs on a fixed set of workers, at most one job per coordinate.
type GenerationPool struct {
	build BuildFunc

	jobs    chan *GenerateHandle
	pending map[ChunkCoord]*GenerateHandle
	mu      sync.Mutex
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGenerationPool starts workers goroutines consuming a queue of at most queue jobs.
func NewGenerationPool(workers, queue int, build BuildFunc) *GenerationPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &GenerationPool{
		build:   build,
		jobs:    make(chan *GenerateHandle, max(queue, 1)),
		pending: make(map[ChunkCoord]*GenerateHandle),
		ctx:     ctx,
		cancel:  cancel,
	}
	workers = max(workers, 1)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues coord for generation and returns its handle. A coordinate already queued or running
// shares the existing handle.
func (p *GenerationPool) Submit(coord ChunkCoord) *GenerateHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.pending[coord]; ok {
		return h
	}
	h := newGenerateHandle(p.ctx, coord)
	if p.closed {
		h.finish(nil, fmt.Errorf("generate %v: %w", coord, ErrGenerationCancelled))
		return h
	}
	select {
	case p.jobs <- h:
		p.pending[coord] = h
	default:
		h.finish(nil, fmt.Errorf("generate %v: %w", coord, ErrQueueFull))
	}
	return h
}

// Pending returns the number of queued or running jobs.
func (p *GenerationPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close cancels every outstanding job and waits for the workers to exit.
func (p *GenerationPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *GenerationPool) worker() {
	defer p.wg.Done()
	for h := range p.jobs {
		c, err := p.run(h)
		p.mu.Lock()
		delete(p.pending, h.coord)
		p.mu.Unlock()
		h.finish(c, err)
	}
}

func (p *GenerationPool) run(h *GenerateHandle) (c *Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Generate] panic while building %v: %v", h.coord, r)
			c, err = nil, fmt.Errorf("generate %v: %w: %v", h.coord, ErrGenerationFailed, r)
		}
	}()

	if err := h.ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate %v: %w", h.coord, ErrGenerationCancelled)
	}
	c, err = p.build(h.ctx, h.coord)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("generate %v: %w", h.coord, ErrGenerationCancelled)
	case errors.Is(err, ErrGenerationFailed), errors.Is(err, ErrChunkExists):
		return nil, err
	}
	return nil, fmt.Errorf("generate %v: %w: %v", h.coord, ErrGenerationFailed, err)
}

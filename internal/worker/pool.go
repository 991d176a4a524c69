package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Source feeds a Pool: Fetch returns the next batch, Handle processes one item.
// Handle must tolerate seeing an item again when a later batch repeats it.
type Source[T any] interface {
	Fetch(ctx context.Context, limit int) ([]T, error)
	Handle(ctx context.Context, item T) error
}

// Pool polls its source on an interval and hands items to a fixed number of workers.
type Pool[T any] struct {
	name         string
	source       Source[T]
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan T
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPool constructs a worker pool.
func NewPool[T any](name string, source Source[T], pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &Pool[T]{
		name:         name,
		source:       source,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger.With(slog.String("worker", name)),
		jobs:         make(chan T, batchSize*workers),
	}
}

// Start launches background processing.
func (p *Pool[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool[T]) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *Pool[T]) fetchAndDispatch(ctx context.Context) {
	items, err := p.source.Fetch(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch batch failed", slog.String("error", err.Error()))
		return
	}
	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- item:
		}
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.source.Handle(ctx, item); err != nil {
				p.logger.Error("handle item failed", slog.String("error", err.Error()))
			}
		}
	}
}

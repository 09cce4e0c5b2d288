package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Result pairs an input with its outcome. The slice returned by Run is
// index-aligned with the inputs.
type Result[T any, R any] struct {
	Input T
	Value R
	Err   error
}

// Pool runs independent tasks with bounded concurrency.
type Pool[T any, R any] struct {
	workers int
	fn      func(ctx context.Context, input T) (R, error)
}

// New creates a pool with the given worker count (minimum 1).
func New[T any, R any](workers int, fn func(ctx context.Context, input T) (R, error)) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, fn: fn}
}

// Run processes all inputs and returns their results in input order.
// Cancelling the context stops workers between tasks; already-started tasks
// observe the cancellation through their own context use. Inputs that never
// reached a worker carry the context error, so skipped work is never
// mistaken for success.
func (p *Pool[T, R]) Run(ctx context.Context, inputs []T) []Result[T, R] {
	results := make([]Result[T, R], len(inputs))
	fed := make([]bool, len(inputs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				value, err := p.fn(ctx, inputs[idx])
				results[idx] = Result[T, R]{Input: inputs[idx], Value: value, Err: err}
				if err != nil {
					log.Error().Err(err).Int("task", idx).Msg("Task failed")
				}
			}
		}()
	}

feed:
	for i := range inputs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
			fed[i] = true
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if !fed[i] {
				results[i] = Result[T, R]{Input: inputs[i], Err: err}
			}
		}
	}

	return results
}

// Batch splits items into chunks of at most size elements.
func Batch[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

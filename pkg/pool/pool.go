package pool

import (
	"context"
	"sync"
)

// WorkerFunc defines the function signature for a worker that processes an item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// MapFunc processes an item and produces a value.
type MapFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome for the item at Index. Done is false when the item was never
// handed to a worker because ctx ended first; Err is then ctx.Err().
type Result[R any] struct {
	Index int
	Value R
	Err   error
	Done  bool
}

// Map runs fn over items with numWorkers goroutines and returns one Result per item,
// in input order. numWorkers below 1 is treated as 1.
func Map[T, R any](ctx context.Context, items []T, numWorkers int, fn MapFunc[T, R]) []Result[R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]Result[R], len(items))
	for i := range results {
		results[i].Index = i
	}

	var wg sync.WaitGroup
	taskChan := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskChan {
				select {
				case <-ctx.Done():
					results[i].Err = ctx.Err()
					continue
				default:
				}
				v, err := fn(ctx, items[i])
				results[i].Value, results[i].Err, results[i].Done = v, err, true
			}
		}()
	}

	next := 0
OUT:
	for ; next < len(items); next++ {
		select {
		case taskChan <- next:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)
	wg.Wait()

	for i := next; i < len(items); i++ {
		results[i].Err = ctx.Err()
	}
	return results
}

// Run executes a worker pool. It processes a slice of items concurrently.
// It returns the errors returned by workers, in item order.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	results := Map(ctx, items, numWorkers, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, workerFunc(ctx, item)
	})
	var allErrors []error
	for _, r := range results {
		if r.Done && r.Err != nil {
			allErrors = append(allErrors, r.Err)
		}
	}
	return allErrors
}

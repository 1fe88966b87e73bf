// Package batch runs tasks in fixed-size concurrent windows.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks in windows of `concurrency`: every task of a window runs
// concurrently and the window is awaited fully before the next one starts.
// Results keep input order. The first failure of a window fails the whole
// call; siblings already in flight are not cancelled.
func Run[T any](ctx context.Context, tasks []Task[T], concurrency int) ([]T, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]T, len(tasks))
	for start := 0; start < len(tasks); start += concurrency {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+concurrency, len(tasks))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				v, err := tasks[i](ctx)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}

package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/worldgrid/pkg/sequence"
)

// ForEach runs the action for each element of the iterator in its own
// goroutine and waits for all of them. The first error cancels the shared
// context; the action should watch it for early exit.
func ForEach[T any](ctx context.Context, i *sequence.Iterator[T], action func(context.Context, T) error) error {
	group, ctx := errgroup.WithContext(ctx)
	next, stop := i.Pull()
	defer stop()

	for {
		value, valid := next()
		if !valid {
			break
		}
		group.Go(func() error {
			return action(ctx, value)
		})
	}

	return group.Wait()
}

// ForEachLimit is ForEach with a cap on concurrently running actions.
func ForEachLimit[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	next, stop := i.Pull()
	defer stop()

	for {
		value, valid := next()
		if !valid {
			break
		}
		group.Go(func() error {
			return action(ctx, value)
		})
	}

	return group.Wait()
}

package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Loads against the store run side by side. The first failure cancels the
// context handed to the others and is the only error returned.

// Parallel runs fns concurrently, keeping results in argument order.
func Parallel[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	out := make([]T, len(fns))
	g, ctx := errgroup.WithContext(ctx)

	for i, fn := range fns {
		g.Go(into(ctx, fn, &out[i]))
	}

	if err := g.Wait(); err != nil {
		return nil, loadFailed(err)
	}

	return out, nil
}

// Parallel3 runs three loads of different types.
func Parallel3[A, B, C any](
	ctx context.Context,
	fa func(context.Context) (A, error),
	fb func(context.Context) (B, error),
	fc func(context.Context) (C, error),
) (a A, b B, c C, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(into(gctx, fa, &a))
	g.Go(into(gctx, fb, &b))
	g.Go(into(gctx, fc, &c))

	if err := g.Wait(); err != nil {
		var (
			za A
			zb B
			zc C
		)

		return za, zb, zc, loadFailed(err)
	}

	return a, b, c, nil
}

// into adapts fn to errgroup, storing its result in dst on success.
func into[T any](ctx context.Context, fn func(context.Context) (T, error), dst *T) func() error {
	return func() error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}

		*dst = v

		return nil
	}
}

func loadFailed(err error) error {
	return fmt.Errorf("concurrent load: %w", err)
}

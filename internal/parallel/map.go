package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map calls mapFunc for every element of seq with at most limit calls in
// flight and yields the results in completion order. A canceled ctx or an
// early break stops scheduling further calls.
//
//	for d, err := range parallel.Map(ctx, 4, slices.Values(input), f) {}
func Map[E, D any](ctx context.Context, limit int, seq iter.Seq[E], mapFunc func(context.Context, E) (D, error)) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(limit, 1))
		mapped := make(chan result[D], max(limit, 1))

		go func() {
			for e := range seq {
				if gctx.Err() != nil {
					break
				}
				g.Go(func() error {
					if gctx.Err() != nil {
						return nil
					}
					d, err := mapFunc(gctx, e)
					select {
					case <-gctx.Done():
					case mapped <- result[D]{d: d, e: err}:
					}
					return nil
				})
			}
			_ = g.Wait()
			close(mapped)
		}()

		for r := range mapped {
			if !yield(r.d, r.e) {
				cancel()
				// drain so the workers blocked on send can exit
				for range mapped {
				}
				return
			}
		}
	}
}

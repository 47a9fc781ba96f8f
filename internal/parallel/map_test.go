package parallel_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/owtf/exporter/internal/parallel"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Parallel()

	sleep := func(ctx context.Context, d time.Duration) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d):
			return int(d / time.Second), nil
		}
	}
	input := []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}

	var testCases = []struct {
		scenario string
		limit    int
		then     time.Duration
	}{
		{"limit 1", 1, 18 * time.Second},
		{"limit 2", 2, 12 * time.Second},
		{"limit 10", 10, 10 * time.Second},
		{"limit 0 is sequential", 0, 18 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				start := time.Now()
				var got []int
				for d, err := range parallel.Map(t.Context(), tc.limit, slices.Values(input), sleep) {
					require.NoError(t, err)
					got = append(got, d)
				}
				require.ElementsMatch(t, []int{1, 2, 5, 10}, got)
				require.Equal(t, tc.then, time.Since(start))
			})
		})
	}
}

func TestMap_Errors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := func(_ context.Context, i int) (int, error) {
		if i%2 == 0 {
			return 0, boom
		}
		return i, nil
	}

	var oks, errs int
	for _, err := range parallel.Map(t.Context(), 3, slices.Values([]int{1, 2, 3, 4, 5}), f) {
		if err != nil {
			require.ErrorIs(t, err, boom)
			errs++
			continue
		}
		oks++
	}
	require.Equal(t, 3, oks)
	require.Equal(t, 2, errs)
}

func TestMap_Break(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		var started atomic.Int32
		f := func(ctx context.Context, i int) (int, error) {
			started.Add(1)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
				return i, nil
			}
		}

		for d, err := range parallel.Map(t.Context(), 2, slices.Values([]int{1, 100, 100, 100}), f) {
			require.NoError(t, err)
			require.Equal(t, 1, d)
			break
		}
		synctest.Wait()
		require.LessOrEqual(t, started.Load(), int32(3))
	})
}

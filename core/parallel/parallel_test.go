package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeNCoversEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ items, workers int }{
		{0, 4}, {1, 4}, {7, 3}, {100, 8}, {5, 0},
	} {
		hits := make([]int32, tc.items)
		ParallelizeN(tc.items, tc.workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Errorf("items=%d workers=%d: index %d visited %d times", tc.items, tc.workers, i, h)
			}
		}
	}
}

func TestParallelizeWithThresholdSequentialBelowThreshold(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("expected single range [0,10), got [%d,%d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected one sequential call, got %d", calls)
	}
}

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOneResultPerItem(t *testing.T) {
	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}
	pool := NewPool(16, func(ctx context.Context, item int) (int, error) {
		return item * 2, nil
	})

	seen := make(map[int]bool)
	for result := range pool.Execute(context.Background(), items) {
		require.False(t, seen[result.Index], "duplicate result for index %d", result.Index)
		seen[result.Index] = true
		assert.NoError(t, result.Error)
		assert.False(t, result.Skipped)
		assert.Equal(t, items[result.Index]*2, result.Value)
	}
	assert.Len(t, seen, len(items))

	completed, total := pool.Progress()
	assert.Equal(t, int64(len(items)), completed)
	assert.Equal(t, int64(len(items)), total)
}

func TestPoolRespectsWorkerCount(t *testing.T) {
	var active, peak atomic.Int64
	pool := NewPool(4, func(ctx context.Context, item int) (struct{}, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return struct{}{}, nil
	})

	count := 0
	for range pool.Execute(context.Background(), make([]int, 40)) {
		count++
	}
	assert.Equal(t, 40, count)
	assert.LessOrEqual(t, peak.Load(), int64(4))
	assert.Positive(t, peak.Load())
}

func TestPoolCancelSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int64
	pool := NewPool(2, func(ctx context.Context, item int) (int, error) {
		if started.Add(1) == 2 {
			cancel()
		}
		<-ctx.Done()
		return item, ctx.Err()
	})

	items := make([]int, 100)
	var skipped, finished int
	for result := range pool.Execute(ctx, items) {
		if result.Skipped {
			skipped++
			assert.ErrorIs(t, result.Error, context.Canceled)
			continue
		}
		finished++
	}
	assert.Equal(t, len(items), skipped+finished)
	assert.Positive(t, skipped)
}

func TestPoolRecoversPanic(t *testing.T) {
	pool := NewPool(3, func(ctx context.Context, item int) (string, error) {
		if item == 2 {
			panic("boom")
		}
		return "ok", nil
	})
	results := make(map[int]*Result[string])
	for result := range pool.Execute(context.Background(), []int{0, 1, 2, 3}) {
		results[result.Index] = result
	}
	require.Len(t, results, 4)
	assert.ErrorContains(t, results[2].Error, "boom")
	assert.Equal(t, "ok", results[3].Value)
}

func TestExecuteBatchOrdered(t *testing.T) {
	errOdd := errors.New("odd")
	results := ExecuteBatch(context.Background(), []int{1, 2, 3, 4, 5}, 0, func(ctx context.Context, item int) (int, error) {
		if item%2 == 1 {
			return 0, errOdd
		}
		return item * item, nil
	})
	require.Len(t, results, 5)
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, i, result.Index)
	}
	assert.ErrorIs(t, results[0].Error, errOdd)
	assert.Equal(t, 16, results[3].Value)

	assert.Empty(t, ExecuteBatch(context.Background(), nil, 0, func(ctx context.Context, item int) (int, error) {
		return item, nil
	}))
}

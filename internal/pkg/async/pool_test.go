package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecute(t *testing.T) {
	var running, peak int32
	tasks := make([]Task, 8)
	for i := range tasks {
		i := i
		tasks[i] = Task{
			Name: fmt.Sprintf("task-%d", i),
			Execute: func(ctx context.Context) (any, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return i * i, nil
			},
		}
	}

	results := NewPool(3).Execute(context.Background(), tasks)

	require.Len(t, results, len(tasks))
	for i := range tasks {
		r := results[fmt.Sprintf("task-%d", i)]
		assert.NoError(t, r.Err)
		assert.Equal(t, i*i, r.Data)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.NoError(t, FirstError(tasks, results))
}

func TestPoolReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task{
		{Name: "ok", Execute: func(ctx context.Context) (any, error) { return "fine", nil }},
		{Name: "fails", Execute: func(ctx context.Context) (any, error) { return nil, boom }},
	}

	results := NewPool(2).Execute(context.Background(), tasks)

	assert.Equal(t, "fine", results["ok"].Data)
	assert.ErrorIs(t, results["fails"].Err, boom)
	assert.ErrorIs(t, FirstError(tasks, results), boom)
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	tasks := []Task{
		{Name: "a", Execute: func(ctx context.Context) (any, error) { atomic.AddInt32(&calls, 1); return nil, nil }},
		{Name: "b", Execute: func(ctx context.Context) (any, error) { atomic.AddInt32(&calls, 1); return nil, nil }},
	}

	results := NewPool(1).Execute(ctx, tasks)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results["a"].Err, context.Canceled)
	assert.ErrorIs(t, results["b"].Err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewPoolClampsWorkers(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).workerCount)
}

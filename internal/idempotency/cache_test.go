package idempotency

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheStrategyReplaysResponse(t *testing.T) {
	c := New(time.Hour, time.Millisecond, 10, MergeFirst)
	var calls int32
	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "result", nil
	}

	r1, err := c.Execute("key-1", StrategyCache, false, fn)
	require.NoError(t, err)
	r2, err := c.Execute("key-1", StrategyCache, false, fn)
	require.NoError(t, err)

	require.Equal(t, r1, r2)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheStrategyDoesNotReplayErrors(t *testing.T) {
	c := New(time.Hour, time.Millisecond, 10, MergeFirst)
	var calls int32
	fn := func() (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("seat_taken")
		}
		return "result", nil
	}

	_, err := c.Execute("key-1", StrategyCache, false, fn)
	require.Error(t, err)

	r2, err := c.Execute("key-1", StrategyCache, false, fn)
	require.NoError(t, err)
	require.Equal(t, "result", r2)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBypassHeaderDisablesDedup(t *testing.T) {
	c := New(time.Hour, time.Millisecond, 10, MergeFirst)
	var calls int32
	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "result", nil
	}

	_, _ = c.Execute("key-1", StrategyCache, true, fn)
	_, _ = c.Execute("key-1", StrategyCache, true, fn)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCoalesceSharesSingleExecution(t *testing.T) {
	c := New(time.Hour, 50*time.Millisecond, 10, MergeFirst)
	var calls int32
	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _ := c.Execute("key-1", StrategyCoalesce, false, fn)
			results[i] = r
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		require.Equal(t, "shared", r)
	}
}

func TestEvictRemovesExpiredOnly(t *testing.T) {
	c := New(time.Millisecond, time.Millisecond, 10, MergeFirst)
	_, _ = c.Execute("expiring", StrategyCache, false, func() (any, error) { return "v", nil })

	time.Sleep(5 * time.Millisecond)
	c.Evict(time.Now())

	c.mu.Lock()
	_, stillThere := c.records["expiring"]
	c.mu.Unlock()
	require.False(t, stillThere)
}

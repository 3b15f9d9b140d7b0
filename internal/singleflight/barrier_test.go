package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ConcurrentCallersShareOneExecution(t *testing.T) {
	b := New()

	var calls int32
	release := make(chan struct{})
	start := make(chan struct{})

	const n = 20
	results := make([]int, n)
	errs := make([]error, n)
	acquired := make([]bool, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			v, acq, err := b.Do(context.Background(), "principal-1", func(ctx context.Context) (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
			results[i], _ = v.(int)
			errs[i] = err
			acquired[i] = acq
		}(i)
	}

	close(start)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "only one execution should have run the work function")

	winners := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
		if acquired[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller should be reported as the installer")
}

func TestDo_DistinctKeysRunIndependently(t *testing.T) {
	b := New()

	var calls int32
	v1, acq1, err1 := b.Do(context.Background(), "a", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "a-result", nil
	})
	v2, acq2, err2 := b.Do(context.Background(), "b", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "b-result", nil
	})

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "a-result", v1)
	assert.Equal(t, "b-result", v2)
	assert.True(t, acq1)
	assert.True(t, acq2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_ErrorIsWrappedAsServiceError(t *testing.T) {
	b := New()
	cause := errors.New("upstream unavailable")

	_, acquired, err := b.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, cause
	})

	require.Error(t, err)
	assert.True(t, acquired)
	assert.ErrorIs(t, err, ErrService)
	assert.ErrorIs(t, err, cause)
}

func TestDo_AfterCompletionNextCallRunsAgain(t *testing.T) {
	b := New()

	var calls int32
	work := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	_, _, err := b.Do(context.Background(), "k", work)
	require.NoError(t, err)
	_, _, err = b.Do(context.Background(), "k", work)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForget_StartsNewEpochForSubsequentCallers(t *testing.T) {
	b := New()

	release := make(chan struct{})
	firstStarted := make(chan struct{})

	var calls int32
	go func() {
		b.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			close(firstStarted)
			<-release
			return nil, nil
		})
	}()

	<-firstStarted
	b.Forget("k")

	v, acq, err := b.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "second", nil
	})
	require.NoError(t, err)
	assert.True(t, acq)
	assert.Equal(t, "second", v)

	close(release)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

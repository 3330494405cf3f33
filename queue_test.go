package taskqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriorityOrderRunsHighestFirst(t *testing.T) {
	q, err := NewQueue(WithConcurrency(1))
	require.NoError(t, err)
	defer q.Close()

	q.Pause()

	var mu sync.Mutex
	var order []string
	record := func(name string) TaskFunc {
		return func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}
	}

	_, err = q.Add(record("low"), WithPriority(0))
	require.NoError(t, err)
	_, err = q.Add(record("high"), WithPriority(5))
	require.NoError(t, err)
	_, err = q.Add(record("mid"), WithPriority(2))
	require.NoError(t, err)

	q.Start()
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestFixedWindowThrottlesAdmission(t *testing.T) {
	q, err := NewQueue(
		WithIntervalCap(1),
		WithInterval(200*time.Millisecond),
	)
	require.NoError(t, err)
	defer q.Close()

	var count int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&count, 1)
		return nil, nil
	}

	_, err = q.Add(fn)
	require.NoError(t, err)
	_, err = q.Add(fn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&count) == 1 }, 50*time.Millisecond, time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&count) == 2 }, time.Second, time.Millisecond)
}

func TestStrictModeRequiresIntervalAndCap(t *testing.T) {
	_, err := NewQueue(WithStrict(true))
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestPreStartCancelFreesSlotWithoutRunning(t *testing.T) {
	q, err := NewQueue(WithConcurrency(1))
	require.NoError(t, err)
	defer q.Close()

	q.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	f, err := q.Add(func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	}, WithCancel(ctx))
	require.NoError(t, err)

	q.Start()

	_, taskErr := f.Wait(context.Background())
	require.Error(t, taskErr)
	var cancelledErr *CancelledError
	require.ErrorAs(t, taskErr, &cancelledErr)
	require.False(t, ran.Load())
}

func TestTaskTimeoutSettlesWithTimeoutError(t *testing.T) {
	q, err := NewQueue()
	require.NoError(t, err)
	defer q.Close()

	f, err := q.Add(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, WithTaskTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, taskErr := f.Wait(context.Background())
	require.Error(t, taskErr)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, taskErr, &timeoutErr)
}

func TestTaskFailurePropagatesUnderlyingError(t *testing.T) {
	q, err := NewQueue()
	require.NoError(t, err)
	defer q.Close()

	sentinel := errors.New("boom")
	f, err := q.Add(func(context.Context) (any, error) {
		return nil, sentinel
	})
	require.NoError(t, err)

	_, taskErr := f.Wait(context.Background())
	require.Error(t, taskErr)
	require.ErrorIs(t, taskErr, sentinel)
	var failureErr *TaskFailureError
	require.ErrorAs(t, taskErr, &failureErr)
}

func TestClearDiscardsWaitingTasksOnly(t *testing.T) {
	q, err := NewQueue(WithConcurrency(1))
	require.NoError(t, err)
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	running, err := q.Add(func(context.Context) (any, error) {
		close(started)
		<-release
		return "done", nil
	})
	require.NoError(t, err)

	<-started
	waiting, err := q.Add(func(context.Context) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	q.Clear()

	_, waitErr := waiting.Wait(context.Background())
	require.Error(t, waitErr)
	var cancelledErr *CancelledError
	require.ErrorAs(t, waitErr, &cancelledErr)

	close(release)
	val, err := running.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", val)
}

func TestOnIdleFiresAfterAllTasksSettle(t *testing.T) {
	q, err := NewQueue()
	require.NoError(t, err)
	defer q.Close()

	_, err = q.Add(func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	idle := q.OnIdle()

	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("OnIdle did not fire")
	}
}

func TestSetPriorityUnknownIDReturnsNotFound(t *testing.T) {
	q, err := NewQueue()
	require.NoError(t, err)
	defer q.Close()

	err = q.SetPriority("nope", 5)
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.ErrorIs(t, err, ErrNotFound)
}

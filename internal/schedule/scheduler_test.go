package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/watch-agent/internal/repo"
	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingTask struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (t *countingTask) Name() string {
	return t.name
}

func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return t.err
}

type taskFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (t taskFunc) Run(ctx context.Context) error {
	return t.fn(ctx)
}

func (t taskFunc) Name() string {
	return t.name
}

type memRecorder struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

func (r *memRecorder) LastRun(_ context.Context, jobId string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.runs[jobId]
	if !ok {
		return time.Time{}, repo.ErrNotFound
	}
	return at, nil
}

func (r *memRecorder) MarkRun(_ context.Context, jobId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string]time.Time)
	}
	r.runs[jobId] = at
	return nil
}

var start = time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)

func TestScheduler_IndependentIntervals(t *testing.T) {
	clock := newFakeClock(start)
	fast := &countingTask{name: "memecoin"}
	slow := &countingTask{name: "listing"}

	s := NewScheduler(WithClock(clock.Now))
	s.Add(Every(fast, time.Minute), Every(slow, 5*time.Minute))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Tick(ctx)
		s.Wait()
		clock.Advance(time.Minute)
	}

	assert.Equal(t, int32(10), fast.runs.Load())
	assert.Equal(t, int32(2), slow.runs.Load())
}

func TestScheduler_FailureIsolation(t *testing.T) {
	clock := newFakeClock(start)
	failing := &countingTask{
		name:  "listing",
		err:   feed.Fail("binance", errors.New("timeout")),
		block: make(chan struct{}),
	}
	healthy := &countingTask{name: "memecoin"}

	s := NewScheduler(WithClock(clock.Now))
	s.Add(Every(failing, time.Minute), Every(healthy, time.Minute))
	ctx := context.Background()

	// failing 仍阻塞在 fetch 中, healthy 在同一 tick 内完成
	s.Tick(ctx)
	require.Eventually(t, func() bool {
		return healthy.runs.Load() == 1 && !s.Jobs()[1].Running()
	}, time.Second, time.Millisecond)
	assert.True(t, s.Jobs()[0].Running())

	close(failing.block)
	s.Wait()

	// 失败同样推进 nextDue, 不会忙等重试
	assert.Equal(t, start.Add(time.Minute), s.Jobs()[0].NextDue())
	s.Tick(ctx)
	s.Wait()
	assert.Equal(t, int32(1), failing.runs.Load())
}

func TestScheduler_NoOverlap(t *testing.T) {
	clock := newFakeClock(start)
	task := &countingTask{name: "listing", block: make(chan struct{})}

	s := NewScheduler(WithClock(clock.Now))
	s.Add(Every(task, time.Second))
	ctx := context.Background()

	s.Tick(ctx)
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		s.Tick(ctx)
	}
	close(task.block)
	s.Wait()

	assert.Equal(t, int32(1), task.runs.Load())
}

func TestScheduler_PanicRecovered(t *testing.T) {
	clock := newFakeClock(start)
	other := &countingTask{name: "other"}
	panicking := taskFunc{name: "boom", fn: func(ctx context.Context) error {
		panic("nil map")
	}}

	s := NewScheduler(WithClock(clock.Now))
	s.Add(Every(panicking, time.Minute), Every(other, time.Minute))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		s.Tick(ctx)
		s.Wait()
	})
	assert.Equal(t, int32(1), other.runs.Load())
	assert.False(t, s.Jobs()[0].Running())
	assert.Equal(t, start.Add(time.Minute), s.Jobs()[0].NextDue())
}

func TestScheduler_DailyAt(t *testing.T) {
	clock := newFakeClock(start) // 07:30 UTC
	task := &countingTask{name: "summary"}
	recorder := &memRecorder{}

	s := NewScheduler(WithClock(clock.Now), WithRecorder(recorder))
	s.Add(DailyAt(task, 8, DefaultGuard))
	ctx := context.Background()

	tickFor := func(d time.Duration) {
		for elapsed := time.Duration(0); elapsed < d; elapsed += time.Minute {
			s.Tick(ctx)
			s.Wait()
			clock.Advance(time.Minute)
		}
	}

	// 07:30 - 08:00 不触发
	tickFor(30 * time.Minute)
	assert.Equal(t, int32(0), task.runs.Load())

	// 08:00 - 09:00 只触发一次
	tickFor(time.Hour)
	assert.Equal(t, int32(1), task.runs.Load())
	at, err := recorder.LastRun(ctx, "summary")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), at)

	// 第二天 08:00 再次触发
	clock.Advance(22*time.Hour + 30*time.Minute) // 2024-05-02 07:30
	tickFor(time.Hour)
	assert.Equal(t, int32(2), task.runs.Load())
}

func TestScheduler_DailyAt_RestoredAfterRestart(t *testing.T) {
	recorder := &memRecorder{}
	ctx := context.Background()
	require.NoError(t, recorder.MarkRun(ctx, "news", time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC)))

	// 同一小时内重启
	clock := newFakeClock(time.Date(2024, 5, 1, 9, 20, 0, 0, time.UTC))
	task := &countingTask{name: "news"}
	s := NewScheduler(WithClock(clock.Now), WithRecorder(recorder))
	s.Add(DailyAt(task, 9, 0))

	s.restore(ctx)
	s.Tick(ctx)
	s.Wait()
	assert.Equal(t, int32(0), task.runs.Load())
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC).Add(DefaultGuard), s.Jobs()[0].NextDue())
}

func TestScheduler_Run_Cancel(t *testing.T) {
	task := &countingTask{name: "listing", block: make(chan struct{})}
	s := NewScheduler(WithTick(time.Millisecond))
	s.Add(Every(task, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return task.runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.Jobs()[0].Running())
}

func TestScheduler_Run_CancelledCycleNotRecorded(t *testing.T) {
	recorder := &memRecorder{}
	started := make(chan struct{})
	task := taskFunc{name: "listing", fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return feed.Fail("binance", ctx.Err())
	}}
	s := NewScheduler(WithTick(time.Millisecond), WithRecorder(recorder))
	s.Add(Every(task, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, err := recorder.LastRun(context.Background(), "listing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestScheduler_Run_NoJobs(t *testing.T) {
	assert.Error(t, NewScheduler().Run(context.Background()))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "ok", classify(nil))
	assert.Equal(t, "fetch_error", classify(feed.Fail("x", errors.New("boom"))))
	assert.Equal(t, "persistence_error", classify(&repo.PersistenceError{Op: "save", Err: errors.New("disk full")}))
	assert.Equal(t, "cancelled", classify(context.Canceled))
	assert.Equal(t, "cancelled", classify(feed.Fail("x", context.Canceled)))
	assert.Equal(t, "error", classify(errors.New("other")))
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/KNICEX/watch-agent/internal/repo"
	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/samber/lo"
)

const DefaultTick = time.Second

// RunRecorder 持久化每个任务的上次运行时间
type RunRecorder interface {
	LastRun(ctx context.Context, jobId string) (time.Time, error)
	MarkRun(ctx context.Context, jobId string, at time.Time) error
}

// Scheduler 单循环按固定粒度 tick, 到期任务各自在独立 goroutine 中运行
type Scheduler struct {
	jobs     []*JobState
	tick     time.Duration
	now      func() time.Time
	recorder RunRecorder
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

type Option func(s *Scheduler)

func WithTick(tick time.Duration) Option {
	return func(s *Scheduler) {
		if tick > 0 {
			s.tick = tick
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithRecorder(recorder RunRecorder) Option {
	return func(s *Scheduler) {
		s.recorder = recorder
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		tick: DefaultTick,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Add(jobs ...Job) {
	for _, job := range jobs {
		s.jobs = append(s.jobs, newJobState(job))
	}
}

func (s *Scheduler) Jobs() []*JobState {
	return s.jobs
}

// Run 阻塞直到 ctx 取消, 返回前等待所有执行中的周期结束
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("schedule: no jobs")
	}
	s.restore(ctx)

	slog.Info("scheduler started", "jobs", lo.Map(s.jobs, func(item *JobState, _ int) string {
		return item.Name()
	}), "tick", s.tick)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			slog.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick 启动所有到期且未在执行的任务, 不等待其完成
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	for _, st := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		if !st.due(now) || !st.tryStart() {
			continue
		}
		s.wg.Add(1)
		go s.runCycle(ctx, st, now)
	}
}

// Wait 等待所有执行中的周期结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runCycle(ctx context.Context, st *JobState, startedAt time.Time) {
	defer s.wg.Done()
	defer st.finish(startedAt)

	name := st.Name()
	err := s.safeRun(ctx, st.job.Task)
	outcome := classify(err)
	s.metrics.JobRun(name, outcome)

	switch {
	case err == nil:
		slog.Debug("job cycle done", "job", name, "elapsed", s.now().Sub(startedAt))
	case errors.Is(err, context.Canceled):
		slog.Info("job cycle abandoned", "job", name)
		return
	default:
		slog.Error("job cycle failed", "job", name, "outcome", outcome, "error", err)
	}

	if s.recorder != nil {
		if err := s.recorder.MarkRun(context.WithoutCancel(ctx), name, startedAt); err != nil {
			slog.Warn("failed to record job run", "job", name, "error", err)
		}
	}
}

// safeRun 单个任务的 panic 不影响调度循环
func (s *Scheduler) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job", task.Name(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}

func (s *Scheduler) restore(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	for _, st := range s.jobs {
		if !st.job.calendar() {
			continue
		}
		lastRun, err := s.recorder.LastRun(ctx, st.Name())
		if err != nil {
			continue
		}
		st.restore(lastRun)
		slog.Info("restored job schedule", "job", st.Name(), "last_run", lastRun, "next_due", st.NextDue())
	}
}

func classify(err error) string {
	var (
		fetchErr   *feed.FetchError
		persistErr *repo.PersistenceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &persistErr):
		return "persistence_error"
	default:
		return "error"
	}
}

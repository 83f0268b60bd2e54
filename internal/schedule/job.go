package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultGuard 日度任务的防重窗口, 小于 24h 以免每天漂移
const DefaultGuard = 22 * time.Hour

const noHour = -1

type Job struct {
	Task     Task
	Interval time.Duration
	Hour     int // UTC 小时, -1 表示不受日历约束
}

func Every(task Task, interval time.Duration) Job {
	return Job{Task: task, Interval: interval, Hour: noHour}
}

// DailyAt 当前 UTC 小时等于 hour 且距上次运行超过 guard 时触发
func DailyAt(task Task, hour int, guard time.Duration) Job {
	if guard <= 0 {
		guard = DefaultGuard
	}
	return Job{Task: task, Interval: guard, Hour: hour}
}

func (j Job) calendar() bool {
	return j.Hour >= 0
}

// JobState Idle(nextDue) -> Running -> Idle(nextDue'), 仅由 Scheduler 修改
type JobState struct {
	job     Job
	running atomic.Bool

	mu      sync.Mutex
	nextDue time.Time
	lastRun time.Time
}

func newJobState(job Job) *JobState {
	return &JobState{job: job}
}

func (s *JobState) Name() string {
	return s.job.Task.Name()
}

func (s *JobState) Interval() time.Duration {
	return s.job.Interval
}

func (s *JobState) NextDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDue
}

func (s *JobState) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *JobState) Running() bool {
	return s.running.Load()
}

func (s *JobState) due(now time.Time) bool {
	s.mu.Lock()
	nextDue := s.nextDue
	s.mu.Unlock()
	if now.Before(nextDue) {
		return false
	}
	if s.job.calendar() && now.UTC().Hour() != s.job.Hour {
		return false
	}
	return true
}

// tryStart 同一任务同一时间只有一个周期在执行
func (s *JobState) tryStart() bool {
	return s.running.CompareAndSwap(false, true)
}

// finish 成功与否都推进 nextDue, 先写状态再释放 running
func (s *JobState) finish(startedAt time.Time) {
	s.mu.Lock()
	s.lastRun = startedAt
	s.nextDue = startedAt.Add(s.job.Interval)
	s.mu.Unlock()
	s.running.Store(false)
}

// restore 根据持久化的上次运行时间恢复 nextDue, 避免重启后日度任务重复触发
func (s *JobState) restore(lastRun time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = lastRun
	s.nextDue = lastRun.Add(s.job.Interval)
}

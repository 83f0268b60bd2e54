package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KNICEX/watch-agent/internal/entity"
	"github.com/KNICEX/watch-agent/internal/repo"
	"github.com/KNICEX/watch-agent/internal/schedule"
	"github.com/KNICEX/watch-agent/internal/service/detector"
	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/internal/service/notification"
	"github.com/samber/lo"
)

// Formatter 把事件转换为告警文本
type Formatter func(job string, event detector.Event) notification.Alert

// ListingFormatter 交易所上新/下架
func ListingFormatter(exchange string) Formatter {
	return func(job string, event detector.Event) notification.Alert {
		key := func(kind detector.EventKind) string {
			return fmt.Sprintf("%s:%s:%s", job, kind, event.Identifier)
		}
		alert := notification.Alert{Key: key(event.Kind)}
		switch event.Kind {
		case detector.Added:
			alert.Text = fmt.Sprintf("🚀 New pair listed on %s: %s", exchange, event.Identifier)
			alert.Clears = []string{key(detector.Removed)}
		case detector.Removed:
			alert.Text = fmt.Sprintf("⚠️ Delisting detected on %s: %s", exchange, event.Identifier)
			alert.Clears = []string{key(detector.Added)}
		default:
			alert.Text = fmt.Sprintf("%s %s on %s", event.Kind, event.Identifier, exchange)
		}
		return alert
	}
}

func TweetFormatter(job string, event detector.Event) notification.Alert {
	return notification.Alert{
		Key:  fmt.Sprintf("%s:%s", job, event.Identifier),
		Text: "🐦 " + event.Details,
	}
}

// DiffTask 集合类任务: fetch -> diff -> dispatch -> persist
type DiffTask struct {
	name     string
	feed     feed.SetFeed
	store    SnapshotStore
	detector detector.SetDiff
	format   Formatter
	opts     options

	// mu 保证同一任务的读-改-写串行
	mu       sync.Mutex
	loaded   bool
	baseline detector.Baseline
}

type DiffOption func(t *DiffTask)

func WithFormatter(format Formatter) DiffOption {
	return func(t *DiffTask) {
		t.format = format
	}
}

// WithIgnoreRemoved 不报告从集合中消失的成员
func WithIgnoreRemoved() DiffOption {
	return func(t *DiffTask) {
		t.detector.IgnoreRemoved = true
	}
}

func WithDiffOptions(opts ...Option) DiffOption {
	return func(t *DiffTask) {
		for _, opt := range opts {
			opt(&t.opts)
		}
	}
}

func NewDiffTask(name string, f feed.SetFeed, store SnapshotStore, opts ...DiffOption) schedule.Task {
	t := &DiffTask{
		name:   name,
		feed:   f,
		store:  store,
		format: ListingFormatter(f.Name()),
		opts:   newOptions("", nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *DiffTask) Name() string {
	return t.name
}

func (t *DiffTask) Run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.loadBaseline(ctx); err != nil {
		return err
	}

	snapshot, err := t.feed.Fetch(ctx)
	if err != nil {
		return err
	}

	// 拉取成功后不再响应取消, 保证周期要么完整执行要么没有任何效果
	ctx = context.WithoutCancel(ctx)

	events := t.detector.Detect(t.baseline, snapshot)
	if !t.baseline.Known {
		slog.Info("baseline established", "job", t.name, "members", len(snapshot.Members))
	}
	t.record(events)

	if len(events) > 0 {
		alerts := lo.Map(events, func(item detector.Event, _ int) notification.Alert {
			return t.format(t.name, item)
		})
		logDispatch(t.name, t.opts.notifier.Notify(ctx, t.opts.title, alerts))
	}

	err = t.store.Save(ctx, entity.Snapshot{
		JobId:   t.name,
		Members: snapshot.Members,
	})
	if err != nil {
		// 内存基线同样不更新, 下一轮会对旧状态重新比较
		return err
	}
	t.baseline = detector.Baseline{Members: snapshot.Members, Known: true}
	return nil
}

// loadBaseline 每个任务只在启动后读一次存储
func (t *DiffTask) loadBaseline(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	snapshot, err := t.store.Load(ctx, t.name)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		t.baseline = detector.Baseline{}
	case err != nil:
		return err
	default:
		t.baseline = detector.Baseline{Members: snapshot.Members, Known: true}
		slog.Info("baseline loaded", "job", t.name, "members", len(snapshot.Members))
	}
	t.loaded = true
	return nil
}

func (t *DiffTask) record(events []detector.Event) {
	counts := lo.CountValuesBy(events, func(item detector.Event) detector.EventKind {
		return item.Kind
	})
	for kind, n := range counts {
		t.opts.metrics.Events(t.name, string(kind), n)
	}
}

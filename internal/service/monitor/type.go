package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KNICEX/watch-agent/internal/entity"
	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/KNICEX/watch-agent/internal/service/notification"
	"github.com/samber/lo"
)

// Notifier 由 notification.Dispatcher 实现
type Notifier interface {
	Dispatch(ctx context.Context, text string) error
	Notify(ctx context.Context, title string, alerts []notification.Alert) error
	NotifyBatch(ctx context.Context, title string, alerts []notification.Alert) error
}

// SnapshotStore 由 repo.SnapshotRepo 实现
type SnapshotStore interface {
	Load(ctx context.Context, jobId string) (entity.Snapshot, error)
	Save(ctx context.Context, snapshot entity.Snapshot) error
}

type consoleNotifier struct {
}

func (c consoleNotifier) Dispatch(ctx context.Context, text string) error {
	fmt.Println(text)
	return nil
}

func (c consoleNotifier) Notify(ctx context.Context, title string, alerts []notification.Alert) error {
	for _, alert := range alerts {
		fmt.Println(alert.Text)
	}
	return nil
}

func (c consoleNotifier) NotifyBatch(ctx context.Context, title string, alerts []notification.Alert) error {
	fmt.Println(title + "\n" + strings.Join(lo.Map(alerts, func(item notification.Alert, _ int) string {
		return item.Text
	}), "\n"))
	return nil
}

// options 各任务共用的可选项
type options struct {
	notifier Notifier
	metrics  *metrics.Metrics
	title    string
}

type Option func(o *options)

func WithNotifier(notifier Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTitle 合并消息时的标题
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

func newOptions(title string, opts []Option) options {
	o := options{
		notifier: consoleNotifier{},
		title:    title,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// logDispatch 发送失败只记录, 告警是尽力而为的
func logDispatch(job string, err error) {
	if err != nil {
		slog.Error("failed to dispatch alerts", "job", job, "error", err)
	}
}

package monitor

import (
	"context"
	"fmt"

	"github.com/KNICEX/watch-agent/internal/schedule"
	"github.com/KNICEX/watch-agent/internal/service/detector"
	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/internal/service/notification"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	"github.com/samber/lo"
)

const MemecoinTitle = "🐸 MEMECOIN ALERT"

// ThresholdTask 无状态, 每轮扫描全部记录, 重复告警交给 Dispatcher 的去重窗口
type ThresholdTask struct {
	name      string
	feed      feed.MetricFeed
	threshold detector.Threshold
	opts      options
}

func NewThresholdTask(name string, f feed.MetricFeed, threshold detector.Threshold, opts ...Option) schedule.Task {
	return &ThresholdTask{
		name:      name,
		feed:      f,
		threshold: threshold,
		opts:      newOptions(MemecoinTitle, opts),
	}
}

func (t *ThresholdTask) Name() string {
	return t.name
}

func (t *ThresholdTask) Run(ctx context.Context) error {
	snapshot, err := t.feed.Fetch(ctx)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	events := t.threshold.Scan(snapshot)
	t.opts.metrics.Events(t.name, string(detector.ThresholdCrossed), len(events))
	if len(events) == 0 {
		return nil
	}

	alerts := lo.Map(events, func(item detector.Event, _ int) notification.Alert {
		return memecoinAlert(item)
	})
	logDispatch(t.name, t.opts.notifier.NotifyBatch(ctx, t.opts.title, alerts))
	return nil
}

func memecoinAlert(event detector.Event) notification.Alert {
	r := event.Record
	return notification.Alert{
		Key: fmt.Sprintf("memecoin:%s:%s", r.Source, r.Identifier),
		Text: fmt.Sprintf("🚨 %s (%s) %s%% (1h) • vol1h=$%s",
			r.Identifier, r.Source, decimalx.Signed(r.Change1h, 1), r.Volume1h.Truncate(0).String()),
	}
}

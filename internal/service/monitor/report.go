package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KNICEX/watch-agent/internal/schedule"
	"github.com/KNICEX/watch-agent/internal/service/feed"
)

// ReportTask 日度摘要, 拼接多个数据源后作为一条消息发送
type ReportTask struct {
	name  string
	feeds []feed.ReportFeed
	opts  options
}

func NewReportTask(name, title string, feeds []feed.ReportFeed, opts ...Option) schedule.Task {
	return &ReportTask{
		name:  name,
		feeds: feeds,
		opts:  newOptions(title, opts),
	}
}

func (t *ReportTask) Name() string {
	return t.name
}

// Run 单个数据源失败时跳过该段, 全部失败才算本轮失败
func (t *ReportTask) Run(ctx context.Context) error {
	var (
		lines []string
		errs  []error
	)
	for _, f := range t.feeds {
		res, err := f.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Warn("report feed failed", "job", t.name, "feed", f.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		lines = append(lines, res...)
	}
	if len(lines) == 0 {
		if len(errs) > 0 {
			return feed.Fail(t.name, errors.Join(errs...))
		}
		return feed.Fail(t.name, feed.ErrEmptySnapshot)
	}

	ctx = context.WithoutCancel(ctx)
	text := strings.Join(lines, "\n\n")
	if t.opts.title != "" {
		text = t.opts.title + "\n\n" + text
	}
	logDispatch(t.name, t.opts.notifier.Dispatch(ctx, text))
	t.opts.metrics.Events(t.name, "report", 1)
	return nil
}

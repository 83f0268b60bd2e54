package notification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	// telegram 单条消息上限
	DefaultMaxLength      = 4096
	DefaultBatchThreshold = 3
)

// Dispatcher 所有任务共用, 发送串行化; 不排队不重投
type Dispatcher struct {
	primary  Sink
	fallback Sink

	limiter        *rate.Limiter
	batchThreshold int
	maxLength      int
	dedupWindow    time.Duration

	sendMu sync.Mutex

	dedupMu sync.Mutex
	sent    map[string]time.Time

	now     func() time.Time
	metrics *metrics.Metrics
}

type Option func(d *Dispatcher)

func WithFallback(fallback Sink) Option {
	return func(d *Dispatcher) {
		d.fallback = fallback
	}
}

// WithRate every 为两条消息的最小间隔, burst 为突发数量
func WithRate(every time.Duration, burst int) Option {
	return func(d *Dispatcher) {
		if every <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		d.limiter = rate.NewLimiter(rate.Every(every), max(burst, 1))
	}
}

// WithBatchThreshold 单轮事件数超过 n 时合并为一条消息
func WithBatchThreshold(n int) Option {
	return func(d *Dispatcher) {
		d.batchThreshold = n
	}
}

func WithMaxLength(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxLength = n
		}
	}
}

// WithDedupWindow 窗口内相同 key 的告警只发送一次, 0 关闭
func WithDedupWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		d.dedupWindow = window
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(primary Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		primary:        primary,
		limiter:        rate.NewLimiter(rate.Every(time.Second), 5),
		batchThreshold: DefaultBatchThreshold,
		maxLength:      DefaultMaxLength,
		sent:           make(map[string]time.Time),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 先走主通道, 失败后仅尝试一次备用通道
func (d *Dispatcher) Dispatch(ctx context.Context, text string) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	if err := d.limiter.Wait(ctx); err != nil {
		return &DispatchError{Primary: err}
	}

	err := d.primary.Send(ctx, text)
	if err == nil {
		d.metrics.Alert(d.primary.Name(), "ok")
		return nil
	}
	d.metrics.Alert(d.primary.Name(), "error")
	if d.fallback == nil {
		slog.Error("alert dropped", "transport", d.primary.Name(), "error", err)
		return &DispatchError{Primary: err}
	}

	slog.Warn("primary transport failed, trying fallback", "transport", d.primary.Name(), "error", err)
	ferr := d.fallback.Send(ctx, text)
	if ferr == nil {
		d.metrics.Alert(d.fallback.Name(), "ok")
		return nil
	}
	d.metrics.Alert(d.fallback.Name(), "error")
	slog.Error("alert dropped", "primary_error", err, "fallback", d.fallback.Name(), "error", ferr)
	return &DispatchError{Primary: err, Fallback: ferr}
}

// Notify 事件较少时逐条发送, 超过阈值时合并
func (d *Dispatcher) Notify(ctx context.Context, title string, alerts []Alert) error {
	alerts = d.suppress(alerts)
	if len(alerts) == 0 {
		return nil
	}
	if len(alerts) > d.batchThreshold {
		return d.sendBatch(ctx, title, alerts)
	}

	var errs []error
	for _, alert := range alerts {
		if err := d.Dispatch(ctx, alert.Text); err != nil {
			errs = append(errs, err)
			continue
		}
		d.markSent(alert)
	}
	return errors.Join(errs...)
}

// NotifyBatch 总是合并为一条(或按长度拆分的多条)消息
func (d *Dispatcher) NotifyBatch(ctx context.Context, title string, alerts []Alert) error {
	alerts = d.suppress(alerts)
	if len(alerts) == 0 {
		return nil
	}
	return d.sendBatch(ctx, title, alerts)
}

func (d *Dispatcher) sendBatch(ctx context.Context, title string, alerts []Alert) error {
	var errs []error
	for _, chunk := range d.chunk(title, alerts) {
		text := strings.Join(lo.Map(chunk.lines, func(item Alert, _ int) string { return item.Text }), "\n")
		if chunk.title != "" {
			text = chunk.title + "\n" + text
		}
		if err := d.Dispatch(ctx, text); err != nil {
			errs = append(errs, err)
			continue
		}
		d.markSent(chunk.lines...)
	}
	return errors.Join(errs...)
}

type batch struct {
	title string
	lines []Alert
}

// chunk 保持原有顺序, 每条消息不超过 maxLength
func (d *Dispatcher) chunk(title string, alerts []Alert) []batch {
	var (
		res  []batch
		cur  = batch{title: title}
		size = len(title)
	)
	for _, alert := range alerts {
		if len(alert.Text) > d.maxLength-len(title)-1 {
			alert.Text = truncateBytes(alert.Text, d.maxLength-len(title)-1)
		}
		if len(cur.lines) > 0 && size+1+len(alert.Text) > d.maxLength {
			res = append(res, cur)
			cur = batch{title: title}
			size = len(title)
		}
		cur.lines = append(cur.lines, alert)
		size += 1 + len(alert.Text)
	}
	if len(cur.lines) > 0 {
		res = append(res, cur)
	}
	return res
}

func truncateBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	// 不截断在多字节字符中间
	for n > 0 && n < len(s) && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}

func (d *Dispatcher) suppress(alerts []Alert) []Alert {
	if d.dedupWindow <= 0 {
		return alerts
	}
	d.dedupMu.Lock()
	defer d.dedupMu.Unlock()

	now := d.now()
	d.sent = lo.OmitBy(d.sent, func(_ string, at time.Time) bool {
		return now.Sub(at) >= d.dedupWindow
	})
	seen := make(map[string]struct{})
	res := lo.Filter(alerts, func(item Alert, _ int) bool {
		if item.Key == "" {
			return true
		}
		if _, ok := d.sent[item.Key]; ok {
			return false
		}
		if _, ok := seen[item.Key]; ok {
			return false
		}
		seen[item.Key] = struct{}{}
		return true
	})
	d.metrics.Suppressed(len(alerts) - len(res))
	return res
}

func (d *Dispatcher) markSent(alerts ...Alert) {
	if d.dedupWindow <= 0 {
		return
	}
	d.dedupMu.Lock()
	defer d.dedupMu.Unlock()
	now := d.now()
	for _, alert := range alerts {
		for _, key := range alert.Clears {
			delete(d.sent, key)
		}
		if alert.Key != "" {
			d.sent[alert.Key] = now
		}
	}
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ErrEmptySnapshot 响应合法但没有任何数据, 按失败处理, 避免被当作全部下架
var ErrEmptySnapshot = errors.New("feed: empty snapshot")

// FetchError 网络错误、超时、非 200 或响应无法解析
type FetchError struct {
	Feed string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Feed, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func Fail(feed string, err error) *FetchError {
	return &FetchError{Feed: feed, Err: err}
}

// SetSnapshot 标识符集合, Members 已规范化(大写、去重、升序)
type SetSnapshot struct {
	Members   []string
	Labels    map[string]string // 仅用于告警文本, 不参与比较
	FetchedAt time.Time
}

func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NormalizeAll 规范化、去空、去重并排序
func NormalizeAll(ids []string) []string {
	res := lo.Uniq(lo.FilterMap(ids, func(item string, _ int) (string, bool) {
		id := Normalize(item)
		return id, id != ""
	}))
	sort.Strings(res)
	return res
}

func NewSetSnapshot(ids []string, labels map[string]string) SetSnapshot {
	snapshot := SetSnapshot{
		Members:   NormalizeAll(ids),
		FetchedAt: time.Now(),
	}
	if len(labels) > 0 {
		snapshot.Labels = lo.MapKeys(labels, func(_ string, key string) string {
			return Normalize(key)
		})
	}
	return snapshot
}

func (s SetSnapshot) Label(id string) string {
	if label, ok := s.Labels[id]; ok {
		return label
	}
	return id
}

// Record 一条 DEX 交易对指标, 缺失字段为 0
type Record struct {
	Identifier string
	Source     string // 链或数据源
	Change1h   decimal.Decimal
	Volume1h   decimal.Decimal
}

type MetricSnapshot struct {
	Records   []Record
	FetchedAt time.Time
}

type SetFeed interface {
	Name() string
	Fetch(ctx context.Context) (SetSnapshot, error)
}

type MetricFeed interface {
	Name() string
	Fetch(ctx context.Context) (MetricSnapshot, error)
}

// ReportFeed 按日汇总类任务的数据源, 每行一条
type ReportFeed interface {
	Name() string
	Fetch(ctx context.Context) ([]string, error)
}

package detector

import (
	"fmt"
	"sort"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	"github.com/shopspring/decimal"
)

// Threshold 两个条件同时满足才告警, 边界包含在内
type Threshold struct {
	MinVolumeUsd          decimal.Decimal
	MinAbsPercentChange1h decimal.Decimal
}

func (t Threshold) Crossed(r feed.Record) bool {
	return r.Change1h.Abs().GreaterThanOrEqual(t.MinAbsPercentChange1h) &&
		r.Volume1h.GreaterThanOrEqual(t.MinVolumeUsd)
}

// Scan 无状态, 同一条件持续存在时每轮都会产生事件; 按 (Source, Identifier) 排序
func (t Threshold) Scan(snapshot feed.MetricSnapshot) []Event {
	var events []Event
	for i := range snapshot.Records {
		r := snapshot.Records[i]
		if !t.Crossed(r) {
			continue
		}
		events = append(events, Event{
			Kind:       ThresholdCrossed,
			Identifier: r.Identifier,
			Details:    fmt.Sprintf("%s%% (1h) vol1h=$%s", decimalx.Signed(r.Change1h, 1), r.Volume1h.Truncate(0).String()),
			Record:     &r,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Record, events[j].Record
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Identifier < b.Identifier
	})
	return events
}

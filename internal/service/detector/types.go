package detector

import (
	"github.com/KNICEX/watch-agent/internal/service/feed"
)

type EventKind string

const (
	Added            EventKind = "added"
	Removed          EventKind = "removed"
	ThresholdCrossed EventKind = "threshold_crossed"
)

// Event 由检测器产生, 立即交给分发器, 不落库
type Event struct {
	Kind       EventKind
	Identifier string
	Details    string
	Record     *feed.Record // 仅 ThresholdCrossed 有值
}

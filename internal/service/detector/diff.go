package detector

import (
	"sort"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/samber/lo"
)

// Baseline 上一次持久化的集合, Known 为 false 表示首次运行
type Baseline struct {
	Members []string
	Known   bool
}

type SetDiff struct {
	IgnoreRemoved bool
}

// Detect 首次运行只建立基线, 不产生任何事件; 新增在前, 删除在后, 各自升序
func (d SetDiff) Detect(prev Baseline, current feed.SetSnapshot) []Event {
	if !prev.Known {
		return nil
	}
	added, removed := Split(prev.Members, current.Members)

	events := make([]Event, 0, len(added)+len(removed))
	for _, id := range added {
		events = append(events, Event{Kind: Added, Identifier: id, Details: current.Label(id)})
	}
	if d.IgnoreRemoved {
		return events
	}
	for _, id := range removed {
		events = append(events, Event{Kind: Removed, Identifier: id, Details: id})
	}
	return events
}

// Split added = current - previous, removed = previous - current
func Split(previous, current []string) (added, removed []string) {
	prev := feed.NormalizeAll(previous)
	cur := feed.NormalizeAll(current)
	removed, added = lo.Difference(prev, cur)
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

package relevance

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

var DefaultKeywords = []string{"binance", "list", "launch", "airdrop", "mint", "pump"}

// KeywordFilter 大小写不敏感的子串匹配
type KeywordFilter struct {
	keywords []string
}

func NewKeywordFilter(keywords ...string) *KeywordFilter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &KeywordFilter{
		keywords: lo.Uniq(lo.FilterMap(keywords, func(item string, _ int) (string, bool) {
			kw := strings.ToLower(strings.TrimSpace(item))
			return kw, kw != ""
		})),
	}
}

func (f *KeywordFilter) Relevant(_ context.Context, text string) bool {
	text = strings.ToLower(text)
	return lo.SomeBy(f.keywords, func(item string) bool {
		return strings.Contains(text, item)
	})
}

package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
)

const DefaultBaseURL = "https://api.coingecko.com"

// Trending 热搜币种, 日度行情摘要的附加段落
type Trending struct {
	baseURL string
	limit   int
	cli     *http.Client
	timeout time.Duration
}

func NewTrending(baseURL string, limit int, cli *http.Client) feed.ReportFeed {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limit <= 0 {
		limit = 3
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &Trending{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		cli:     cli,
		timeout: 10 * time.Second,
	}
}

func (t *Trending) Name() string {
	return "coingecko"
}

func (t *Trending) Fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	root, err := feed.GetJSON(ctx, t.cli, t.baseURL+"/api/v3/search/trending", nil)
	if err != nil {
		return nil, feed.Fail(t.Name(), err)
	}

	var coins []string
	for _, it := range root.Get("coins").Array() {
		if len(coins) == t.limit {
			break
		}
		name := strings.TrimSpace(it.Get("item.name").String())
		symbol := feed.Normalize(it.Get("item.symbol").String())
		if name == "" && symbol == "" {
			continue
		}
		coins = append(coins, fmt.Sprintf("• %s (%s)", name, symbol))
	}
	if len(coins) == 0 {
		return nil, feed.Fail(t.Name(), feed.ErrEmptySnapshot)
	}
	return []string{"🔝 Trending\n" + strings.Join(coins, "\n")}, nil
}

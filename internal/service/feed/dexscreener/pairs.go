package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.dexscreener.com"

// listKeys 不同接口把结果放在不同的 key 下
var listKeys = []string{"pairs", "tokens", "results"}

var symbolPaths = []string{"baseToken.symbol", "token.symbol", "symbol", "baseToken.name"}

type Config struct {
	BaseURL string
	Chains  []string
	Limit   int // 每条链最多处理的条数
	Timeout time.Duration
}

type PairFeed struct {
	cfg Config
	cli *http.Client
}

func NewPairFeed(cfg Config, cli *http.Client) feed.MetricFeed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = []string{"bsc", "eth"}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 80
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &PairFeed{cfg: cfg, cli: cli}
}

func (f *PairFeed) Name() string {
	return "dexscreener"
}

// Fetch 单条链失败时跳过, 全部失败才返回 FetchError
func (f *PairFeed) Fetch(ctx context.Context) (feed.MetricSnapshot, error) {
	snapshot := feed.MetricSnapshot{FetchedAt: time.Now()}
	var errs []error
	for _, chain := range f.cfg.Chains {
		records, err := f.fetchChain(ctx, chain)
		if err != nil {
			if ctx.Err() != nil {
				return feed.MetricSnapshot{}, feed.Fail(f.Name(), ctx.Err())
			}
			slog.Warn("dexscreener chain fetch failed", "chain", chain, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", chain, err))
			continue
		}
		snapshot.Records = append(snapshot.Records, records...)
	}
	if len(errs) == len(f.cfg.Chains) {
		return feed.MetricSnapshot{}, feed.Fail(f.Name(), errors.Join(errs...))
	}
	return snapshot, nil
}

func (f *PairFeed) fetchChain(ctx context.Context, chain string) ([]feed.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/latest/dex/search/?q=&chain=%s", strings.TrimRight(f.cfg.BaseURL, "/"), url.QueryEscape(chain))
	root, err := feed.GetJSON(ctx, f.cli, u, nil)
	if err != nil {
		return nil, err
	}

	items := pickItems(root)
	if len(items) > f.cfg.Limit {
		items = items[:f.cfg.Limit]
	}
	source := strings.ToUpper(chain)
	records := make([]feed.Record, 0, len(items))
	for _, it := range items {
		if !it.IsObject() {
			continue
		}
		records = append(records, parseRecord(it, source))
	}
	return records, nil
}

func pickItems(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, key := range listKeys {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func parseRecord(it gjson.Result, source string) feed.Record {
	symbol := "UNKNOWN"
	for _, path := range symbolPaths {
		if v := strings.TrimSpace(it.Get(path).String()); v != "" {
			symbol = v
			break
		}
	}

	change := number(it.Get("priceChange.h1"))
	if pc := it.Get("priceChange"); change.IsZero() && pc.Type == gjson.Number {
		change = number(pc)
	}

	return feed.Record{
		Identifier: symbol,
		Source:     source,
		Change1h:   change,
		Volume1h:   number(it.Get("volume.h1")),
	}
}

// number 数字或数字字符串, 其余一律为 0
func number(v gjson.Result) decimal.Decimal {
	switch v.Type {
	case gjson.Number:
		return decimalx.OrZero(v.Raw)
	case gjson.String:
		return decimalx.OrZero(v.Str)
	default:
		return decimal.Zero
	}
}

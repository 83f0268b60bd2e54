package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
)

// TickerReport 日度行情摘要: 最新价与 24h 涨跌幅
type TickerReport struct {
	cli     *binance.Client
	symbols []string
	timeout time.Duration
}

func NewTickerReport(cli *binance.Client, symbols ...string) feed.ReportFeed {
	if len(symbols) == 0 {
		symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	return &TickerReport{
		cli:     cli,
		symbols: lo.Map(symbols, func(item string, _ int) string { return feed.Normalize(item) }),
		timeout: 10 * time.Second,
	}
}

func (r *TickerReport) Name() string {
	return "binance 24h"
}

func (r *TickerReport) Fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stats, err := r.cli.NewListPriceChangeStatsService().Symbols(r.symbols).Do(ctx)
	if err != nil {
		return nil, feed.Fail(r.Name(), err)
	}
	bySymbol := lo.SliceToMap(stats, func(item *binance.PriceChangeStats) (string, *binance.PriceChangeStats) {
		return item.Symbol, item
	})

	// 按配置顺序输出
	lines := lo.FilterMap(r.symbols, func(symbol string, _ int) (string, bool) {
		s, ok := bySymbol[symbol]
		if !ok {
			return "", false
		}
		price := decimalx.OrZero(s.LastPrice)
		change := decimalx.OrZero(s.PriceChangePercent)
		return fmt.Sprintf("• %s: $%s (%s%%)", symbol, price.StringFixed(2), decimalx.Signed(change, 2)), true
	})
	if len(lines) == 0 {
		return nil, feed.Fail(r.Name(), feed.ErrEmptySnapshot)
	}
	return lines, nil
}

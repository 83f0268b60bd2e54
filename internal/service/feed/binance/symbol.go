package binance

import (
	"context"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
)

const symbolStatusTrading = "TRADING"

type SymbolFeed struct {
	cli         *binance.Client
	onlyTrading bool
	quotes      map[string]struct{}
	timeout     time.Duration
}

type Option func(f *SymbolFeed)

// WithOnlyTrading 仅保留 TRADING 状态的交易对, 停牌(BREAK)的会被视为下架
func WithOnlyTrading() Option {
	return func(f *SymbolFeed) {
		f.onlyTrading = true
	}
}

// WithQuotes 仅保留指定计价币种
func WithQuotes(quotes ...string) Option {
	return func(f *SymbolFeed) {
		if len(quotes) == 0 {
			return
		}
		f.quotes = lo.SliceToMap(quotes, func(item string) (string, struct{}) {
			return feed.Normalize(item), struct{}{}
		})
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *SymbolFeed) {
		f.timeout = timeout
	}
}

func NewSymbolFeed(cli *binance.Client, opts ...Option) feed.SetFeed {
	f := &SymbolFeed{
		cli:     cli,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *SymbolFeed) Name() string {
	return "binance"
}

func (f *SymbolFeed) Fetch(ctx context.Context) (feed.SetSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	info, err := f.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return feed.SetSnapshot{}, feed.Fail(f.Name(), err)
	}

	symbols := lo.FilterMap(info.Symbols, func(item binance.Symbol, _ int) (string, bool) {
		if f.onlyTrading && item.Status != symbolStatusTrading {
			return "", false
		}
		if f.quotes != nil {
			if _, ok := f.quotes[strings.ToUpper(item.QuoteAsset)]; !ok {
				return "", false
			}
		}
		return item.Symbol, true
	})
	if len(symbols) == 0 {
		return feed.SetSnapshot{}, feed.Fail(f.Name(), feed.ErrEmptySnapshot)
	}
	return feed.NewSetSnapshot(symbols, nil), nil
}

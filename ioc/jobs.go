package ioc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/KNICEX/watch-agent/internal/repo"
	"github.com/KNICEX/watch-agent/internal/schedule"
	"github.com/KNICEX/watch-agent/internal/service/detector"
	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/internal/service/feed/binance"
	"github.com/KNICEX/watch-agent/internal/service/feed/coingecko"
	"github.com/KNICEX/watch-agent/internal/service/feed/dexscreener"
	"github.com/KNICEX/watch-agent/internal/service/feed/news"
	"github.com/KNICEX/watch-agent/internal/service/feed/twitter"
	"github.com/KNICEX/watch-agent/internal/service/llm"
	"github.com/KNICEX/watch-agent/internal/service/monitor"
	"github.com/KNICEX/watch-agent/internal/service/relevance"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	bn "github.com/adshao/go-binance/v2"
)

// MinMemecoinInterval DEX 接口有限流, 更短的间隔会被强制拉长
const MinMemecoinInterval = 30 * time.Second

// InitScheduler 根据 jobs.* 配置组装所有任务
func InitScheduler(sc SchedulerConfig, cfg JobsConfig, store repo.SnapshotRepo, notifier monitor.Notifier,
	bnCli *bn.Client, llmSvc llm.Service, m *metrics.Metrics) *schedule.Scheduler {
	s := schedule.NewScheduler(
		schedule.WithTick(mustDuration(sc.Tick, schedule.DefaultTick)),
		schedule.WithRecorder(store),
		schedule.WithMetrics(m),
	)
	guard := mustDuration(sc.Guard, schedule.DefaultGuard)
	httpCli := &http.Client{Timeout: 20 * time.Second}
	common := []monitor.Option{monitor.WithNotifier(notifier), monitor.WithMetrics(m)}
	titled := func(title string) []monitor.Option {
		return []monitor.Option{monitor.WithNotifier(notifier), monitor.WithMetrics(m), monitor.WithTitle(title)}
	}

	if cfg.Listing.Enabled {
		var opts []binance.Option
		if cfg.Listing.OnlyTrading {
			opts = append(opts, binance.WithOnlyTrading())
		}
		if len(cfg.Listing.Quotes) > 0 {
			opts = append(opts, binance.WithQuotes(cfg.Listing.Quotes...))
		}
		task := monitor.NewDiffTask("binance_listing", binance.NewSymbolFeed(bnCli, opts...), store,
			monitor.WithFormatter(monitor.ListingFormatter("Binance")),
			monitor.WithDiffOptions(titled("🚀 Binance listings")...),
		)
		s.Add(schedule.Every(task, mustDuration(cfg.Listing.Interval, 5*time.Minute)))
	}

	if cfg.Memecoin.Enabled {
		interval := max(mustDuration(cfg.Memecoin.Interval, time.Minute), MinMemecoinInterval)
		f := dexscreener.NewPairFeed(dexscreener.Config{
			BaseURL: cfg.Memecoin.BaseURL,
			Chains:  cfg.Memecoin.Chains,
			Limit:   cfg.Memecoin.Limit,
		}, httpCli)
		threshold := detector.Threshold{
			MinVolumeUsd:          decimalx.MustFromString(cfg.Memecoin.MinVolumeUsd),
			MinAbsPercentChange1h: decimalx.MustFromString(cfg.Memecoin.MinChange1h),
		}
		s.Add(schedule.Every(monitor.NewThresholdTask("memecoin", f, threshold, common...), interval))
	}

	if cfg.Tweets.Bearer != "" && len(cfg.Tweets.Handles) > 0 {
		var filter twitter.Filter = relevance.NewKeywordFilter(cfg.Tweets.Keywords...)
		if cfg.Tweets.UseLLM && llmSvc != nil {
			filter = relevance.NewLLMFilter(llmSvc, relevance.WithFallback(filter))
		}
		f := twitter.NewTweetFeed(twitter.Config{
			BaseURL: cfg.Tweets.BaseURL,
			Bearer:  cfg.Tweets.Bearer,
			Handles: cfg.Tweets.Handles,
		}, filter, httpCli)
		task := monitor.NewDiffTask("twitter", f, store,
			monitor.WithFormatter(monitor.TweetFormatter),
			monitor.WithIgnoreRemoved(),
			monitor.WithDiffOptions(titled("🐦 Tweets")...),
		)
		s.Add(schedule.Every(task, mustDuration(cfg.Tweets.Interval, 3*time.Minute)))
	}

	if cfg.News.Enabled {
		feeds := []feed.ReportFeed{news.NewCryptoCompare(cfg.News.CryptoComURL, 3, httpCli)}
		if cfg.News.NewsAPIKey != "" {
			feeds = append(feeds, news.NewNewsAPI(cfg.News.NewsAPIURL, cfg.News.NewsAPIKey, 2, httpCli))
		}
		task := monitor.NewReportTask("daily_news", "📰 Daily news digest", feeds, common...)
		s.Add(schedule.DailyAt(task, cfg.News.Hour, guard))
	}

	if cfg.Summary.Enabled {
		feeds := []feed.ReportFeed{
			binance.NewTickerReport(bnCli, cfg.Summary.Symbols...),
			coingecko.NewTrending(cfg.Summary.CoinGeckoURL, cfg.Summary.Trending, httpCli),
		}
		task := monitor.NewReportTask("daily_summary", "📈 Daily market summary", feeds, common...)
		s.Add(schedule.DailyAt(task, cfg.Summary.Hour, guard))
	}

	slog.Info("jobs configured", "count", len(s.Jobs()))
	return s
}

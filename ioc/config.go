package ioc

import (
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/notification/mail"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// Config 整个配置树, 由 viper.Unmarshal 一次解出, 默认值、文件、环境变量已合并
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Cex       struct {
		Binance BinanceConfig `mapstructure:"binance"`
	} `mapstructure:"cex"`
	LLM struct {
		Gemini GeminiConfig `mapstructure:"gemini"`
	} `mapstructure:"llm"`
	Notify NotifyConfig `mapstructure:"notify"`
	Jobs   JobsConfig   `mapstructure:"jobs"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SchedulerConfig struct {
	Tick  string `mapstructure:"tick"`
	Guard string `mapstructure:"guard"`
}

type BinanceConfig struct {
	ApiKey    string `mapstructure:"api_key"`
	ApiSecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	ApiKey      []string `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	Temperature float32  `mapstructure:"temperature"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatId int64  `mapstructure:"chat_id"`
	APIURL string `mapstructure:"api_url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Rate     struct {
		Every string `mapstructure:"every"`
		Burst int    `mapstructure:"burst"`
	} `mapstructure:"rate"`
	BatchThreshold int         `mapstructure:"batch_threshold"`
	MaxLength      int         `mapstructure:"max_length"`
	DedupWindow    string      `mapstructure:"dedup_window"`
	Fallback       string      `mapstructure:"fallback"`
	Mail           mail.Config `mapstructure:"mail"`
}

type JobsConfig struct {
	Listing struct {
		Enabled     bool     `mapstructure:"enabled"`
		Interval    string   `mapstructure:"interval"`
		OnlyTrading bool     `mapstructure:"only_trading"`
		Quotes      []string `mapstructure:"quotes"`
	} `mapstructure:"listing"`
	Memecoin struct {
		Enabled      bool     `mapstructure:"enabled"`
		Interval     string   `mapstructure:"interval"`
		BaseURL      string   `mapstructure:"base_url"`
		Chains       []string `mapstructure:"chains"`
		Limit        int      `mapstructure:"limit"`
		MinVolumeUsd string   `mapstructure:"min_volume_usd"`
		MinChange1h  string   `mapstructure:"min_change_1h"`
	} `mapstructure:"memecoin"`
	Tweets struct {
		Interval string   `mapstructure:"interval"`
		Bearer   string   `mapstructure:"bearer"`
		BaseURL  string   `mapstructure:"base_url"`
		Handles  []string `mapstructure:"handles"`
		Keywords []string `mapstructure:"keywords"`
		UseLLM   bool     `mapstructure:"use_llm"`
	} `mapstructure:"tweets"`
	News struct {
		Enabled      bool   `mapstructure:"enabled"`
		Hour         int    `mapstructure:"hour"`
		NewsAPIKey   string `mapstructure:"newsapi_key"`
		NewsAPIURL   string `mapstructure:"newsapi_url"`
		CryptoComURL string `mapstructure:"cryptocompare_url"`
	} `mapstructure:"news"`
	Summary struct {
		Enabled      bool     `mapstructure:"enabled"`
		Hour         int      `mapstructure:"hour"`
		Symbols      []string `mapstructure:"symbols"`
		Trending     int      `mapstructure:"trending"`
		CoinGeckoURL string   `mapstructure:"coingecko_url"`
	} `mapstructure:"summary"`
}

// InitConfig 先加载 .env, 再读取配置文件, 环境变量 WATCH_A_B 覆盖 a.b
func InitConfig(file string) Config {
	_ = godotenv.Load()

	cfg, err := loadConfig(viper.GetViper(), file)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return cfg
}

func loadConfig(v *viper.Viper, file string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("WATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	// Unmarshal 走 AllSettings, 只有出现在默认值或文件里的 key 才会读环境变量
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults 只能从环境变量提供的 key 也必须在这里登记
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "./data/watch.db")

	v.SetDefault("scheduler.tick", "1s")
	v.SetDefault("scheduler.guard", "22h")

	v.SetDefault("cex.binance.api_key", "")
	v.SetDefault("cex.binance.api_secret", "")
	v.SetDefault("cex.binance.base_url", "")

	v.SetDefault("llm.gemini.api_key", []string{})
	v.SetDefault("llm.gemini.model", "")
	v.SetDefault("llm.gemini.temperature", 0)

	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
	v.SetDefault("notify.telegram.api_url", "")
	v.SetDefault("notify.rate.every", "1s")
	v.SetDefault("notify.rate.burst", 1)
	v.SetDefault("notify.batch_threshold", 3)
	v.SetDefault("notify.max_length", 4096)
	v.SetDefault("notify.dedup_window", "1h")
	v.SetDefault("notify.fallback", "http")
	v.SetDefault("notify.mail.host", "")
	v.SetDefault("notify.mail.port", 587)
	v.SetDefault("notify.mail.from", "")
	v.SetDefault("notify.mail.to", "")
	v.SetDefault("notify.mail.password", "")
	v.SetDefault("notify.mail.subject", "")

	v.SetDefault("jobs.listing.enabled", true)
	v.SetDefault("jobs.listing.interval", "5m")
	v.SetDefault("jobs.listing.only_trading", false)
	v.SetDefault("jobs.listing.quotes", []string{})
	v.SetDefault("jobs.memecoin.enabled", true)
	v.SetDefault("jobs.memecoin.interval", "60s")
	v.SetDefault("jobs.memecoin.base_url", "")
	v.SetDefault("jobs.memecoin.chains", []string{"bsc", "eth"})
	v.SetDefault("jobs.memecoin.limit", 80)
	v.SetDefault("jobs.memecoin.min_volume_usd", "15000")
	v.SetDefault("jobs.memecoin.min_change_1h", "25")
	v.SetDefault("jobs.tweets.interval", "3m")
	v.SetDefault("jobs.tweets.bearer", "")
	v.SetDefault("jobs.tweets.base_url", "")
	v.SetDefault("jobs.tweets.handles", []string{"cz_binance", "elonmusk"})
	v.SetDefault("jobs.tweets.keywords", []string{})
	v.SetDefault("jobs.tweets.use_llm", false)
	v.SetDefault("jobs.news.enabled", true)
	v.SetDefault("jobs.news.hour", 9)
	v.SetDefault("jobs.news.newsapi_key", "")
	v.SetDefault("jobs.news.newsapi_url", "")
	v.SetDefault("jobs.news.cryptocompare_url", "")
	v.SetDefault("jobs.summary.enabled", true)
	v.SetDefault("jobs.summary.hour", 8)
	v.SetDefault("jobs.summary.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("jobs.summary.trending", 3)
	v.SetDefault("jobs.summary.coingecko_url", "")
}

// ParseDuration 支持 "90s" "5m" "1d" 这类写法, 空串返回 def
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func mustDuration(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s, def)
	if err != nil {
		panic(err)
	}
	return d
}

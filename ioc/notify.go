package ioc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/KNICEX/watch-agent/internal/service/notification"
	"github.com/KNICEX/watch-agent/internal/service/notification/mail"
	"github.com/KNICEX/watch-agent/internal/service/notification/telegram"
	"github.com/jpillora/backoff"
	tb "gopkg.in/tucnak/telebot.v2"
)

const botInitAttempts = 5

func checkTelegramConfig(cfg TelegramConfig) {
	if cfg.Token == "" || cfg.ChatId == 0 {
		panic("notify.telegram.token and notify.telegram.chat_id are required")
	}
}

// InitTelegramBot getMe 失败时指数退避重试
func InitTelegramBot(cfg TelegramConfig) *tb.Bot {
	checkTelegramConfig(cfg)
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for {
		bot, err := tb.NewBot(tb.Settings{
			Token:  cfg.Token,
			URL:    cfg.APIURL,
			Client: &http.Client{Timeout: 15 * time.Second},
		})
		if err == nil {
			return bot
		}
		if int(b.Attempt()) >= botInitAttempts-1 {
			panic(err)
		}
		wait := b.Duration()
		slog.Warn("failed to init telegram bot, retrying", "error", err, "wait", wait)
		time.Sleep(wait)
	}
}

// InitDispatcher 主通道为 telebot, 备用通道由 notify.fallback 决定: http / mail / none
func InitDispatcher(cfg NotifyConfig, bot *tb.Bot, m *metrics.Metrics) *notification.Dispatcher {
	tg := cfg.Telegram
	checkTelegramConfig(tg)

	opts := []notification.Option{
		notification.WithRate(mustDuration(cfg.Rate.Every, time.Second), cfg.Rate.Burst),
		notification.WithBatchThreshold(cfg.BatchThreshold),
		notification.WithMaxLength(cfg.MaxLength),
		notification.WithDedupWindow(mustDuration(cfg.DedupWindow, time.Hour)),
		notification.WithMetrics(m),
	}
	switch cfg.Fallback {
	case "http":
		opts = append(opts, notification.WithFallback(
			telegram.NewHTTPSink(tg.APIURL, tg.Token, tg.ChatId, &http.Client{Timeout: 15 * time.Second})))
	case "mail":
		opts = append(opts, notification.WithFallback(mail.NewSink(cfg.Mail)))
	}

	return notification.NewDispatcher(telegram.NewBotSink(bot, tg.ChatId), opts...)
}

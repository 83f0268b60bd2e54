package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KNICEX/watch-agent/ioc"
	"github.com/spf13/pflag"
)

func main() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	os.Exit(run(*file))
}

func run(file string) int {
	cfg := ioc.InitConfig(file)
	ioc.InitLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := ioc.InitMetrics(ctx, cfg.Metrics)
	store := ioc.InitStore(cfg.Store)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	bot := ioc.InitTelegramBot(cfg.Notify.Telegram)
	dispatcher := ioc.InitDispatcher(cfg.Notify, bot, m)
	scheduler := ioc.InitScheduler(cfg.Scheduler, cfg.Jobs, store, dispatcher,
		ioc.InitBinanceCli(cfg.Cex.Binance), ioc.InitLLM(cfg.LLM.Gemini), m)

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scheduler exited", "error", err)
		return 1
	}
	return 0
}

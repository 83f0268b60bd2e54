package ioc

import (
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// InitLogger 替换 slog 默认 handler, 业务代码只依赖 log/slog
func InitLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var zl zerolog.Logger
	if cfg.Format == "json" {
		zl = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}).With().Timestamp().Logger()
	}

	logger := slog.New(slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler())
	slog.SetDefault(logger)
	return logger
}

package ioc

import (
	"github.com/adshao/go-binance/v2"
)

// InitBinanceCli 只调用公开接口, key 可以为空
func InitBinanceCli(cfg BinanceConfig) *binance.Client {
	cli := binance.NewClient(cfg.ApiKey, cfg.ApiSecret)
	if cfg.BaseURL != "" {
		cli.BaseURL = cfg.BaseURL
	}
	return cli
}

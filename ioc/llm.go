package ioc

import (
	"context"

	"github.com/KNICEX/watch-agent/internal/service/llm"
	"github.com/KNICEX/watch-agent/internal/service/llm/gemini"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// InitLLM 未配置 key 时返回 nil, 推文过滤退回关键词
func InitLLM(cfg GeminiConfig) llm.Service {
	if len(cfg.ApiKey) == 0 || cfg.ApiKey[0] == "" {
		return nil
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	opts := []gemini.Option{gemini.WithModel(cfg.Model)}
	if cfg.Temperature > 0 {
		opts = append(opts, gemini.WithTemperature(cfg.Temperature))
	}
	return gemini.NewService(cli, opts...)
}

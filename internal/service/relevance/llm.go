package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/llm"
)

const prompt = `You are filtering social media posts for a crypto trading desk.
Answer with exactly YES if the post announces a token listing, a launch, an airdrop, a mint or a sudden price move. Otherwise answer NO.

Post:
%s`

type Fallback interface {
	Relevant(ctx context.Context, text string) bool
}

// LLMFilter 由模型判断相关性, 调用失败时退回关键词匹配
type LLMFilter struct {
	svc      llm.Service
	fallback Fallback
	timeout  time.Duration
}

type LLMOption func(f *LLMFilter)

func WithFallback(fallback Fallback) LLMOption {
	return func(f *LLMFilter) {
		f.fallback = fallback
	}
}

func WithTimeout(timeout time.Duration) LLMOption {
	return func(f *LLMFilter) {
		f.timeout = timeout
	}
}

func NewLLMFilter(svc llm.Service, opts ...LLMOption) *LLMFilter {
	f := &LLMFilter{
		svc:      svc,
		fallback: NewKeywordFilter(),
		timeout:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *LLMFilter) Relevant(ctx context.Context, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	answer, err := f.svc.AskOnce(ctx, llm.Question{Content: fmt.Sprintf(prompt, text)})
	if err != nil {
		slog.Warn("llm relevance check failed, falling back to keywords", "error", err)
		return f.fallback.Relevant(ctx, text)
	}
	verdict := strings.ToUpper(strings.TrimSpace(answer.Content))
	switch {
	case strings.HasPrefix(verdict, "YES"):
		return true
	case strings.HasPrefix(verdict, "NO"):
		return false
	default:
		slog.Warn("unexpected llm verdict", "answer", answer.Content)
		return f.fallback.Relevant(ctx, text)
	}
}

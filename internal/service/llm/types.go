package llm

import (
	"context"
)

type Question struct {
	Content string
}

type Answer struct {
	Content     string
	InputToken  int
	OutputToken int
}

// Service 单轮问答, 目前只用于推文相关性判断
type Service interface {
	AskOnce(ctx context.Context, q Question) (Answer, error)
}

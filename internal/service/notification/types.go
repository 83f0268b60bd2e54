package notification

import (
	"context"
	"fmt"
)

// Sink 一种通知通道, 主通道与备用通道实现同一接口
type Sink interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Alert Key 用于重复抑制, 为空时不抑制;
// Clears 为发送成功后需要遗忘的 key, 用于相反状态(如下架后重新上线)
type Alert struct {
	Key    string
	Text   string
	Clears []string
}

// DispatchError 主备通道均失败, 告警已丢弃
type DispatchError struct {
	Primary  error
	Fallback error
}

func (e *DispatchError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("dispatch: primary: %v", e.Primary)
	}
	return fmt.Sprintf("dispatch: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *DispatchError) Unwrap() []error {
	if e.Fallback == nil {
		return []error{e.Primary}
	}
	return []error{e.Primary, e.Fallback}
}

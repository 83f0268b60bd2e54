package telegram

import (
	"context"

	"github.com/KNICEX/watch-agent/internal/service/notification"
	tb "gopkg.in/tucnak/telebot.v2"
)

var _ notification.Sink = (*BotSink)(nil)

// BotSink 主通道, 纯文本发送, 不启用 markdown
type BotSink struct {
	bot  *tb.Bot
	chat *tb.Chat
}

func NewBotSink(bot *tb.Bot, chatId int64) *BotSink {
	return &BotSink{
		bot:  bot,
		chat: &tb.Chat{ID: chatId},
	}
}

func (s *BotSink) Name() string {
	return "telegram"
}

// Send telebot 不支持 context, 只在发送前检查取消
func (s *BotSink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(s.chat, text, &tb.SendOptions{DisableWebPagePreview: true})
	return err
}

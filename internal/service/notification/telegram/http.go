package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KNICEX/watch-agent/internal/service/notification"
	"github.com/tidwall/gjson"
)

const DefaultAPIURL = "https://api.telegram.org"

var _ notification.Sink = (*HTTPSink)(nil)

// HTTPSink 备用通道, 直接调用 Bot API 的 sendMessage
type HTTPSink struct {
	apiURL string
	token  string
	chatId int64
	cli    *http.Client
}

func NewHTTPSink(apiURL, token string, chatId int64, cli *http.Client) *HTTPSink {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &HTTPSink{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatId: chatId,
		cli:    cli,
	}
}

func (s *HTTPSink) Name() string {
	return "telegram_http"
}

func (s *HTTPSink) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(s.chatId, 10))
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.cli.Do(req)
	if err != nil {
		// url.Error 会带上含 token 的地址
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("telegram sendMessage: %w", uerr.Err)
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	res := gjson.ParseBytes(body)
	if resp.StatusCode != http.StatusOK || !res.Get("ok").Bool() {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, res.Get("description").String())
	}
	return nil
}

package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/KNICEX/watch-agent/internal/service/notification"
)

var _ notification.Sink = (*Sink)(nil)

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Password string `mapstructure:"password"`
	Subject  string `mapstructure:"subject"`
}

// Sink 邮件备用通道
type Sink struct {
	cfg  Config
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSink(cfg Config) *Sink {
	if cfg.Subject == "" {
		cfg.Subject = "watch-agent alert"
	}
	return &Sink{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host),
		send: smtp.SendMail,
	}
}

func (s *Sink) Name() string {
	return "mail"
}

func (s *Sink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return s.send(addr, s.auth, s.cfg.From, []string{s.cfg.To}, s.message(text))
}

func (s *Sink) message(text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: <%s>\r\n", s.cfg.To)
	fmt.Fprintf(&b, "From: <%s>\r\n", s.cfg.From)
	fmt.Fprintf(&b, "Subject: %s\r\n", s.cfg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(text, "\n", "\r\n"))
	return []byte(b.String())
}

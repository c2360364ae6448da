package mail

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (s *SMTPSender) Deliver(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sendMail(s.addr, s.auth, env.From.Email, []string{env.To.Email}, s.build(env)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.addr, err)
	}
	return nil
}

func (s *SMTPSender) build(env Envelope) []byte {
	var sb strings.Builder
	header := func(k, v string) {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(v)
		sb.WriteString("\r\n")
	}
	header("From", encodeContact(env.From))
	header("To", encodeContact(env.To))
	header("Subject", mime.QEncoding.Encode("utf-8", env.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	sb.WriteString("\r\n")
	sb.WriteString(env.HTML)
	return []byte(sb.String())
}

func encodeContact(c Contact) string {
	if c.Name == "" {
		return c.Email
	}
	return mime.QEncoding.Encode("utf-8", c.Name) + " <" + c.Email + ">"
}

// SMTPProvider renders and delivers synchronously.
type SMTPProvider struct {
	renderer *Renderer
	sender   EnvelopeSender
}

func NewSMTPProvider(renderer *Renderer, sender EnvelopeSender) *SMTPProvider {
	return &SMTPProvider{renderer: renderer, sender: sender}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	env, err := p.renderer.Render(msg)
	if err != nil {
		return err
	}
	return p.sender.Deliver(ctx, env)
}

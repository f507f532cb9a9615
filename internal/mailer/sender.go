package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/config"
	"github.com/wneessen/go-mail"
)

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg *config.Config) (*SMTPSender, error) {
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		return nil, err
	}

	from := cfg.Email.From
	if from == "" {
		from = cfg.Email.SMTP.Username
	}

	return &SMTPSender{client: client, from: from}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	return s.client.DialAndSendWithContext(ctx, msg)
}

func (s *SMTPSender) Close() error {
	return s.client.Close()
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend 发送失败: %w", err)
	}
	return nil
}

// NewSender 根据 EMAIL_PROVIDER 选择发送方式
func NewSender(cfg *config.Config) (Sender, error) {
	switch cfg.Email.Provider {
	case "smtp":
		return NewSMTPSender(cfg)
	case "resend":
		if cfg.Email.Resend.APIKey == "" {
			return nil, fmt.Errorf("EMAIL_RESEND_API_KEY 未设置")
		}
		return NewResendSender(cfg.Email.Resend.APIKey, cfg.Email.From), nil
	default:
		return nil, fmt.Errorf("不支持的邮件服务: %s", cfg.Email.Provider)
	}
}

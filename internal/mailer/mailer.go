package mailer

import (
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/medvault/medvault/internal/config"
)

// Mailer is fire-and-forget delivery. Callers on the password-reset path
// must not care whether sending worked.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	client *mail.Client
	from   string
	log    *zap.Logger
}

func NewSMTP(cfg *config.Config, log *zap.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.SMTPPort)}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.MailFrom, log: log}, nil
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSend(msg); err != nil {
		m.log.Error("failed to send mail", zap.String("to", to), zap.Error(err))
		return err
	}
	return nil
}

// NopMailer is used when SMTP is not configured and in tests.
type NopMailer struct{}

func (NopMailer) Send(to, subject, body string) error { return nil }

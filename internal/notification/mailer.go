package notification

import (
	"context"
	"crypto/tls"
	"fmt"

	"resort-booking/pkg/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Email struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// GomailMailer sends through an SMTP server.
type GomailMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewGomailMailer(config utils.EmailConfig) *GomailMailer {
	dialer := gomail.NewDialer(config.Host, config.Port, config.User, config.Password)
	dialer.TLSConfig = &tls.Config{ServerName: config.Host}
	return &GomailMailer{dialer: dialer, from: config.From}
}

func (m *GomailMailer) Send(_ context.Context, email Email) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.HTML)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, email Email) error {
	m.Log.Info("Email not sent, SMTP is not configured",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}

// NewMailer picks SMTP when a host is configured.
func NewMailer(config utils.EmailConfig, log *zap.Logger) Mailer {
	if config.Host == "" {
		return LogMailer{Log: log}
	}
	return NewGomailMailer(config)
}

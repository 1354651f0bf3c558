package service

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer sends through an authenticated SMTP server, opening one
// connection per message.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// LogMailer writes messages to the log instead of sending them.  It is used
// when no SMTP host is configured.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Log.Info("email (not sent, smtp disabled)",
		zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// NewMailer picks the SMTP mailer when a host is configured and the log
// mailer otherwise.
func NewMailer(cfg SMTPConfig, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		return LogMailer{Log: log}
	}
	return NewSMTPMailer(cfg)
}

// dispatch sends an email and never fails the caller: delivery errors are
// logged and dropped, and there are no retries.
func dispatch(ctx context.Context, m Mailer, log *zap.Logger, to, subject, body string) {
	if err := m.Send(ctx, to, subject, body); err != nil {
		log.Warn("email dispatch failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}

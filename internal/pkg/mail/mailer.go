// Package mail delivers transactional email through SMTP or Resend.
package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
)

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

var ErrNotConfigured = errors.New("mail provider not configured")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}

// NewFromEnv picks the mailer from MAIL_PROVIDER (smtp by default). A mailer
// that is missing credentials returns ErrNotConfigured on every send.
func NewFromEnv() Mailer {
	from := env.GetEnv("MAIL_FROM", env.GetEnv("SMTP_SENDER", ""))
	switch strings.ToLower(strings.TrimSpace(env.GetEnv("MAIL_PROVIDER", ProviderSMTP))) {
	case ProviderResend:
		key := env.GetEnv("RESEND_API_KEY", "")
		if key == "" {
			return disabledMailer{provider: ProviderResend}
		}
		return NewResendMailer(key, from)
	default:
		host := env.GetEnv("SMTP_HOST", "")
		if host == "" {
			return disabledMailer{provider: ProviderSMTP}
		}
		return &SMTPMailer{
			Host:     host,
			Port:     env.GetEnv("SMTP_PORT", "587"),
			Username: env.GetEnv("SMTP_USERNAME", ""),
			Password: env.GetEnv("SMTP_PASSWORD", ""),
			From:     from,
		}
	}
}

// Deliver sends msg through m and records the outcome.
func Deliver(ctx context.Context, m Mailer, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: empty recipient")
	}
	err := m.Send(ctx, msg)
	metrics.ObserveEmail(m.Provider(), err)
	if err != nil {
		log.Errorf("[Mail] %s send to %s failed: %v", m.Provider(), msg.To, err)
		return err
	}
	log.Infof("[Mail] Sent %q to %s via %s", msg.Subject, msg.To, m.Provider())
	return nil
}

type disabledMailer struct {
	provider string
}

func (d disabledMailer) Send(context.Context, Message) error { return ErrNotConfigured }
func (d disabledMailer) Provider() string                    { return d.provider }

package mailer

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/edvin/budget/internal/config"
)

// StatusSent is the status stored with an email once the SMTP server accepted it.
const StatusSent = 250

// ErrNotConfigured is returned when there is no SMTP server or no recipient
// to send to. Callers keep the message as a failed email instead.
var ErrNotConfigured = errors.New("email delivery not configured")

// Message is a rendered HTML email.
type Message struct {
	Type           string
	SubscriptionID *string
	Subject        string
	To             []string
	HTML           string
}

// Sender delivers a message and returns the status to record with it.
type Sender interface {
	Send(ctx context.Context, msg Message) (int, error)
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

// NewSMTPSender returns a sender for the configured relay, or nil when SMTP is
// not configured.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	if !cfg.SMTPConfigured() {
		return nil
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SenderEmail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (int, error) {
	if s == nil || s.dialer == nil || len(msg.To) == 0 {
		return 0, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return 0, fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	return StatusSent, nil
}

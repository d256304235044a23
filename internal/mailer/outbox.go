package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/model"
)

// FailedEmailRecorder persists messages that could not be sent.
type FailedEmailRecorder interface {
	RecordFailedEmail(ctx context.Context, e *model.FailedEmail) error
}

// Result describes what happened to a delivered message.
type Result struct {
	Sent   bool
	Status int
}

// Outbox sends messages and falls back to the failed email log when delivery
// is not configured.
type Outbox struct {
	sender Sender
	failed FailedEmailRecorder
	from   string
	logger zerolog.Logger
}

func NewOutbox(sender Sender, failed FailedEmailRecorder, from string, logger zerolog.Logger) *Outbox {
	return &Outbox{
		sender: sender,
		failed: failed,
		from:   from,
		logger: logger.With().Str("component", "outbox").Logger(),
	}
}

// Deliver sends msg. When delivery is not configured the message is stored in
// failed_emails and Deliver returns an unsent result without error. Any other
// send failure is returned to the caller.
func (o *Outbox) Deliver(ctx context.Context, msg Message) (Result, error) {
	var status int
	var err error
	if o.sender == nil {
		err = ErrNotConfigured
	} else {
		status, err = o.sender.Send(ctx, msg)
	}

	switch {
	case err == nil:
		o.logger.Info().Str("type", msg.Type).Int("recipients", len(msg.To)).Msg("email sent")
		return Result{Sent: true, Status: status}, nil
	case errors.Is(err, ErrNotConfigured):
		o.logger.Warn().Str("type", msg.Type).Msg("email delivery not configured, storing as failed email")
		if err := o.failed.RecordFailedEmail(ctx, &model.FailedEmail{
			SubscriptionID: msg.SubscriptionID,
			Type:           msg.Type,
			Subject:        msg.Subject,
			FromEmail:      o.from,
			Recipients:     JoinRecipients(msg.To),
			Message:        msg.HTML,
		}); err != nil {
			return Result{}, fmt.Errorf("record failed email: %w", err)
		}
		return Result{}, nil
	default:
		return Result{}, err
	}
}

// JoinRecipients formats a recipient list the way the emails table stores it.
func JoinRecipients(to []string) string {
	return strings.Join(to, ";")
}

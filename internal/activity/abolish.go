package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/metrics"
	"github.com/edvin/budget/internal/model"
)

const abolishJob = "abolish_subscriptions"

// Abolisher flags long-inactive subscriptions. *core.AbolishService satisfies
// this interface.
type Abolisher interface {
	Run(ctx context.Context) ([]model.BudgetAdjustment, error)
}

// EmailRecorder logs a delivered notification. *core.EmailService satisfies
// this interface.
type EmailRecorder interface {
	Record(ctx context.Context, e *model.Email) error
}

// AbolishResult describes one abolishment run.
type AbolishResult struct {
	Skipped   bool `json:"skipped"`
	Abolished int  `json:"abolished"`
	Sent      bool `json:"sent"`
}

// Abolish contains the abolishment activity.
type Abolish struct {
	locker     Locker
	svc        Abolisher
	emails     EmailRecorder
	outbox     *mailer.Outbox
	meta       mailer.Meta
	recipients []string
	now        func() time.Time
	logger     zerolog.Logger
}

func NewAbolish(locker Locker, svc Abolisher, emails EmailRecorder, outbox *mailer.Outbox, meta mailer.Meta, recipients []string, logger zerolog.Logger) *Abolish {
	return &Abolish{
		locker:     locker,
		svc:        svc,
		emails:     emails,
		outbox:     outbox,
		meta:       meta,
		recipients: recipients,
		now:        time.Now,
		logger:     logger.With().Str("activity", "AbolishSubscriptions").Logger(),
	}
}

// AbolishSubscriptions abolishes every eligible subscription and mails the
// budget adjustments that were made. Nothing is mailed when no subscription
// qualified.
func (a *Abolish) AbolishSubscriptions(ctx context.Context) (*AbolishResult, error) {
	start := a.now()
	result := metrics.ResultFailed
	defer func() {
		metrics.ObserveJob(abolishJob, result, start, a.now())
	}()

	lock, err := a.locker.TryLock(ctx, db.LockAbolish)
	if errors.Is(err, db.ErrLockHeld) {
		a.logger.Info().Msg("abolishment already running elsewhere, skipping")
		result = metrics.ResultSkipped
		return &AbolishResult{Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire abolish lock: %w", err)
	}
	defer release(ctx, lock, db.LockAbolish, a.logger)

	adjustments, err := a.svc.Run(ctx)
	if err != nil {
		return nil, err
	}
	if len(adjustments) == 0 {
		result = metrics.ResultEmpty
		return &AbolishResult{}, nil
	}

	subject, body, err := mailer.RenderAbolishment(adjustments, a.meta)
	if err != nil {
		return nil, err
	}
	delivery, err := a.outbox.Deliver(ctx, mailer.Message{
		Type:    model.EmailTypeAbolishment,
		Subject: subject,
		To:      a.recipients,
		HTML:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("deliver abolishment email: %w", err)
	}

	if delivery.Sent {
		extra := fmt.Sprintf("%d subscriptions", len(adjustments))
		if err := a.emails.Record(ctx, &model.Email{
			Status:     delivery.Status,
			Type:       model.EmailTypeAbolishment,
			Recipients: mailer.JoinRecipients(a.recipients),
			ExtraInfo:  &extra,
		}); err != nil {
			return nil, err
		}
		result = metrics.ResultSent
	} else {
		result = metrics.ResultStored
	}

	a.logger.Info().Int("abolished", len(adjustments)).Bool("sent", delivery.Sent).Msg("abolishment complete")
	return &AbolishResult{Abolished: len(adjustments), Sent: delivery.Sent}, nil
}

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
	"github.com/edvin/budget/internal/summary"
)

const summaryJob = "daily_summary"

// SummaryRunner computes the report that follows a marker. *summary.Job
// satisfies this interface.
type SummaryRunner interface {
	Run(ctx context.Context, marker summary.Marker, now time.Time) (*summary.Report, summary.Marker, error)
}

// SummaryResult describes one daily summary run.
type SummaryResult struct {
	Skipped     bool           `json:"skipped"`
	Window      summary.Window `json:"window"`
	Empty       bool           `json:"empty"`
	Sent        bool           `json:"sent"`
	Status      int            `json:"status"`
	NewSubs     int            `json:"new_subscriptions"`
	Changes     int            `json:"status_changes"`
	BudgetItems int            `json:"budget_changes"`
}

// Summary contains the daily summary activity.
type Summary struct {
	locker     Locker
	markers    summary.MarkerStore
	job        SummaryRunner
	outbox     *mailer.Outbox
	meta       mailer.Meta
	recipients []string
	// settle is held back from the window end. Rows committed late by
	// transactions that started before it are reported in the next window.
	settle time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

func NewSummary(locker Locker, markers summary.MarkerStore, job SummaryRunner, outbox *mailer.Outbox, meta mailer.Meta, recipients []string, settle time.Duration, logger zerolog.Logger) *Summary {
	return &Summary{
		locker:     locker,
		markers:    markers,
		job:        job,
		outbox:     outbox,
		meta:       meta,
		recipients: recipients,
		settle:     settle,
		now:        time.Now,
		logger:     logger.With().Str("activity", "SendDailySummary").Logger(),
	}
}

// SendDailySummary reports everything that changed since the previous summary
// and mails it to the admin recipients. The marker advances only once the
// message was sent or stored as a failed email. The window ends the settle
// margin before now. A run that finds the lock held by another worker is
// skipped.
func (a *Summary) SendDailySummary(ctx context.Context) (res *SummaryResult, err error) {
	start := a.now()
	result := metrics.ResultFailed
	defer func() {
		metrics.ObserveJob(summaryJob, result, start, a.now())
	}()

	lock, err := a.locker.TryLock(ctx, db.LockDailySummary)
	if errors.Is(err, db.ErrLockHeld) {
		a.logger.Info().Msg("daily summary already running elsewhere, skipping")
		result = metrics.ResultSkipped
		return &SummaryResult{Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire summary lock: %w", err)
	}
	defer release(ctx, lock, db.LockDailySummary, a.logger)

	marker, err := a.markers.Latest(ctx)
	if err != nil {
		return nil, err
	}

	report, next, err := a.job.Run(ctx, marker, start.Add(-a.settle))
	if err != nil {
		return nil, err
	}
	log := a.logger.With().
		Time("window_start", report.Window.Start).
		Time("window_end", report.Window.End).
		Logger()

	subject, body, err := mailer.RenderSummary(report, a.meta)
	if err != nil {
		return nil, err
	}

	delivery, err := a.outbox.Deliver(ctx, mailer.Message{
		Type:    model.EmailTypeSummary,
		Subject: subject,
		To:      a.recipients,
		HTML:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("deliver daily summary: %w", err)
	}

	if err := a.markers.Advance(ctx, next, a.recipients, delivery.Status); err != nil {
		return nil, err
	}

	res = &SummaryResult{
		Window:      report.Window,
		Empty:       report.Empty(),
		Sent:        delivery.Sent,
		Status:      delivery.Status,
		NewSubs:     len(report.NewSubscriptions),
		Changes:     len(report.StatusChanges),
		BudgetItems: len(report.NewApprovalsAndAllocations),
	}
	switch {
	case !delivery.Sent:
		result = metrics.ResultStored
	case res.Empty:
		result = metrics.ResultEmpty
	default:
		result = metrics.ResultSent
	}
	log.Info().
		Bool("sent", res.Sent).
		Bool("empty", res.Empty).
		Int("new_subscriptions", res.NewSubs).
		Int("status_changes", res.Changes).
		Int("budget_changes", res.BudgetItems).
		Int("notifications", report.NumNotifications).
		Msg("daily summary complete")
	return res, nil
}

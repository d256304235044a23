// Package agent runs the status agent: it periodically reads every Azure
// subscription visible to its service principal and posts the snapshot to the
// budget API.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/metrics"
	"github.com/edvin/budget/internal/model"
)

const statusJob = "status-upload"

type Lister interface {
	Statuses(ctx context.Context) ([]model.SubscriptionStatus, error)
}

type Uploader interface {
	UploadStatus(ctx context.Context, statuses []model.SubscriptionStatus) (received, inserted int, err error)
}

type StatusAgent struct {
	lister   Lister
	uploader Uploader
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewStatusAgent(lister Lister, uploader Uploader, interval time.Duration, logger zerolog.Logger) *StatusAgent {
	return &StatusAgent{
		lister:   lister,
		uploader: uploader,
		interval: interval,
		logger:   logger.With().Str("component", "status-agent").Logger(),
		now:      time.Now,
	}
}

// Run uploads once immediately and then every interval until ctx is done.
// A failed round is logged and retried on the next tick.
func (a *StatusAgent) Run(ctx context.Context) error {
	if err := a.RunOnce(ctx); err != nil {
		a.logger.Error().Err(err).Msg("status upload failed")
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.Error().Err(err).Msg("status upload failed")
			}
		}
	}
}

func (a *StatusAgent) RunOnce(ctx context.Context) error {
	start := a.now()
	result := metrics.ResultFailed
	defer func() {
		metrics.ObserveJob(statusJob, result, start, a.now())
	}()

	statuses, err := a.lister.Statuses(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	received, inserted, err := a.uploader.UploadStatus(ctx, statuses)
	if err != nil {
		return fmt.Errorf("upload status: %w", err)
	}

	result = metrics.ResultUploaded
	a.logger.Info().
		Int("listed", len(statuses)).
		Int("received", received).
		Int("inserted", inserted).
		Dur("took", a.now().Sub(start)).
		Msg("status uploaded")
	return nil
}

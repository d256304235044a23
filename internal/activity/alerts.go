package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/metrics"
)

const alertsJob = "subscription_alerts"

// Alerter warns owners of expiring and over budget subscriptions.
// *notify.Notifier satisfies this interface.
type Alerter interface {
	CheckExpiry(ctx context.Context) (int, error)
	CheckOverBudget(ctx context.Context) (int, error)
}

// AlertsResult describes one alerts run.
type AlertsResult struct {
	Skipped    bool `json:"skipped"`
	Expiry     int  `json:"expiry"`
	OverBudget int  `json:"over_budget"`
}

// Alerts contains the subscription alerts activity.
type Alerts struct {
	locker  Locker
	alerter Alerter
	now     func() time.Time
	logger  zerolog.Logger
}

func NewAlerts(locker Locker, alerter Alerter, logger zerolog.Logger) *Alerts {
	return &Alerts{
		locker:  locker,
		alerter: alerter,
		now:     time.Now,
		logger:  logger.With().Str("activity", "SendSubscriptionAlerts").Logger(),
	}
}

// SendSubscriptionAlerts sends the expiry and over budget warnings that are
// due. Both checks run even when the first one fails.
func (a *Alerts) SendSubscriptionAlerts(ctx context.Context) (*AlertsResult, error) {
	start := a.now()
	result := metrics.ResultFailed
	defer func() {
		metrics.ObserveJob(alertsJob, result, start, a.now())
	}()

	lock, err := a.locker.TryLock(ctx, db.LockAlerts)
	if errors.Is(err, db.ErrLockHeld) {
		a.logger.Info().Msg("subscription alerts already running elsewhere, skipping")
		result = metrics.ResultSkipped
		return &AlertsResult{Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire alerts lock: %w", err)
	}
	defer release(ctx, lock, db.LockAlerts, a.logger)

	res := &AlertsResult{}
	var expiryErr, budgetErr error
	res.Expiry, expiryErr = a.alerter.CheckExpiry(ctx)
	res.OverBudget, budgetErr = a.alerter.CheckOverBudget(ctx)
	if err := errors.Join(expiryErr, budgetErr); err != nil {
		a.logger.Error().Err(err).Int("expiry", res.Expiry).Int("over_budget", res.OverBudget).Msg("subscription alerts incomplete")
		return nil, err
	}

	if res.Expiry+res.OverBudget == 0 {
		result = metrics.ResultEmpty
	} else {
		result = metrics.ResultSent
	}
	a.logger.Info().Int("expiry", res.Expiry).Int("over_budget", res.OverBudget).Msg("subscription alerts complete")
	return res, nil
}

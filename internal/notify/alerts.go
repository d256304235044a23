package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/model"
)

// usageThresholds are the fractions of the allocation that trigger a usage
// alert the first time they are crossed.
var usageThresholds = []decimal.Decimal{
	decimal.RequireFromString("0.5"),
	decimal.RequireFromString("0.75"),
	decimal.RequireFromString("0.9"),
	decimal.RequireFromString("0.95"),
}

// expiryWarnings are the days before expiry from which a warning is due.
var expiryWarnings = []int{1, 7, 30}

var hundred = decimal.NewFromInt(100)

// CheckExpiry warns the owners of subscriptions whose approval ends within 30
// days. Returns the number of warnings sent.
func (s *Notifier) CheckExpiry(ctx context.Context) (int, error) {
	summaries, err := s.summaries.List(ctx)
	if err != nil {
		return 0, err
	}
	today := day(s.now())
	horizon := today.AddDate(0, 0, expiryWarnings[len(expiryWarnings)-1])

	sent := 0
	var errs []error
	for _, sum := range summaries {
		if sum.ApprovedTo == nil || sum.ApprovedTo.After(horizon) {
			continue
		}
		expiry := day(*sum.ApprovedTo)
		last, err := s.emails.LastSent(ctx, sum.SubscriptionID, model.EmailTypeTimeBased)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !shouldSendExpiry(expiry, last, sum.State, today) {
			continue
		}

		days := int(expiry.Sub(today).Hours() / 24)
		extra := fmt.Sprint(days)
		if err := s.send(ctx, notification{
			subscriptionID: sum.SubscriptionID,
			emailType:      model.EmailTypeTimeBased,
			subject:        fmt.Sprintf("%d days until the expiry of your Azure subscription:", days),
			template:       mailer.TemplateExpiryLooming,
			extraInfo:      &extra,
			data:           mailer.Notification{Days: days},
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// shouldSendExpiry decides whether an expiry warning is due. Warnings start 30
// days before expiry and are repeated 7 days and 1 day before, unless one was
// already sent in that period. Enabled subscriptions past their expiry are
// warned daily.
func shouldSendExpiry(expiry time.Time, last *time.Time, state model.SubscriptionState, today time.Time) bool {
	if state != model.StateEnabled && state != model.StatePastDue {
		return false
	}
	var lastDay *time.Time
	if last != nil {
		d := day(*last)
		lastDay = &d
	}

	if expiry.Before(today) {
		return state == model.StateEnabled && (lastDay == nil || lastDay.Before(today))
	}
	for _, d := range expiryWarnings {
		if expiry.After(today.AddDate(0, 0, d)) {
			continue
		}
		if lastDay == nil || lastDay.Before(expiry.AddDate(0, 0, -d)) {
			return true
		}
	}
	return false
}

// CheckOverBudget warns the owners of running subscriptions that spent more
// than their allocation, at most once a day counting any other budget or
// expiry warning. Returns the number of warnings sent.
func (s *Notifier) CheckOverBudget(ctx context.Context) (int, error) {
	summaries, err := s.summaries.List(ctx)
	if err != nil {
		return 0, err
	}
	today := day(s.now())

	sent := 0
	var errs []error
	for _, sum := range summaries {
		if !sum.TotalCost.GreaterThan(sum.Allocated) {
			continue
		}
		if sum.State != model.StateEnabled && sum.State != model.StatePastDue {
			continue
		}
		last, err := s.emails.LastSent(ctx, sum.SubscriptionID,
			model.EmailTypeOverBudget, model.EmailTypeTimeBased, model.EmailTypeUsageAlert)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if last != nil && !day(*last).Before(today) {
			continue
		}

		pct := percentageUsed(sum.TotalCost, sum.Allocated)
		if err := s.send(ctx, notification{
			subscriptionID: sum.SubscriptionID,
			emailType:      model.EmailTypeOverBudget,
			subject:        pct + "% of allocated budget used by your Azure subscription:",
			template:       mailer.TemplateUsageAlert,
			extraInfo:      &pct,
			data:           mailer.Notification{Percentage: pct},
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// percentageUsed renders cost as a percentage of allocated, rounded to two
// places. Spending without an allocation is infinite.
func percentageUsed(cost, allocated decimal.Decimal) string {
	if allocated.IsZero() {
		return "inf"
	}
	return cost.Div(allocated).Mul(hundred).Round(2).String()
}

// UsageChanged sends a usage alert for every subscription that crossed one of
// the usage thresholds between the two snapshots. A subscription is alerted
// for the highest threshold it is now under the next one of.
func (s *Notifier) UsageChanged(ctx context.Context, before, after []model.SubscriptionSummary) error {
	var errs []error
	for i, lower := range usageThresholds {
		reached := make(map[string]bool, len(before))
		for _, sum := range before {
			if atLeast(sum, lower) {
				reached[sum.SubscriptionID] = true
			}
		}

		pct := lower.Mul(hundred).StringFixed(1)
		for _, sum := range after {
			if reached[sum.SubscriptionID] || !atLeast(sum, lower) {
				continue
			}
			if i+1 < len(usageThresholds) && !sum.Allocated.IsZero() && atLeast(sum, usageThresholds[i+1]) {
				continue
			}
			if err := s.send(ctx, notification{
				subscriptionID: sum.SubscriptionID,
				emailType:      model.EmailTypeUsageAlert,
				subject:        pct + "% of allocated budget used by your Azure subscription:",
				template:       mailer.TemplateUsageAlert,
				extraInfo:      &pct,
				data:           mailer.Notification{Percentage: pct},
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// atLeast reports whether a subscription that spent something spent at least
// fraction of its allocation.
func atLeast(sum model.SubscriptionSummary, fraction decimal.Decimal) bool {
	return sum.TotalCost.IsPositive() && sum.TotalCost.GreaterThanOrEqual(sum.Allocated.Mul(fraction))
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

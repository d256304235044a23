package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

const ExpiryAdjustmentTicket = "Expiry adjustment"

// DesiredStateChange is a desired status row appended by Refresh.
type DesiredStateChange struct {
	SubscriptionID string
	Active         bool
	Reason         *model.BillingStatus
	PreviousReason *model.BillingStatus
}

// DesiredStateService decides which subscriptions should be running. A
// subscription past its approval or spending more than its allocation is
// switched off unless it is always on.
type DesiredStateService struct {
	db        DB
	locker    Locker
	whitelist Whitelist
	now       func() time.Time
	logger    zerolog.Logger
}

func NewDesiredStateService(db DB, locker Locker, whitelist Whitelist, logger zerolog.Logger) *DesiredStateService {
	return &DesiredStateService{
		db:        db,
		locker:    locker,
		whitelist: whitelist,
		now:       time.Now,
		logger:    logger.With().Str("service", "desired_states").Logger(),
	}
}

// Refresh appends a desired status row for every subscription whose latest
// one is missing or out of date, and returns the rows appended. Expired
// subscriptions first have their unspent approval and allocation written off.
// A nil ids slice refreshes every subscription.
func (s *DesiredStateService) Refresh(ctx context.Context, ids []string) (changes []DesiredStateChange, err error) {
	lock, err := s.locker.Lock(ctx, db.LockDesiredStates)
	if err != nil {
		return nil, fmt.Errorf("acquire desired states lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = fmt.Errorf("release desired states lock: %w", rerr)
		}
	}()

	day := today(s.now())
	err = inTx(ctx, s.db, func(tx pgx.Tx) error {
		subs := NewSubscriptionService(tx)
		var summaries []model.SubscriptionSummary
		var err error
		if ids == nil {
			summaries, err = subs.List(ctx)
		} else {
			summaries, err = subs.ListByIDs(ctx, ids)
		}
		if err != nil {
			return err
		}

		for _, sum := range summaries {
			expired := !sum.AlwaysOn && (sum.ApprovedTo == nil || !sum.ApprovedTo.After(day))
			overBudget := !sum.AlwaysOn && sum.Allocated.Add(adjustmentDelta).LessThan(sum.TotalCost)

			if expired {
				if err := expiryAdjustment(ctx, tx, sum); err != nil {
					return err
				}
			}

			change, ok := desiredChange(sum, billingStatus(expired, overBudget))
			if !ok {
				continue
			}
			if err := insertDesiredStatus(ctx, tx, change); err != nil {
				return err
			}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.logger.Info().Int("changes", len(changes)).Msg("desired states refreshed")
	}
	return changes, nil
}

// List returns the subscriptions whose Azure state disagrees with their
// desired status, limited to the whitelist.
func (s *DesiredStateService) List(ctx context.Context) ([]model.DesiredState, error) {
	summaries, err := NewSubscriptionService(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	out := []model.DesiredState{}
	for _, sum := range summaries {
		if sum.DesiredStatus == nil || !s.whitelist.Allows(sum.SubscriptionID) {
			continue
		}
		switch {
		case !*sum.DesiredStatus && (sum.State == model.StateEnabled || sum.State == model.StatePastDue):
			out = append(out, model.DesiredState{SubscriptionID: sum.SubscriptionID, DesiredState: model.StateDisabled})
		case *sum.DesiredStatus && (sum.State == model.StateDisabled || sum.State == model.StateWarned || sum.State == model.StateExpired):
			out = append(out, model.DesiredState{SubscriptionID: sum.SubscriptionID, DesiredState: model.StateEnabled})
		}
	}
	return out, nil
}

func billingStatus(expired, overBudget bool) *model.BillingStatus {
	var b model.BillingStatus
	switch {
	case expired && overBudget:
		b = model.BillingOverBudgetAndExpired
	case expired:
		b = model.BillingExpired
	case overBudget:
		b = model.BillingOverBudget
	default:
		return nil
	}
	return &b
}

// desiredChange compares the wanted status with the latest recorded one.
func desiredChange(sum model.SubscriptionSummary, reason *model.BillingStatus) (DesiredStateChange, bool) {
	change := DesiredStateChange{
		SubscriptionID: sum.SubscriptionID,
		Active:         reason == nil,
		Reason:         reason,
		PreviousReason: sum.DesiredStatusInfo,
	}
	if reason == nil {
		return change, sum.DesiredStatus == nil || !*sum.DesiredStatus
	}
	stale := sum.DesiredStatus == nil || *sum.DesiredStatus ||
		sum.DesiredStatusInfo == nil || *sum.DesiredStatusInfo != *reason
	return change, stale
}

func insertDesiredStatus(ctx context.Context, q DB, c DesiredStateChange) error {
	var reason *string
	if c.Reason != nil {
		r := string(*c.Reason)
		reason = &r
	}
	_, err := q.Exec(ctx,
		`INSERT INTO status (subscription_id, active, reason) VALUES ($1, $2, $3)`,
		c.SubscriptionID, c.Active, reason)
	if err != nil {
		return fmt.Errorf("insert desired status for %s: %w", c.SubscriptionID, err)
	}
	return nil
}

// expiryAdjustment brings the approval and allocation of an expired
// subscription down to what it spent.
func expiryAdjustment(ctx context.Context, q DB, sum model.SubscriptionSummary) error {
	if sum.Allocated.Sub(sum.TotalCost).GreaterThanOrEqual(adjustmentDelta) {
		if _, err := insertAllocation(ctx, q, sum.SubscriptionID, ExpiryAdjustmentTicket, sum.TotalCost.Sub(sum.Allocated)); err != nil {
			return err
		}
	}
	if sum.ApprovedFrom == nil || sum.ApprovedTo == nil {
		return nil
	}
	if sum.Approved.Sub(sum.TotalCost).GreaterThanOrEqual(adjustmentDelta) {
		if _, err := insertApproval(ctx, q, sum.SubscriptionID, ExpiryAdjustmentTicket,
			sum.TotalCost.Sub(sum.Approved), *sum.ApprovedFrom, *sum.ApprovedTo); err != nil {
			return err
		}
	}
	return nil
}

package handler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

// Notifier emails subscription owners about changes made through the API.
// *notify.Notifier satisfies this interface.
type Notifier interface {
	StatusChanged(ctx context.Context, changes []core.StatusChange) error
	UsageChanged(ctx context.Context, before, after []model.SubscriptionSummary) error
	Approved(ctx context.Context, a *model.Approval) error
	Allocated(ctx context.Context, a *model.Allocation) error
	PersistenceChanged(ctx context.Context, p *model.Persistence) error
	DesiredStatesChanged(ctx context.Context, changes []core.DesiredStateChange) error
}

// DesiredStates keeps the desired status log current.
// *core.DesiredStateService satisfies this interface.
type DesiredStates interface {
	Refresh(ctx context.Context, ids []string) ([]core.DesiredStateChange, error)
	List(ctx context.Context) ([]model.DesiredState, error)
}

// Summaries lists subscription summaries. *core.SubscriptionService
// satisfies this interface.
type Summaries interface {
	List(ctx context.Context) ([]model.SubscriptionSummary, error)
}

// logNotifyErr logs a failed notification. The change it reports is already
// committed, so the request still succeeds.
func logNotifyErr(ctx context.Context, err error, what string) {
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("notification", what).Msg("notifying owners failed")
	}
}

// refreshDesired recomputes the desired status of ids after a write and warns
// owners of the resulting changes. Failures are logged; the next refresh
// catches up.
func refreshDesired(ctx context.Context, desired DesiredStates, notifier Notifier, ids []string) {
	changes, err := desired.Refresh(ctx, ids)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Strs("subscription_ids", ids).Msg("refreshing desired states failed")
		return
	}
	logNotifyErr(ctx, notifier.DesiredStatesChanged(ctx, changes), "desired states")
}

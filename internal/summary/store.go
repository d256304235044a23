package summary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

// Reader is a consistent read-only view of the budget tables. A nil ids slice
// means every subscription.
type Reader interface {
	// Subscriptions returns subscriptions first observed within r.
	Subscriptions(ctx context.Context, r Range) ([]model.Subscription, error)
	Details(ctx context.Context, ids []string, r Range) ([]model.SubscriptionDetail, error)
	Approvals(ctx context.Context, ids []string, r Range) ([]model.Approval, error)
	Allocations(ctx context.Context, ids []string, r Range) ([]model.Allocation, error)
	// UsageTotals sums total_cost per subscription for usage dated on or before asOf.
	UsageTotals(ctx context.Context, ids []string, asOf time.Time) (map[string]decimal.Decimal, error)
	// Notifications returns emails about a subscription, other than summaries,
	// created within r. SubscriptionID is always set on the returned rows.
	Notifications(ctx context.Context, r Range) ([]model.Email, error)
	// Finance returns at least every entry whose validity dates touch [from, to].
	Finance(ctx context.Context, from, to time.Time) ([]model.FinanceEntry, error)
}

// Store runs fn against a single snapshot. Every read made through the
// Reader observes the same data.
type Store interface {
	Snapshot(ctx context.Context, fn func(Reader) error) error
}

// MarkerStore persists the time of the last summary.
type MarkerStore interface {
	Latest(ctx context.Context) (Marker, error)
	// Advance records a delivered summary. The recorded row is the marker.
	Advance(ctx context.Context, m Marker, recipients []string, status int) error
}

package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

const (
	// AbolishAfter is how long a subscription must have been inactive before
	// it is abolished.
	AbolishAfter = 90 * 24 * time.Hour

	AbolishmentTicket = "Abolishment adjustment"
)

// adjustmentDelta is the smallest difference worth correcting.
var adjustmentDelta = decimal.RequireFromString("0.001")

// AbolishService retires subscriptions that have been inactive for a long
// time. Their approved and allocated budgets are brought down to what they
// actually spent before they are flagged abolished.
type AbolishService struct {
	subs   *SubscriptionService
	db     DB
	now    func() time.Time
	logger zerolog.Logger
}

func NewAbolishService(db DB, subs *SubscriptionService, logger zerolog.Logger) *AbolishService {
	return &AbolishService{
		db:     db,
		subs:   subs,
		now:    time.Now,
		logger: logger.With().Str("service", "abolish").Logger(),
	}
}

// Run abolishes every eligible subscription and returns the adjustments made.
// It returns nil when nothing was eligible.
func (s *AbolishService) Run(ctx context.Context) ([]model.BudgetAdjustment, error) {
	ids, err := s.subs.Inactive(ctx, s.now().Add(-AbolishAfter))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := s.subs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	adjustments := make([]model.BudgetAdjustment, 0, len(summaries))
	err = inTx(ctx, s.db, func(tx pgx.Tx) error {
		for _, sum := range summaries {
			adj, err := abolishAdjustment(ctx, tx, sum)
			if err != nil {
				return err
			}
			adjustments = append(adjustments, adj)
		}
		return setAbolished(ctx, tx, ids)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(ids)).Msg("subscriptions abolished")
	return adjustments, nil
}

func abolishAdjustment(ctx context.Context, q DB, sum model.SubscriptionSummary) (model.BudgetAdjustment, error) {
	adj := model.BudgetAdjustment{
		SubscriptionID: sum.SubscriptionID,
		Name:           sum.Name,
		Allocation:     sum.TotalCost.Sub(sum.Allocated),
		Approval:       sum.TotalCost.Sub(sum.Approved),
	}
	// Without an approval there is no period to record an adjustment against.
	if sum.ApprovedFrom == nil || sum.ApprovedTo == nil {
		return adj, nil
	}

	if adj.Allocation.Abs().GreaterThanOrEqual(adjustmentDelta) {
		if _, err := insertAllocation(ctx, q, sum.SubscriptionID, AbolishmentTicket, adj.Allocation); err != nil {
			return adj, err
		}
	}
	if adj.Approval.Abs().GreaterThanOrEqual(adjustmentDelta) {
		if _, err := insertApproval(ctx, q, sum.SubscriptionID, AbolishmentTicket, adj.Approval, *sum.ApprovedFrom, *sum.ApprovedTo); err != nil {
			return adj, err
		}
	}
	return adj, nil
}

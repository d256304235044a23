package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// NewAllocation is a request to move approved budget into a subscription's
// spendable allocation, or back out of it when negative.
type NewAllocation struct {
	SubscriptionID string
	Ticket         string
	Amount         decimal.Decimal
	Currency       string
}

type AllocationService struct {
	db   DB
	subs *SubscriptionService
}

func NewAllocationService(db DB, subs *SubscriptionService) *AllocationService {
	return &AllocationService{db: db, subs: subs}
}

func (s *AllocationService) Create(ctx context.Context, in NewAllocation) (*model.Allocation, error) {
	sum, err := s.subs.GetByID(ctx, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := checkAllocation(in, sum); err != nil {
		return nil, err
	}
	return insertAllocation(ctx, s.db, in.SubscriptionID, in.Ticket, in.Amount)
}

func (s *AllocationService) ListBySubscription(ctx context.Context, subID string) ([]model.Allocation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, currency, time_created
		 FROM allocations WHERE subscription_id = $1 ORDER BY time_created, id`, subID)
	if err != nil {
		return nil, fmt.Errorf("list allocations for %s: %w", subID, err)
	}
	defer rows.Close()

	var out []model.Allocation
	for rows.Next() {
		var a model.Allocation
		var amount pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.Ticket, &amount, &a.Currency, &a.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Amount = db.Decimal(amount)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocations: %w", err)
	}
	return out, nil
}

func checkAllocation(in NewAllocation, sum *model.SubscriptionSummary) error {
	if sum.ApprovedTo == nil {
		return ruleErrorf("subscription has no approvals")
	}
	if in.Currency != model.DefaultCurrency {
		return ruleErrorf("currency %s is not supported, only %s", in.Currency, model.DefaultCurrency)
	}
	if in.Amount.IsZero() {
		return ruleErrorf("allocation cannot be zero")
	}

	if in.Amount.IsPositive() {
		unallocated := sum.Approved.Sub(sum.Allocated)
		if in.Amount.GreaterThan(unallocated) {
			return ruleErrorf("allocation (%s) cannot be bigger than the unallocated budget (%s)",
				in.Amount.StringFixed(2), unallocated.StringFixed(2))
		}
		return nil
	}

	unused := sum.Allocated.Sub(sum.TotalCost)
	if in.Amount.Abs().GreaterThan(unused) {
		return ruleErrorf("negative allocation (%s) cannot be bigger than the unused budget (%s)",
			in.Amount.Abs().StringFixed(2), unused.StringFixed(2))
	}
	return nil
}

func insertAllocation(ctx context.Context, q DB, subID, ticket string, amount decimal.Decimal) (*model.Allocation, error) {
	a := &model.Allocation{
		SubscriptionID: subID,
		Ticket:         ticket,
		Amount:         amount,
		Currency:       model.DefaultCurrency,
	}
	err := q.QueryRow(ctx,
		`INSERT INTO allocations (subscription_id, ticket, amount, currency)
		 VALUES ($1, $2, $3, $4) RETURNING id, time_created`,
		subID, ticket, amount, model.DefaultCurrency,
	).Scan(&a.ID, &a.TimeCreated)
	if err != nil {
		return nil, fmt.Errorf("insert allocation: %w", err)
	}
	return a, nil
}

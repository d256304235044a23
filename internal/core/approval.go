package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// ApprovalBackdateLimit is how far in the past an approval may start without
// being forced. Azure keeps a cancelled subscription for at least this long.
const ApprovalBackdateLimit = 30 * 24 * time.Hour

// NewApproval is a request to approve budget for a subscription.
type NewApproval struct {
	SubscriptionID string
	Ticket         string
	Amount         decimal.Decimal
	Currency       string
	DateFrom       time.Time
	DateTo         time.Time
	Allocate       bool
	Force          bool
}

type ApprovalService struct {
	db   DB
	subs *SubscriptionService
	now  func() time.Time
}

func NewApprovalService(db DB, subs *SubscriptionService) *ApprovalService {
	return &ApprovalService{db: db, subs: subs, now: time.Now}
}

// Create validates the approval against the subscription's current summary
// and records it, together with a matching allocation when requested.
func (s *ApprovalService) Create(ctx context.Context, in NewApproval) (*model.Approval, error) {
	sum, err := s.subs.GetByID(ctx, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if err := checkApproval(in, sum, today(s.now())); err != nil {
		return nil, err
	}

	ticket := in.Ticket
	if in.Force {
		ticket += " (forced)"
	}

	var a *model.Approval
	err = inTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if a, err = insertApproval(ctx, tx, in.SubscriptionID, ticket, in.Amount, in.DateFrom, in.DateTo); err != nil {
			return err
		}
		if in.Allocate {
			_, err = insertAllocation(ctx, tx, in.SubscriptionID, in.Ticket, in.Amount)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func insertApproval(ctx context.Context, q DB, subID, ticket string, amount decimal.Decimal, from, to time.Time) (*model.Approval, error) {
	a := &model.Approval{
		SubscriptionID: subID,
		Ticket:         ticket,
		Amount:         amount,
		Currency:       model.DefaultCurrency,
		DateFrom:       from,
		DateTo:         to,
	}
	err := q.QueryRow(ctx,
		`INSERT INTO approvals (subscription_id, ticket, amount, currency, date_from, date_to)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, time_created`,
		subID, ticket, amount, model.DefaultCurrency, from, to,
	).Scan(&a.ID, &a.TimeCreated)
	if err != nil {
		return nil, fmt.Errorf("insert approval: %w", err)
	}
	return a, nil
}

// ListBySubscription returns a subscription's approvals, oldest first.
func (s *ApprovalService) ListBySubscription(ctx context.Context, subID string) ([]model.Approval, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, currency, date_from, date_to, time_created
		 FROM approvals WHERE subscription_id = $1 ORDER BY time_created, id`, subID)
	if err != nil {
		return nil, fmt.Errorf("list approvals for %s: %w", subID, err)
	}
	defer rows.Close()

	var out []model.Approval
	for rows.Next() {
		var a model.Approval
		var amount pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.Ticket, &amount, &a.Currency, &a.DateFrom, &a.DateTo, &a.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Amount = db.Decimal(amount)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return out, nil
}

func checkApproval(in NewApproval, sum *model.SubscriptionSummary, today time.Time) error {
	if in.DateTo.Before(today) {
		return ruleErrorf("date to (%s) cannot be in the past", isoDate(in.DateTo))
	}
	if in.DateFrom.After(in.DateTo) {
		return ruleErrorf("date from (%s) cannot be greater than date to (%s)", isoDate(in.DateFrom), isoDate(in.DateTo))
	}
	if in.Currency != model.DefaultCurrency {
		return ruleErrorf("currency %s is not supported, only %s", in.Currency, model.DefaultCurrency)
	}
	if in.Amount.IsNegative() {
		return checkNegativeApproval(in, sum)
	}
	return checkPositiveApproval(in, sum, today)
}

func checkPositiveApproval(in NewApproval, sum *model.SubscriptionSummary, today time.Time) error {
	if !in.Force && in.DateFrom.Before(today.Add(-ApprovalBackdateLimit)) {
		return ruleErrorf("date from (%s) cannot be more than 30 days in the past", isoDate(in.DateFrom))
	}
	if sum.ApprovedTo == nil {
		return nil
	}
	if in.DateTo.Before(*sum.ApprovedTo) {
		return ruleErrorf("date to (%s) should be equal or greater than (%s)", isoDate(in.DateTo), isoDate(*sum.ApprovedTo))
	}
	if in.DateFrom.After(*sum.ApprovedTo) {
		return ruleErrorf("date from (%s) should be equal or less than (%s)", isoDate(in.DateFrom), isoDate(*sum.ApprovedTo))
	}
	return nil
}

func checkNegativeApproval(in NewApproval, sum *model.SubscriptionSummary) error {
	if sum.ApprovedTo == nil || sum.ApprovedFrom == nil {
		return ruleErrorf("cannot create a negative approval for non-existent budget")
	}
	if !sameDay(in.DateFrom, *sum.ApprovedFrom) || !sameDay(in.DateTo, *sum.ApprovedTo) {
		return ruleErrorf("dates from and to (%s - %s) must align with the approval period (%s - %s)",
			isoDate(in.DateFrom), isoDate(in.DateTo), isoDate(*sum.ApprovedFrom), isoDate(*sum.ApprovedTo))
	}

	reduction := in.Amount.Abs()
	unused := sum.Approved.Sub(sum.TotalCost)
	if unused.LessThan(reduction) {
		return ruleErrorf("unused budget (%s) is less than the reduction (%s)", unused.StringFixed(2), reduction.StringFixed(2))
	}

	unallocated := sum.Approved.Sub(sum.Allocated)
	if in.Allocate {
		unallocated = unallocated.Sub(in.Amount)
	}
	if unallocated.LessThan(reduction) {
		return ruleErrorf("unallocated budget (%s) is less than the reduction (%s)", unallocated.StringFixed(2), reduction.StringFixed(2))
	}
	return nil
}

func today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return isoDate(a) == isoDate(b)
}

func isoDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

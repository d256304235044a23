package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// NewFinance charges a subscription's spend over [DateFrom, DateTo] to a
// finance code.
type NewFinance struct {
	SubscriptionID string
	Ticket         string
	Amount         decimal.Decimal
	Priority       int
	FinanceCode    string
	DateFrom       time.Time
	DateTo         time.Time
}

type FinanceService struct {
	db   DB
	subs *SubscriptionService
}

func NewFinanceService(db DB, subs *SubscriptionService) *FinanceService {
	return &FinanceService{db: db, subs: subs}
}

func (s *FinanceService) Create(ctx context.Context, in NewFinance) (*model.FinanceEntry, error) {
	if in.DateFrom.After(in.DateTo) {
		return nil, ruleErrorf("date from (%s) cannot be greater than date to (%s)", isoDate(in.DateFrom), isoDate(in.DateTo))
	}
	if !in.Amount.IsPositive() {
		return nil, ruleErrorf("amount must be positive but was %s", in.Amount.String())
	}
	if in.Priority < 0 {
		return nil, ruleErrorf("priority cannot be negative")
	}
	if _, err := s.subs.GetByID(ctx, in.SubscriptionID); err != nil {
		return nil, err
	}

	f := &model.FinanceEntry{
		SubscriptionID: in.SubscriptionID,
		Ticket:         in.Ticket,
		Amount:         in.Amount,
		Priority:       in.Priority,
		FinanceCode:    in.FinanceCode,
		DateFrom:       in.DateFrom,
		DateTo:         in.DateTo,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO finance (subscription_id, ticket, amount, priority, finance_code, date_from, date_to)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, time_created`,
		in.SubscriptionID, in.Ticket, in.Amount, in.Priority, in.FinanceCode, in.DateFrom, in.DateTo,
	).Scan(&f.ID, &f.TimeCreated)
	if err != nil {
		return nil, fmt.Errorf("insert finance: %w", err)
	}
	return f, nil
}

func (s *FinanceService) ListBySubscription(ctx context.Context, subID string) ([]model.FinanceEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, priority, finance_code, date_from, date_to, time_created
		 FROM finance WHERE subscription_id = $1 ORDER BY date_from, priority, id`, subID)
	if err != nil {
		return nil, fmt.Errorf("list finance for %s: %w", subID, err)
	}
	defer rows.Close()

	var out []model.FinanceEntry
	for rows.Next() {
		var f model.FinanceEntry
		var amount pgtype.Numeric
		if err := rows.Scan(&f.ID, &f.SubscriptionID, &f.Ticket, &amount, &f.Priority, &f.FinanceCode,
			&f.DateFrom, &f.DateTo, &f.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan finance: %w", err)
		}
		f.Amount = db.Decimal(amount)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finance: %w", err)
	}
	return out, nil
}

package request

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

// CreateApproval holds the request body for approving budget.
type CreateApproval struct {
	Ticket   string          `json:"ticket" validate:"required,max=255"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
	DateFrom string          `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo   string          `json:"date_to" validate:"required,datetime=2006-01-02"`
	Allocate bool            `json:"allocate"`
	Force    bool            `json:"force"`
}

func (c CreateApproval) ToCore(subID string) (core.NewApproval, error) {
	from, err := ParseDate(c.DateFrom)
	if err != nil {
		return core.NewApproval{}, err
	}
	to, err := ParseDate(c.DateTo)
	if err != nil {
		return core.NewApproval{}, err
	}
	return core.NewApproval{
		SubscriptionID: subID,
		Ticket:         c.Ticket,
		Amount:         c.Amount,
		Currency:       currencyOrDefault(c.Currency),
		DateFrom:       from,
		DateTo:         to,
		Allocate:       c.Allocate,
		Force:          c.Force,
	}, nil
}

// CreateAllocation holds the request body for allocating approved budget.
type CreateAllocation struct {
	Ticket   string          `json:"ticket" validate:"required,max=255"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
}

func (c CreateAllocation) ToCore(subID string) core.NewAllocation {
	return core.NewAllocation{
		SubscriptionID: subID,
		Ticket:         c.Ticket,
		Amount:         c.Amount,
		Currency:       currencyOrDefault(c.Currency),
	}
}

// CreateFinance holds the request body for a finance entry.
type CreateFinance struct {
	Ticket      string          `json:"ticket" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Priority    int             `json:"priority" validate:"gte=0"`
	FinanceCode string          `json:"finance_code" validate:"required,max=255"`
	DateFrom    string          `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo      string          `json:"date_to" validate:"required,datetime=2006-01-02"`
}

func (c CreateFinance) ToCore(subID string) (core.NewFinance, error) {
	from, err := ParseDate(c.DateFrom)
	if err != nil {
		return core.NewFinance{}, err
	}
	to, err := ParseDate(c.DateTo)
	if err != nil {
		return core.NewFinance{}, err
	}
	if from.After(to) {
		return core.NewFinance{}, fmt.Errorf("date_from must not be after date_to")
	}
	return core.NewFinance{
		SubscriptionID: subID,
		Ticket:         c.Ticket,
		Amount:         c.Amount,
		Priority:       c.Priority,
		FinanceCode:    c.FinanceCode,
		DateFrom:       from,
		DateTo:         to,
	}, nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return model.DefaultCurrency
	}
	return c
}

// SetPersistence holds the request body for the always-on flag. AlwaysOn is a
// pointer so a missing field fails validation instead of reading as false.
type SetPersistence struct {
	AlwaysOn *bool `json:"always_on" validate:"required"`
}

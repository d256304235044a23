package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the only currency budgets are recorded in.
const DefaultCurrency = "GBP"

type Approval struct {
	ID             int64           `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Ticket         string          `json:"ticket"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DateFrom       time.Time       `json:"date_from"`
	DateTo         time.Time       `json:"date_to"`
	TimeCreated    time.Time       `json:"time_created"`
}

type Allocation struct {
	ID             int64           `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Ticket         string          `json:"ticket"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	TimeCreated    time.Time       `json:"time_created"`
}

// FinanceEntry ties spend on a subscription to a cost-recovery code for the
// inclusive date range [DateFrom, DateTo].
type FinanceEntry struct {
	ID             int64           `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Ticket         string          `json:"ticket"`
	Amount         decimal.Decimal `json:"amount"`
	Priority       int             `json:"priority"`
	FinanceCode    string          `json:"finance_code"`
	DateFrom       time.Time       `json:"date_from"`
	DateTo         time.Time       `json:"date_to"`
	TimeCreated    time.Time       `json:"time_created"`
}

type Usage struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Name           *string         `json:"name,omitempty"`
	Date           time.Time       `json:"date"`
	Currency       string          `json:"currency"`
	Cost           decimal.Decimal `json:"cost"`
	AmortisedCost  decimal.Decimal `json:"amortised_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	InvoiceSection *string         `json:"invoice_section,omitempty"`
}

// BudgetAdjustment is the correction applied to an abolished subscription so
// its approved and allocated totals match what it actually spent.
type BudgetAdjustment struct {
	SubscriptionID string          `json:"subscription_id"`
	Name           string          `json:"name"`
	Allocation     decimal.Decimal `json:"allocation"`
	Approval       decimal.Decimal `json:"approval"`
}

package model

import "time"

// BillingStatus is the reason a subscription should be disabled.
type BillingStatus string

const (
	BillingExpired              BillingStatus = "EXPIRED"
	BillingOverBudget           BillingStatus = "OVER_BUDGET"
	BillingOverBudgetAndExpired BillingStatus = "OVER_BUDGET_AND_EXPIRED"
)

// DesiredState tells the controller to move a subscription to State.
type DesiredState struct {
	SubscriptionID string            `json:"subscription_id"`
	DesiredState   SubscriptionState `json:"desired_state"`
}

// DesiredStatus is a row of the append-only log of whether a subscription
// should be active. Reason is nil for active rows.
type DesiredStatus struct {
	ID             int64          `json:"id"`
	SubscriptionID string         `json:"subscription_id"`
	Active         bool           `json:"active"`
	Reason         *BillingStatus `json:"reason,omitempty"`
	TimeCreated    time.Time      `json:"time_created"`
}

// Persistence is a row of the append-only log of the always-on flag.
type Persistence struct {
	ID             int64     `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	AlwaysOn       bool      `json:"always_on"`
	TimeCreated    time.Time `json:"time_created"`
}

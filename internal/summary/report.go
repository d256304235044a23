package summary

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

// Report is the outcome of one summary run. Every section is sorted by
// subscription id, and entries inside a section by time then row id.
type Report struct {
	Window                     Window            `json:"window"`
	NewSubscriptions           []NewSubscription `json:"new_subscriptions"`
	StatusChanges              []StatusChange    `json:"status_changes"`
	NewApprovalsAndAllocations []BudgetChange    `json:"new_approvals_and_allocations"`
	NotificationsSent          []Notifications   `json:"notifications_sent"`
	Finance                    []FinanceEntries  `json:"finance"`
	NumNotifications           int               `json:"num_notifications"`
	NumFinance                 int               `json:"num_finance"`
}

// Empty reports whether nothing happened in the window.
func (r *Report) Empty() bool {
	return len(r.NewSubscriptions) == 0 && len(r.StatusChanges) == 0 &&
		len(r.NewApprovalsAndAllocations) == 0 && len(r.NotificationsSent) == 0 &&
		len(r.Finance) == 0
}

// Status is a subscription's latest status row as of the window end. Known is
// false when no status row exists yet.
type Status struct {
	Name  string                  `json:"name"`
	State model.SubscriptionState `json:"state"`
	Known bool                    `json:"known"`
}

type NewSubscription struct {
	SubscriptionID string          `json:"subscription_id"`
	TimeCreated    time.Time       `json:"time_created"`
	Status         Status          `json:"status"`
	Approved       decimal.Decimal `json:"approved"`
	Allocated      decimal.Decimal `json:"allocated"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Remaining      decimal.Decimal `json:"remaining"`
	ApprovedFrom   *time.Time      `json:"approved_from,omitempty"`
	ApprovedTo     *time.Time      `json:"approved_to,omitempty"`
}

// StatusChange compares the last status before the window with the latest
// status at its end. NoPriorData marks the synthetic empty baseline used when
// the subscription had no status before the window.
type StatusChange struct {
	SubscriptionID string                               `json:"subscription_id"`
	NoPriorData    bool                                 `json:"no_prior_data"`
	DisplayName    FieldChange[string]                  `json:"display_name"`
	State          FieldChange[model.SubscriptionState] `json:"state"`
}

type BudgetItem struct {
	ID          int64           `json:"id"`
	Ticket      string          `json:"ticket"`
	Amount      decimal.Decimal `json:"amount"`
	TimeCreated time.Time       `json:"time_created"`
}

// BudgetChange lists the approvals and allocations a subscription received in
// the window with their exact sums.
type BudgetChange struct {
	SubscriptionID   string          `json:"subscription_id"`
	Status           Status          `json:"status"`
	Approvals        []BudgetItem    `json:"approvals"`
	Allocations      []BudgetItem    `json:"allocations"`
	ApprovalsTotal   decimal.Decimal `json:"approvals_total"`
	AllocationsTotal decimal.Decimal `json:"allocations_total"`
}

type Notification struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	ExtraInfo   *string   `json:"extra_info,omitempty"`
	TimeCreated time.Time `json:"time_created"`
}

type Notifications struct {
	SubscriptionID string         `json:"subscription_id"`
	Name           string         `json:"name"`
	Notifications  []Notification `json:"notifications"`
}

type FinanceEntries struct {
	SubscriptionID string               `json:"subscription_id"`
	Name           string               `json:"name"`
	Entries        []model.FinanceEntry `json:"entries"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionState mirrors the Azure subscription lifecycle states.
type SubscriptionState string

const (
	StateEnabled  SubscriptionState = "Enabled"
	StateDisabled SubscriptionState = "Disabled"
	StateDeleted  SubscriptionState = "Deleted"
	StateExpired  SubscriptionState = "Expired"
	StatePastDue  SubscriptionState = "PastDue"
	StateWarned   SubscriptionState = "Warned"
)

// Valid reports whether s is one of the known states.
func (s SubscriptionState) Valid() bool {
	switch s {
	case StateEnabled, StateDisabled, StateDeleted, StateExpired, StatePastDue, StateWarned:
		return true
	}
	return false
}

// Inactive states are the ones that count towards abolishment.
func (s SubscriptionState) Inactive() bool {
	return s == StateDisabled || s == StateDeleted || s == StateExpired
}

type Subscription struct {
	ID          string     `json:"subscription_id"`
	Abolished   bool       `json:"abolished"`
	TimeCreated time.Time  `json:"time_created"`
	TimeUpdated *time.Time `json:"time_updated,omitempty"`
}

type RoleAssignment struct {
	RoleDefinitionID string  `json:"role_definition_id"`
	RoleName         string  `json:"role_name"`
	PrincipalID      string  `json:"principal_id"`
	DisplayName      string  `json:"display_name"`
	Mail             *string `json:"mail,omitempty"`
	Scope            *string `json:"scope,omitempty"`
}

// SubscriptionDetail is one point-in-time status row. The history of these
// rows per subscription is append-only.
type SubscriptionDetail struct {
	ID              int64             `json:"id"`
	SubscriptionID  string            `json:"subscription_id"`
	DisplayName     string            `json:"display_name"`
	State           SubscriptionState `json:"state"`
	RoleAssignments []RoleAssignment  `json:"role_assignments"`
	TimeCreated     time.Time         `json:"time_created"`
}

// SubscriptionSummary is the derived view of a subscription: its latest status,
// the totals of its budget records and its latest desired status. AlwaysOn
// subscriptions are never disabled for being expired or over budget.
// DesiredStatus is nil until the first desired state refresh.
type SubscriptionSummary struct {
	SubscriptionID    string            `json:"subscription_id"`
	Name              string            `json:"name"`
	State             SubscriptionState `json:"state"`
	Abolished         bool              `json:"abolished"`
	Approved          decimal.Decimal   `json:"approved"`
	Allocated         decimal.Decimal   `json:"allocated"`
	TotalCost         decimal.Decimal   `json:"total_cost"`
	Remaining         decimal.Decimal   `json:"remaining"`
	ApprovedFrom      *time.Time        `json:"approved_from,omitempty"`
	ApprovedTo        *time.Time        `json:"approved_to,omitempty"`
	AlwaysOn          bool              `json:"always_on"`
	DesiredStatus     *bool             `json:"desired_status,omitempty"`
	DesiredStatusInfo *BillingStatus    `json:"desired_status_info,omitempty"`
}

// SubscriptionStatus is one status observation pushed by the status agent.
type SubscriptionStatus struct {
	SubscriptionID  string            `json:"subscription_id"`
	DisplayName     string            `json:"display_name"`
	State           SubscriptionState `json:"state"`
	RoleAssignments []RoleAssignment  `json:"role_assignments"`
}

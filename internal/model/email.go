package model

import "time"

// Email types recorded in the emails table. EmailTypeSummary rows double as
// the marker of the last daily summary.
const (
	EmailTypeSummary     = "summary"
	EmailTypeOverBudget  = "overbudget"
	EmailTypeUsageAlert  = "usage-alert"
	EmailTypeTimeBased   = "time-based"
	EmailTypeWelcome     = "subscription welcome"
	EmailTypeStatus      = "subscription status"
	EmailTypeRoles       = "subscription roles"
	EmailTypeApproval    = "subscription approval"
	EmailTypeAllocation  = "subscription allocation"
	EmailTypeDisabled    = "subscription disabled"
	EmailTypeEnabled     = "subscription enabled"
	EmailTypePersistence = "subscription persistence"
	EmailTypeAbolishment = "abolishment"
)

// Email is a row of the notification log.
type Email struct {
	ID             int64     `json:"id"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	Status         int       `json:"status"`
	Type           string    `json:"type"`
	Recipients     string    `json:"recipients"`
	ExtraInfo      *string   `json:"extra_info,omitempty"`
	TimeCreated    time.Time `json:"time_created"`
}

// FailedEmail keeps a rendered message that could not be delivered so it can
// be resent by hand.
type FailedEmail struct {
	ID             int64     `json:"id"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	FromEmail      string    `json:"from_email"`
	Recipients     string    `json:"recipients"`
	Message        string    `json:"message"`
	TimeCreated    time.Time `json:"time_created"`
}

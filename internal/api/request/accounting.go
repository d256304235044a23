package request

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
	"github.com/edvin/budget/internal/platform"
)

// AllStatus is the body the status agent posts.
type AllStatus struct {
	StatusList []Status `json:"status_list" validate:"required,dive"`
}

type Status struct {
	SubscriptionID  string                 `json:"subscription_id" validate:"required,subscription_id"`
	DisplayName     string                 `json:"display_name"`
	State           string                 `json:"state" validate:"required,oneof=Enabled Disabled Deleted Expired PastDue Warned"`
	RoleAssignments []model.RoleAssignment `json:"role_assignments"`
}

func (a AllStatus) ToModel() []model.SubscriptionStatus {
	out := make([]model.SubscriptionStatus, 0, len(a.StatusList))
	for _, s := range a.StatusList {
		id, _ := platform.ParseSubscriptionID(s.SubscriptionID)
		out = append(out, model.SubscriptionStatus{
			SubscriptionID:  id,
			DisplayName:     s.DisplayName,
			State:           model.SubscriptionState(s.State),
			RoleAssignments: s.RoleAssignments,
		})
	}
	return out
}

// AllUsage is the body the usage agent posts.
type AllUsage struct {
	UsageList []Usage `json:"usage_list" validate:"required,dive"`
}

type Usage struct {
	ID             string          `json:"id" validate:"required"`
	SubscriptionID string          `json:"subscription_id" validate:"required,subscription_id"`
	Name           *string         `json:"name"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	Currency       string          `json:"currency" validate:"omitempty,len=3"`
	Cost           decimal.Decimal `json:"cost"`
	AmortisedCost  decimal.Decimal `json:"amortised_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	InvoiceSection *string         `json:"invoice_section"`
}

func (a AllUsage) ToModel() ([]model.Usage, error) {
	out := make([]model.Usage, 0, len(a.UsageList))
	for _, u := range a.UsageList {
		id, err := platform.ParseSubscriptionID(u.SubscriptionID)
		if err != nil {
			return nil, err
		}
		date, err := ParseDate(u.Date)
		if err != nil {
			return nil, fmt.Errorf("usage %s: %w", u.ID, err)
		}
		out = append(out, model.Usage{
			ID:             u.ID,
			SubscriptionID: id,
			Name:           u.Name,
			Date:           date,
			Currency:       currencyOrDefault(u.Currency),
			Cost:           u.Cost,
			AmortisedCost:  u.AmortisedCost,
			TotalCost:      u.TotalCost,
			InvoiceSection: u.InvoiceSection,
		})
	}
	return out, nil
}

// ParseSince reads the since query parameter of a summary preview.
func ParseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing since parameter")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("since must be RFC3339: %w", err)
	}
	return t.UTC(), nil
}

package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
	"github.com/edvin/budget/internal/summary"
)

const (
	SummarySubject     = "Daily summary"
	AbolishmentSubject = "Abolishment of subscriptions"
)

// Templates of the notifications sent to subscription owners.
const (
	TemplateWelcome        = "welcome.html"
	TemplateStatusChange   = "status_change.html"
	TemplateRolesChange    = "role_assignment_change.html"
	TemplateExpiryLooming  = "expiry_looming.html"
	TemplateUsageAlert     = "usage_alert.html"
	TemplateNewApproval    = "new_approval.html"
	TemplateNewAllocation  = "new_allocation.html"
	TemplateWillBeDisabled = "will_be_disabled.html"
	TemplateWillBeEnabled  = "will_be_enabled.html"
	TemplatePersistence    = "persistence_change.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money":    formatMoney,
	"date":     formatDate,
	"datetime": formatDateTime,
	"state":    formatState,
	"name":     formatName,
	"link":     func(id string) string { return id },
}).ParseFS(templateFS, "templates/*.html"))

// Meta is the per-deployment context every message is rendered with.
type Meta struct {
	Organisation    string
	WebsiteHostname string
}

// RenderSummary renders the daily summary report as an HTML message body.
func RenderSummary(report *summary.Report, meta Meta) (subject, body string, err error) {
	if report == nil {
		return "", "", fmt.Errorf("render summary: nil report")
	}
	data := struct {
		Meta
		Report *summary.Report
	}{Meta: meta, Report: report}

	body, err = execute("daily_summary.html", meta, data)
	if err != nil {
		return "", "", err
	}
	return SummarySubject, body, nil
}

// RenderAbolishment renders the notice listing abolished subscriptions and
// the budget adjustments applied to them.
func RenderAbolishment(adjustments []model.BudgetAdjustment, meta Meta) (subject, body string, err error) {
	data := struct {
		Meta
		Adjustments []model.BudgetAdjustment
	}{Meta: meta, Adjustments: adjustments}

	body, err = execute("abolishment.html", meta, data)
	if err != nil {
		return "", "", err
	}
	return AbolishmentSubject, body, nil
}

// Notification is the data a subscription notification is rendered with.
// Each template reads the fields it needs. Summary is nil when the
// subscription has no summary yet.
type Notification struct {
	SubscriptionID string
	Name           string
	Summary        *model.SubscriptionSummary

	Days       int
	Percentage string
	Reason     string
	AlwaysOn   bool

	Approval   *model.Approval
	Allocation *model.Allocation

	OldStatus    *model.SubscriptionStatus
	NewStatus    *model.SubscriptionStatus
	AddedRoles   []model.RoleAssignment
	RemovedRoles []model.RoleAssignment
}

// RenderNotification renders one of the subscription notification templates.
func RenderNotification(name string, n Notification, meta Meta) (string, error) {
	if templates.Lookup(name) == nil {
		return "", fmt.Errorf("render notification: unknown template %q", name)
	}
	data := struct {
		Meta
		Notification
	}{Meta: meta, Notification: n}
	return execute(name, meta, data)
}

func execute(name string, meta Meta, data any) (string, error) {
	t, err := templates.Clone()
	if err != nil {
		return "", fmt.Errorf("clone templates: %w", err)
	}
	t.Funcs(template.FuncMap{"link": subscriptionLink(meta.WebsiteHostname)})

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// subscriptionLink returns a template func rendering a subscription id,
// linked to its details page when the website hostname is known.
func subscriptionLink(hostname string) func(string) template.HTML {
	return func(id string) template.HTML {
		escaped := template.HTMLEscapeString(id)
		if hostname == "" {
			return template.HTML(escaped)
		}
		href := template.HTMLEscapeString("https://" + strings.TrimSuffix(hostname, "/") + "/details/" + id)
		return template.HTML(`<a href="` + href + `">` + escaped + `</a>`)
	}
}

// formatMoney renders an amount with two decimal places, rounding half to even.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02")
	}
	return ""
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func formatState(s model.SubscriptionState) string {
	if s == "" {
		return "Unknown"
	}
	return string(s)
}

func formatName(s summary.Status) string {
	if !s.Known || s.Name == "" {
		return "(unknown)"
	}
	return s.Name
}

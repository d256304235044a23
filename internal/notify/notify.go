// Package notify emails subscription owners about changes to their
// subscriptions and keeps the log of what was sent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/config"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/model"
)

// UndeliverablePrefix starts the subject of a notification that went to the
// admins because the subscription has nobody to notify.
const UndeliverablePrefix = "Undeliverable: "

// Summaries reads subscription summaries. *core.SubscriptionService satisfies
// this interface.
type Summaries interface {
	GetByID(ctx context.Context, id string) (*model.SubscriptionSummary, error)
	List(ctx context.Context) ([]model.SubscriptionSummary, error)
}

// Statuses reads the latest status of a subscription. *core.StatusService
// satisfies this interface.
type Statuses interface {
	Latest(ctx context.Context, id string) (*model.SubscriptionStatus, error)
}

// Emails is the notification log. *core.EmailService satisfies this
// interface.
type Emails interface {
	Record(ctx context.Context, e *model.Email) error
	LastSent(ctx context.Context, subID string, types ...string) (*time.Time, error)
}

// Deliverer sends a rendered message. *mailer.Outbox satisfies this interface.
type Deliverer interface {
	Deliver(ctx context.Context, msg mailer.Message) (mailer.Result, error)
}

// Config selects who is notified.
type Config struct {
	Meta mailer.Meta
	// NotifiableRoles are the role names whose holders receive notifications.
	NotifiableRoles []string
	// RolesFilter are the role names whose changes trigger a status email.
	RolesFilter []string
	// Admins receive the notifications of subscriptions nobody else can.
	Admins    []string
	Whitelist core.Whitelist
}

// ConfigFrom reads the notification settings from the app config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Meta:            mailer.Meta{Organisation: cfg.Organisation, WebsiteHostname: cfg.WebsiteHostname},
		NotifiableRoles: cfg.NotifiableRoles,
		RolesFilter:     cfg.RolesFilter,
		Admins:          cfg.AdminEmailRecipients,
		Whitelist:       core.NewWhitelist(cfg.SubscriptionWhitelist, cfg.IgnoreWhitelist),
	}
}

// Notifier sends the subscription notifications.
type Notifier struct {
	summaries Summaries
	statuses  Statuses
	emails    Emails
	outbox    Deliverer
	cfg       Config
	now       func() time.Time
	logger    zerolog.Logger
}

func New(summaries Summaries, statuses Statuses, emails Emails, outbox Deliverer, cfg Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		summaries: summaries,
		statuses:  statuses,
		emails:    emails,
		outbox:    outbox,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With().Str("component", "notifier").Logger(),
	}
}

// notification is one email about one subscription.
type notification struct {
	subscriptionID string
	emailType      string
	subject        string
	template       string
	extraInfo      *string
	data           mailer.Notification
}

// send renders and delivers n to the owners of the subscription and logs it.
// Subscriptions outside the whitelist are skipped.
func (s *Notifier) send(ctx context.Context, n notification) error {
	id := n.subscriptionID
	if !s.cfg.Whitelist.Allows(id) {
		s.logger.Debug().Str("subscription_id", id).Str("type", n.emailType).Msg("subscription not whitelisted, not notifying")
		return nil
	}

	sum, err := s.summaries.GetByID(ctx, id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	n.data.SubscriptionID = id
	n.data.Summary = sum
	n.data.Name = id
	if sum != nil && sum.Name != "" {
		n.data.Name = sum.Name
	}

	status, err := s.statuses.Latest(ctx, id)
	if err != nil {
		return err
	}
	to := recipients(status, id, s.cfg.NotifiableRoles)
	subject := n.subject
	if len(to) == 0 {
		s.logger.Info().Str("subscription_id", id).Msg("no recipients for subscription, mailing admins instead")
		to = s.cfg.Admins
		subject = UndeliverablePrefix + subject
	}
	subject += " " + n.data.Name

	body, err := mailer.RenderNotification(n.template, n.data, s.cfg.Meta)
	if err != nil {
		return err
	}
	delivery, err := s.outbox.Deliver(ctx, mailer.Message{
		Type:           n.emailType,
		SubscriptionID: &id,
		Subject:        subject,
		To:             to,
		HTML:           body,
	})
	if err != nil {
		return fmt.Errorf("deliver %s email for %s: %w", n.emailType, id, err)
	}
	if !delivery.Sent {
		return nil
	}
	return s.emails.Record(ctx, &model.Email{
		SubscriptionID: &id,
		Status:         delivery.Status,
		Type:           n.emailType,
		Recipients:     mailer.JoinRecipients(to),
		ExtraInfo:      n.extraInfo,
	})
}

// recipients returns the mail addresses of the holders of a notifiable role
// on the subscription.
func recipients(status *model.SubscriptionStatus, id string, roles []string) []string {
	if status == nil {
		return nil
	}
	var out []string
	for _, ra := range status.RoleAssignments {
		if !slices.Contains(roles, ra.RoleName) || ra.Mail == nil || *ra.Mail == "" {
			continue
		}
		if ra.Scope == nil || !strings.Contains(strings.ToLower(*ra.Scope), strings.ToLower(id)) {
			continue
		}
		out = append(out, *ra.Mail)
	}
	return out
}

// Approved tells the owners about a new approval.
func (s *Notifier) Approved(ctx context.Context, a *model.Approval) error {
	return s.send(ctx, notification{
		subscriptionID: a.SubscriptionID,
		emailType:      model.EmailTypeApproval,
		subject:        "New approval for your Azure subscription:",
		template:       mailer.TemplateNewApproval,
		data:           mailer.Notification{Approval: a},
	})
}

// Allocated tells the owners about a new allocation.
func (s *Notifier) Allocated(ctx context.Context, a *model.Allocation) error {
	return s.send(ctx, notification{
		subscriptionID: a.SubscriptionID,
		emailType:      model.EmailTypeAllocation,
		subject:        "New allocation for your Azure subscription:",
		template:       mailer.TemplateNewAllocation,
		data:           mailer.Notification{Allocation: a},
	})
}

// PersistenceChanged tells the owners their subscription was made always on,
// or no longer is.
func (s *Notifier) PersistenceChanged(ctx context.Context, p *model.Persistence) error {
	return s.send(ctx, notification{
		subscriptionID: p.SubscriptionID,
		emailType:      model.EmailTypePersistence,
		subject:        "Persistence change for your Azure subscription:",
		template:       mailer.TemplatePersistence,
		data:           mailer.Notification{AlwaysOn: p.AlwaysOn},
	})
}

// DesiredStatesChanged warns owners before the controller turns their
// subscription off or on. A subscription that was already off is not warned
// again when only the reason changes.
func (s *Notifier) DesiredStatesChanged(ctx context.Context, changes []core.DesiredStateChange) error {
	var errs []error
	for _, c := range changes {
		var n notification
		switch {
		case c.Active:
			n = notification{
				subscriptionID: c.SubscriptionID,
				emailType:      model.EmailTypeEnabled,
				subject:        "We will turn on your Azure subscription:",
				template:       mailer.TemplateWillBeEnabled,
			}
		case c.PreviousReason == nil && c.Reason != nil:
			reason := string(*c.Reason)
			n = notification{
				subscriptionID: c.SubscriptionID,
				emailType:      model.EmailTypeDisabled,
				subject:        "We will turn off your Azure subscription:",
				template:       mailer.TemplateWillBeDisabled,
				extraInfo:      &reason,
				data:           mailer.Notification{Reason: reason},
			}
		default:
			continue
		}
		if err := s.send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

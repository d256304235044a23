package notify

import (
	"context"
	"errors"
	"slices"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/model"
)

// StatusChanged welcomes the owners of new subscriptions and tells the owners
// of known ones about name and role changes. Only roles in RolesFilter count
// as a change.
func (s *Notifier) StatusChanged(ctx context.Context, changes []core.StatusChange) error {
	var errs []error
	for _, c := range changes {
		if err := s.statusChanged(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Notifier) statusChanged(ctx context.Context, c core.StatusChange) error {
	id := c.Current.SubscriptionID
	welcomed, err := s.emails.LastSent(ctx, id, model.EmailTypeWelcome)
	if err != nil {
		return err
	}
	if welcomed == nil {
		return s.send(ctx, notification{
			subscriptionID: id,
			emailType:      model.EmailTypeWelcome,
			subject:        "You have a new subscription on the Azure platform:",
			template:       mailer.TemplateWelcome,
		})
	}
	if c.Previous == nil {
		return nil
	}

	oldRoles := filterRoles(c.Previous.RoleAssignments, s.cfg.RolesFilter)
	newRoles := filterRoles(c.Current.RoleAssignments, s.cfg.RolesFilter)
	if c.Previous.DisplayName == c.Current.DisplayName && c.Previous.State == c.Current.State &&
		slices.Equal(oldRoles, newRoles) {
		return nil
	}

	if c.Previous.DisplayName != c.Current.DisplayName {
		prev, cur := *c.Previous, c.Current
		if err := s.send(ctx, notification{
			subscriptionID: id,
			emailType:      model.EmailTypeStatus,
			subject:        "There has been a status change for your Azure subscription:",
			template:       mailer.TemplateStatusChange,
			data:           mailer.Notification{OldStatus: &prev, NewStatus: &cur},
		}); err != nil {
			return err
		}
	}

	added, removed := roleDiff(c.Previous.RoleAssignments, c.Current.RoleAssignments)
	if len(added)+len(removed) == 0 {
		return nil
	}
	n := notification{
		subscriptionID: id,
		emailType:      model.EmailTypeRoles,
		subject:        "The user roles have changed for your Azure subscription:",
		template:       mailer.TemplateRolesChange,
	}
	n.data.AddedRoles = added
	n.data.RemovedRoles = removed
	return s.send(ctx, n)
}

// roleKey is the part of a role assignment shown to owners.
type roleKey struct {
	RoleName    string
	DisplayName string
	Mail        string
}

func keyOf(ra model.RoleAssignment) roleKey {
	k := roleKey{RoleName: ra.RoleName, DisplayName: ra.DisplayName}
	if ra.Mail != nil {
		k.Mail = *ra.Mail
	}
	return k
}

func filterRoles(roles []model.RoleAssignment, names []string) []roleKey {
	var out []roleKey
	for _, ra := range roles {
		if slices.Contains(names, ra.RoleName) {
			out = append(out, keyOf(ra))
		}
	}
	return out
}

// roleDiff compares two role assignment lists, ignoring principal, role
// definition and scope.
func roleDiff(before, after []model.RoleAssignment) (added, removed []model.RoleAssignment) {
	in := func(list []model.RoleAssignment, ra model.RoleAssignment) bool {
		k := keyOf(ra)
		return slices.ContainsFunc(list, func(x model.RoleAssignment) bool { return keyOf(x) == k })
	}
	for _, ra := range after {
		if !in(before, ra) {
			added = append(added, ra)
		}
	}
	for _, ra := range before {
		if !in(after, ra) {
			removed = append(removed, ra)
		}
	}
	return added, removed
}

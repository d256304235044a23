package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

var allowAll = core.NewWhitelist(nil, true)

func TestNotifier_Approved(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")

	err := f.notifier.Approved(context.Background(), &model.Approval{
		SubscriptionID: subA, Amount: dec("100"), Currency: "GBP",
		DateFrom: date("2024-06-15"), DateTo: date("2024-12-31"),
	})
	require.NoError(t, err)

	require.Len(t, f.outbox.sent, 1)
	msg := f.outbox.sent[0]
	assert.Equal(t, "New approval for your Azure subscription: lab", msg.Subject)
	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Equal(t, model.EmailTypeApproval, msg.Type)
	assert.Equal(t, subA, *msg.SubscriptionID)
	assert.Contains(t, msg.HTML, "approval of 100.00 GBP")

	require.Len(t, f.emails.recorded, 1)
	rec := f.emails.recorded[0]
	assert.Equal(t, subA, *rec.SubscriptionID)
	assert.Equal(t, model.EmailTypeApproval, rec.Type)
	assert.Equal(t, "ada@example.com", rec.Recipients)
	assert.Equal(t, 250, rec.Status)
	assert.Nil(t, rec.ExtraInfo)
}

func TestNotifier_Allocated_NoRecipientsGoesToAdmins(t *testing.T) {
	f := newFixture(allowAll)

	err := f.notifier.Allocated(context.Background(), &model.Allocation{SubscriptionID: subA, Amount: dec("10"), Currency: "GBP"})
	require.NoError(t, err)

	require.Len(t, f.outbox.sent, 1)
	msg := f.outbox.sent[0]
	assert.Equal(t, "Undeliverable: New allocation for your Azure subscription: "+subA, msg.Subject)
	assert.Equal(t, []string{"admin@example.com"}, msg.To)
	assert.Equal(t, "admin@example.com", f.emails.recorded[0].Recipients)
}

func TestNotifier_Recipients(t *testing.T) {
	reader := contributor(subA, "Rea", "rea@example.com")
	reader.RoleName = "Reader"
	otherScope := contributor(subB, "Oth", "oth@example.com")
	noMail := contributor(subA, "Nom", "")

	status := &model.SubscriptionStatus{RoleAssignments: []model.RoleAssignment{
		contributor(subA, "Ada", "ada@example.com"), reader, otherScope, noMail,
	}}
	assert.Equal(t, []string{"ada@example.com"}, recipients(status, subA, []string{"Contributor"}))
	assert.Equal(t, []string{"ada@example.com", "rea@example.com"}, recipients(status, subA, []string{"Contributor", "Reader"}))
	assert.Nil(t, recipients(nil, subA, []string{"Contributor"}))
}

func TestNotifier_NotWhitelisted(t *testing.T) {
	f := newFixture(core.NewWhitelist([]string{subB}, false))
	f.owned(subA, "lab", "ada@example.com")

	require.NoError(t, f.notifier.PersistenceChanged(context.Background(), &model.Persistence{SubscriptionID: subA, AlwaysOn: true}))
	assert.Empty(t, f.outbox.sent)
	assert.Empty(t, f.emails.recorded)
}

func TestNotifier_UnsentIsNotRecorded(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.outbox.unsent = true

	require.NoError(t, f.notifier.PersistenceChanged(context.Background(), &model.Persistence{SubscriptionID: subA}))
	assert.Len(t, f.outbox.sent, 1)
	assert.Empty(t, f.emails.recorded)
}

func TestNotifier_DeliverError(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.outbox.err = errors.New("421 try later")

	err := f.notifier.PersistenceChanged(context.Background(), &model.Persistence{SubscriptionID: subA})
	assert.ErrorContains(t, err, "421 try later")
	assert.Empty(t, f.emails.recorded)
}

func TestNotifier_DesiredStatesChanged(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.owned(subB, "dev", "bob@example.com")

	over := model.BillingOverBudget
	expired := model.BillingExpired
	err := f.notifier.DesiredStatesChanged(context.Background(), []core.DesiredStateChange{
		{SubscriptionID: subA, Active: false, Reason: &over},
		{SubscriptionID: subB, Active: false, Reason: &expired, PreviousReason: &over},
		{SubscriptionID: subB, Active: true, PreviousReason: &expired},
	})
	require.NoError(t, err)

	require.Len(t, f.outbox.sent, 2)
	assert.Equal(t, "We will turn off your Azure subscription: lab", f.outbox.sent[0].Subject)
	assert.Contains(t, f.outbox.sent[0].HTML, "more than its allocated budget")
	assert.Equal(t, "OVER_BUDGET", *f.emails.recorded[0].ExtraInfo)
	assert.Equal(t, model.EmailTypeDisabled, f.emails.recorded[0].Type)

	assert.Equal(t, "We will turn on your Azure subscription: dev", f.outbox.sent[1].Subject)
	assert.Equal(t, model.EmailTypeEnabled, f.emails.recorded[1].Type)
}

func TestNotifier_StatusChanged_Welcome(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")

	err := f.notifier.StatusChanged(context.Background(), []core.StatusChange{{Current: *f.statuses[subA]}})
	require.NoError(t, err)

	require.Len(t, f.outbox.sent, 1)
	assert.Equal(t, "You have a new subscription on the Azure platform: lab", f.outbox.sent[0].Subject)
	assert.Equal(t, model.EmailTypeWelcome, f.emails.recorded[0].Type)
	assert.Equal(t, []lastSentCall{{id: subA, types: []string{model.EmailTypeWelcome}}}, f.emails.calls)
}

func TestNotifier_StatusChanged_NameAndRoles(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "new lab", "ada@example.com")
	f.emails.last[subA] = ptr(date("2024-01-01"))

	prev := model.SubscriptionStatus{
		SubscriptionID:  subA,
		DisplayName:     "old lab",
		State:           model.StateEnabled,
		RoleAssignments: []model.RoleAssignment{contributor(subA, "Bob", "bob@example.com")},
	}
	err := f.notifier.StatusChanged(context.Background(), []core.StatusChange{{Previous: &prev, Current: *f.statuses[subA]}})
	require.NoError(t, err)

	require.Len(t, f.outbox.sent, 2)
	assert.Equal(t, "There has been a status change for your Azure subscription: new lab", f.outbox.sent[0].Subject)
	assert.Contains(t, f.outbox.sent[0].HTML, "old lab")
	assert.Equal(t, "The user roles have changed for your Azure subscription: new lab", f.outbox.sent[1].Subject)
	assert.Contains(t, f.outbox.sent[1].HTML, "Ada (Contributor)")
	assert.Contains(t, f.outbox.sent[1].HTML, "Bob (Contributor)")
	assert.Equal(t, model.EmailTypeStatus, f.emails.recorded[0].Type)
	assert.Equal(t, model.EmailTypeRoles, f.emails.recorded[1].Type)
}

func TestNotifier_StatusChanged_FilteredRolesOnly(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.emails.last[subA] = ptr(date("2024-01-01"))

	reader := contributor(subA, "Rea", "rea@example.com")
	reader.RoleName = "Reader"
	cur := *f.statuses[subA]
	prev := cur
	prev.RoleAssignments = append([]model.RoleAssignment{reader}, cur.RoleAssignments...)

	err := f.notifier.StatusChanged(context.Background(), []core.StatusChange{{Previous: &prev, Current: cur}})
	require.NoError(t, err)
	assert.Empty(t, f.outbox.sent)
}

func TestNotifier_StatusChanged_PrincipalChangeIgnored(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.emails.last[subA] = ptr(date("2024-01-01"))

	cur := *f.statuses[subA]
	prev := cur
	moved := contributor(subA, "Ada", "ada@example.com")
	moved.PrincipalID = "p-other"
	moved.RoleDefinitionID = "rd-2"
	prev.RoleAssignments = []model.RoleAssignment{moved}
	prev.State = model.StateDisabled

	err := f.notifier.StatusChanged(context.Background(), []core.StatusChange{{Previous: &prev, Current: cur}})
	require.NoError(t, err)
	assert.Empty(t, f.outbox.sent)
}

func TestShouldSendExpiry(t *testing.T) {
	today := date("2024-06-15")
	tests := []struct {
		name   string
		expiry string
		last   *time.Time
		state  model.SubscriptionState
		want   bool
	}{
		{"disabled", "2024-06-20", nil, model.StateDisabled, false},
		{"far away", "2024-08-01", nil, model.StateEnabled, false},
		{"within 30 days, never warned", "2024-07-10", nil, model.StateEnabled, true},
		{"within 30 days, warned in period", "2024-07-10", ptr(date("2024-06-12")), model.StateEnabled, false},
		{"within 30 days, warned before period", "2024-07-10", ptr(date("2024-06-09")), model.StateEnabled, true},
		{"within 7 days, warned before period", "2024-06-20", ptr(date("2024-06-01")), model.StatePastDue, true},
		{"within 7 days, warned in period", "2024-06-20", ptr(date("2024-06-14")), model.StateEnabled, false},
		{"tomorrow, warned before period", "2024-06-16", ptr(date("2024-06-14")), model.StateEnabled, true},
		{"today, warned today", "2024-06-15", ptr(date("2024-06-15")), model.StateEnabled, false},
		{"expired, warned yesterday", "2024-06-10", ptr(date("2024-06-14")), model.StateEnabled, true},
		{"expired, warned today", "2024-06-10", ptr(today.Add(8 * time.Hour)), model.StateEnabled, false},
		{"expired, past due", "2024-06-10", nil, model.StatePastDue, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldSendExpiry(date(tt.expiry), tt.last, tt.state, today))
		})
	}
}

func TestNotifier_CheckExpiry(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.owned(subB, "dev", "bob@example.com")
	f.summaries.list = []model.SubscriptionSummary{
		{SubscriptionID: subA, State: model.StateEnabled, ApprovedTo: ptr(date("2024-06-22"))},
		{SubscriptionID: subB, State: model.StateEnabled, ApprovedTo: ptr(date("2024-09-01"))},
	}

	sent, err := f.notifier.CheckExpiry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.outbox.sent, 1)
	assert.Equal(t, "7 days until the expiry of your Azure subscription: lab", f.outbox.sent[0].Subject)
	assert.Contains(t, f.outbox.sent[0].HTML, "expires in 7 days")
	assert.Equal(t, model.EmailTypeTimeBased, f.emails.recorded[0].Type)
	assert.Equal(t, "7", *f.emails.recorded[0].ExtraInfo)
	assert.Equal(t, []lastSentCall{{id: subA, types: []string{model.EmailTypeTimeBased}}}, f.emails.calls)
}

func TestNotifier_CheckOverBudget(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.owned(subB, "dev", "bob@example.com")
	f.summaries.list = []model.SubscriptionSummary{
		{SubscriptionID: subA, State: model.StateEnabled, Allocated: dec("80"), TotalCost: dec("85.5")},
		{SubscriptionID: subB, State: model.StatePastDue, Allocated: dec("0"), TotalCost: dec("3")},
		{SubscriptionID: "00000000-0000-0000-0000-00000000000c", State: model.StateDisabled, Allocated: dec("1"), TotalCost: dec("3")},
		{SubscriptionID: "00000000-0000-0000-0000-00000000000d", State: model.StateEnabled, Allocated: dec("10"), TotalCost: dec("3")},
	}
	f.emails.last[subB] = ptr(date("2024-06-15").Add(time.Hour))

	sent, err := f.notifier.CheckOverBudget(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.outbox.sent, 1)
	assert.Equal(t, "106.88% of allocated budget used by your Azure subscription: lab", f.outbox.sent[0].Subject)
	assert.Equal(t, model.EmailTypeOverBudget, f.emails.recorded[0].Type)
	assert.Equal(t, "106.88", *f.emails.recorded[0].ExtraInfo)
	assert.Equal(t, []string{model.EmailTypeOverBudget, model.EmailTypeTimeBased, model.EmailTypeUsageAlert}, f.emails.calls[0].types)
}

func TestPercentageUsed(t *testing.T) {
	assert.Equal(t, "inf", percentageUsed(dec("3"), dec("0")))
	assert.Equal(t, "150", percentageUsed(dec("15"), dec("10")))
	assert.Equal(t, "33.33", percentageUsed(dec("1"), dec("3")))
}

func TestNotifier_UsageChanged(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")
	f.owned(subB, "dev", "bob@example.com")

	before := []model.SubscriptionSummary{
		{SubscriptionID: subA, Allocated: dec("100"), TotalCost: dec("40")},
		{SubscriptionID: subB, Allocated: dec("100"), TotalCost: dec("60")},
	}
	after := []model.SubscriptionSummary{
		{SubscriptionID: subA, Allocated: dec("100"), TotalCost: dec("91")},
		{SubscriptionID: subB, Allocated: dec("100"), TotalCost: dec("70")},
	}

	require.NoError(t, f.notifier.UsageChanged(context.Background(), before, after))

	require.Len(t, f.outbox.sent, 1)
	assert.Equal(t, "90.0% of allocated budget used by your Azure subscription: lab", f.outbox.sent[0].Subject)
	assert.Equal(t, model.EmailTypeUsageAlert, f.emails.recorded[0].Type)
	assert.Equal(t, "90.0", *f.emails.recorded[0].ExtraInfo)
}

func TestNotifier_UsageChanged_NoAllocation(t *testing.T) {
	f := newFixture(allowAll)
	f.owned(subA, "lab", "ada@example.com")

	after := []model.SubscriptionSummary{{SubscriptionID: subA, Allocated: dec("0"), TotalCost: dec("1")}}
	require.NoError(t, f.notifier.UsageChanged(context.Background(), nil, after))

	assert.Len(t, f.outbox.sent, len(usageThresholds))
}

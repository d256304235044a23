package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/model"
)

const (
	subA = "00000000-0000-0000-0000-00000000000a"
	subB = "00000000-0000-0000-0000-00000000000b"
)

type fakeSummaries struct {
	byID map[string]model.SubscriptionSummary
	list []model.SubscriptionSummary
	err  error
}

func (f *fakeSummaries) GetByID(_ context.Context, id string) (*model.SubscriptionSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	sum, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sum, nil
}

func (f *fakeSummaries) List(context.Context) ([]model.SubscriptionSummary, error) {
	return f.list, f.err
}

type fakeStatuses map[string]*model.SubscriptionStatus

func (f fakeStatuses) Latest(_ context.Context, id string) (*model.SubscriptionStatus, error) {
	return f[id], nil
}

type lastSentCall struct {
	id    string
	types []string
}

type fakeEmails struct {
	recorded []*model.Email
	last     map[string]*time.Time
	calls    []lastSentCall
	err      error
}

func (f *fakeEmails) Record(_ context.Context, e *model.Email) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, e)
	return nil
}

func (f *fakeEmails) LastSent(_ context.Context, id string, types ...string) (*time.Time, error) {
	f.calls = append(f.calls, lastSentCall{id: id, types: types})
	return f.last[id], nil
}

type fakeOutbox struct {
	sent   []mailer.Message
	unsent bool
	err    error
}

func (f *fakeOutbox) Deliver(_ context.Context, msg mailer.Message) (mailer.Result, error) {
	if f.err != nil {
		return mailer.Result{}, f.err
	}
	f.sent = append(f.sent, msg)
	if f.unsent {
		return mailer.Result{}, nil
	}
	return mailer.Result{Sent: true, Status: mailer.StatusSent}, nil
}

type fixture struct {
	summaries *fakeSummaries
	statuses  fakeStatuses
	emails    *fakeEmails
	outbox    *fakeOutbox
	notifier  *Notifier
}

func newFixture(whitelist core.Whitelist) *fixture {
	f := &fixture{
		summaries: &fakeSummaries{byID: map[string]model.SubscriptionSummary{}},
		statuses:  fakeStatuses{},
		emails:    &fakeEmails{last: map[string]*time.Time{}},
		outbox:    &fakeOutbox{},
	}
	f.notifier = New(f.summaries, f.statuses, f.emails, f.outbox, Config{
		Meta:            mailer.Meta{Organisation: "ACME"},
		NotifiableRoles: []string{"Contributor"},
		RolesFilter:     []string{"Contributor"},
		Admins:          []string{"admin@example.com"},
		Whitelist:       whitelist,
	}, zerolog.Nop())
	f.notifier.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	return f
}

// owned registers a named subscription with one contributor.
func (f *fixture) owned(id, name, mail string) {
	f.summaries.byID[id] = model.SubscriptionSummary{SubscriptionID: id, Name: name, State: model.StateEnabled}
	f.statuses[id] = &model.SubscriptionStatus{
		SubscriptionID:  id,
		DisplayName:     name,
		State:           model.StateEnabled,
		RoleAssignments: []model.RoleAssignment{contributor(id, "Ada", mail)},
	}
}

func contributor(id, name, mail string) model.RoleAssignment {
	scope := "/subscriptions/" + id
	return model.RoleAssignment{
		RoleDefinitionID: "rd-1",
		RoleName:         "Contributor",
		PrincipalID:      "p-" + name,
		DisplayName:      name,
		Mail:             &mail,
		Scope:            &scope,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

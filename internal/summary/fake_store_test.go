package summary

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

// memStore is an in-memory Store. failOn names a Reader method that returns an error.
type memStore struct {
	subscriptions []model.Subscription
	details       []model.SubscriptionDetail
	approvals     []model.Approval
	allocations   []model.Allocation
	usage         []model.Usage
	emails        []model.Email
	finance       []model.FinanceEntry

	failOn    string
	snapshots int
}

func (m *memStore) Snapshot(ctx context.Context, fn func(Reader) error) error {
	m.snapshots++
	return fn(m)
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return fmt.Errorf("%s: connection reset by peer", method)
	}
	return nil
}

func wanted(ids []string, id string) bool {
	return ids == nil || slices.Contains(ids, id)
}

func (m *memStore) Subscriptions(_ context.Context, r Range) ([]model.Subscription, error) {
	if err := m.fail("Subscriptions"); err != nil {
		return nil, err
	}
	var out []model.Subscription
	for _, s := range m.subscriptions {
		if r.Contains(s.TimeCreated) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Details(_ context.Context, ids []string, r Range) ([]model.SubscriptionDetail, error) {
	if err := m.fail("Details"); err != nil {
		return nil, err
	}
	var out []model.SubscriptionDetail
	for _, d := range m.details {
		if wanted(ids, d.SubscriptionID) && r.Contains(d.TimeCreated) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) Approvals(_ context.Context, ids []string, r Range) ([]model.Approval, error) {
	if err := m.fail("Approvals"); err != nil {
		return nil, err
	}
	var out []model.Approval
	for _, a := range m.approvals {
		if wanted(ids, a.SubscriptionID) && r.Contains(a.TimeCreated) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Allocations(_ context.Context, ids []string, r Range) ([]model.Allocation, error) {
	if err := m.fail("Allocations"); err != nil {
		return nil, err
	}
	var out []model.Allocation
	for _, a := range m.allocations {
		if wanted(ids, a.SubscriptionID) && r.Contains(a.TimeCreated) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) UsageTotals(_ context.Context, ids []string, asOf time.Time) (map[string]decimal.Decimal, error) {
	if err := m.fail("UsageTotals"); err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	for _, u := range m.usage {
		if wanted(ids, u.SubscriptionID) && !u.Date.After(asOf) {
			out[u.SubscriptionID] = out[u.SubscriptionID].Add(u.TotalCost)
		}
	}
	return out, nil
}

func (m *memStore) Notifications(_ context.Context, r Range) ([]model.Email, error) {
	if err := m.fail("Notifications"); err != nil {
		return nil, err
	}
	var out []model.Email
	for _, e := range m.emails {
		if e.SubscriptionID != nil && e.Type != model.EmailTypeSummary && r.Contains(e.TimeCreated) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Finance(_ context.Context, from, to time.Time) ([]model.FinanceEntry, error) {
	if err := m.fail("Finance"); err != nil {
		return nil, err
	}
	// Deliberately returns everything: the computer must do its own overlap filtering.
	return slices.Clone(m.finance), nil
}

// ---------- fixtures ----------

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store  *memStore
	nextID int64
}

func newFixture() *fixture {
	return &fixture{store: &memStore{}}
}

func (f *fixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fixture) subscription(id, created string) {
	f.store.subscriptions = append(f.store.subscriptions, model.Subscription{ID: id, TimeCreated: ts(created)})
}

func (f *fixture) status(sub, name string, state model.SubscriptionState, at string) {
	f.store.details = append(f.store.details, model.SubscriptionDetail{
		ID: f.id(), SubscriptionID: sub, DisplayName: name, State: state, TimeCreated: ts(at),
	})
}

func (f *fixture) approval(sub, amount, at string) {
	f.store.approvals = append(f.store.approvals, model.Approval{
		ID: f.id(), SubscriptionID: sub, Ticket: "T-" + amount, Amount: dec(amount), Currency: model.DefaultCurrency,
		DateFrom: day("2024-01-01"), DateTo: day("2024-12-31"), TimeCreated: ts(at),
	})
}

func (f *fixture) allocation(sub, amount, at string) {
	f.store.allocations = append(f.store.allocations, model.Allocation{
		ID: f.id(), SubscriptionID: sub, Ticket: "A-" + amount, Amount: dec(amount), Currency: model.DefaultCurrency,
		TimeCreated: ts(at),
	})
}

func (f *fixture) usage(sub, total, date string) {
	f.store.usage = append(f.store.usage, model.Usage{
		ID: fmt.Sprintf("u-%d", f.id()), SubscriptionID: sub, Date: day(date), TotalCost: dec(total),
	})
}

func (f *fixture) email(sub *string, typ string, extra *string, at string) {
	f.store.emails = append(f.store.emails, model.Email{
		ID: f.id(), SubscriptionID: sub, Type: typ, ExtraInfo: extra, Recipients: "owner@example.com", TimeCreated: ts(at),
	})
}

func (f *fixture) financeEntry(sub, amount, from, to string) {
	f.store.finance = append(f.store.finance, model.FinanceEntry{
		ID: f.id(), SubscriptionID: sub, Ticket: "F-" + amount, Amount: dec(amount), FinanceCode: "FC-1",
		DateFrom: day(from), DateTo: day(to), TimeCreated: ts("2023-06-01T00:00:00Z"),
	})
}

var january = Window{Start: ts("2024-01-01T00:00:00Z"), End: ts("2024-02-01T00:00:00Z")}

package summary

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

// Computer builds summary reports. It only reads, so computing the same
// window twice over unchanged data yields identical reports.
type Computer struct {
	store Store
}

func NewComputer(store Store) *Computer {
	return &Computer{store: store}
}

// Compute reports what changed in w. Either a complete report or an *Error is
// returned, never both.
func (c *Computer) Compute(ctx context.Context, w Window) (*Report, error) {
	const op = "compute summary"

	if !w.Start.Before(w.End) {
		return nil, configError(op, "window start %s is not before end %s",
			w.Start.Format(time.RFC3339Nano), w.End.Format(time.RFC3339Nano))
	}

	var report *Report
	err := c.store.Snapshot(ctx, func(rd Reader) error {
		r, err := compute(ctx, rd, w)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, dataError(op, err)
	}
	return report, nil
}

func compute(ctx context.Context, rd Reader, w Window) (*Report, error) {
	span := w.Span()
	asOfEnd := AsOf(w.End)

	newSubs, err := rd.Subscriptions(ctx, span)
	if err != nil {
		return nil, err
	}
	windowDetails, err := rd.Details(ctx, nil, span)
	if err != nil {
		return nil, err
	}
	windowApprovals, err := rd.Approvals(ctx, nil, span)
	if err != nil {
		return nil, err
	}
	windowAllocations, err := rd.Allocations(ctx, nil, span)
	if err != nil {
		return nil, err
	}
	notifications, err := rd.Notifications(ctx, span)
	if err != nil {
		return nil, err
	}
	candidates, err := rd.Finance(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	var finance []model.FinanceEntry
	for _, e := range candidates {
		if financeOverlaps(e, w) {
			finance = append(finance, e)
		}
	}

	newIDs := ids(newSubs, func(s model.Subscription) string { return s.ID })
	changedIDs := ids(windowDetails, detailSubscription)
	referenced := unionIDs(
		newIDs,
		changedIDs,
		ids(windowApprovals, func(a model.Approval) string { return a.SubscriptionID }),
		ids(windowAllocations, func(a model.Allocation) string { return a.SubscriptionID }),
		ids(notifications, func(e model.Email) string { return *e.SubscriptionID }),
		ids(finance, func(e model.FinanceEntry) string { return e.SubscriptionID }),
	)

	history := map[string][]model.SubscriptionDetail{}
	if len(referenced) > 0 {
		rows, err := rd.Details(ctx, referenced, asOfEnd)
		if err != nil {
			return nil, err
		}
		history = groupBy(rows, detailSubscription)
	}
	if err := checkHistory(history); err != nil {
		return nil, err
	}

	report := &Report{
		Window:           w,
		NumNotifications: len(notifications),
		NumFinance:       len(finance),
	}

	report.NewSubscriptions, err = newSubscriptions(ctx, rd, w, newSubs, history)
	if err != nil {
		return nil, err
	}
	report.StatusChanges = statusChanges(w, unionIDs(changedIDs), history)
	report.NewApprovalsAndAllocations = budgetChanges(w, windowApprovals, windowAllocations, history)
	report.NotificationsSent = notificationGroups(w, notifications, history)
	report.Finance = financeGroups(w, finance, history)

	return report, nil
}

func newSubscriptions(ctx context.Context, rd Reader, w Window, subs []model.Subscription, history map[string][]model.SubscriptionDetail) ([]NewSubscription, error) {
	out := []NewSubscription{}
	if len(subs) == 0 {
		return out, nil
	}

	subIDs := unionIDs(ids(subs, func(s model.Subscription) string { return s.ID }))
	approvals, err := rd.Approvals(ctx, subIDs, AsOf(w.End))
	if err != nil {
		return nil, err
	}
	allocations, err := rd.Allocations(ctx, subIDs, AsOf(w.End))
	if err != nil {
		return nil, err
	}
	usage, err := rd.UsageTotals(ctx, subIDs, w.End)
	if err != nil {
		return nil, err
	}

	approvalsBySub := groupBy(approvals, func(a model.Approval) string { return a.SubscriptionID })
	allocationsBySub := groupBy(allocations, func(a model.Allocation) string { return a.SubscriptionID })

	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		approved := sum(approvalsBySub[s.ID], func(a model.Approval) decimal.Decimal { return a.Amount })
		allocated := sum(allocationsBySub[s.ID], func(a model.Allocation) decimal.Decimal { return a.Amount })
		totalCost, ok := usage[s.ID]
		if !ok {
			totalCost = decimal.Zero
		}
		from, to := approvalPeriod(approvalsBySub[s.ID])

		out = append(out, NewSubscription{
			SubscriptionID: s.ID,
			TimeCreated:    s.TimeCreated,
			Status:         statusAt(history[s.ID], w.End),
			Approved:       approved,
			Allocated:      allocated,
			TotalCost:      totalCost,
			Remaining:      allocated.Sub(totalCost),
			ApprovedFrom:   from,
			ApprovedTo:     to,
		})
	}

	slices.SortFunc(out, func(a, b NewSubscription) int {
		return cmp.Compare(a.SubscriptionID, b.SubscriptionID)
	})
	return out, nil
}

func statusChanges(w Window, changedIDs []string, history map[string][]model.SubscriptionDetail) []StatusChange {
	out := []StatusChange{}
	for _, id := range changedIDs {
		d, ok := DiffLatest(history[id], detailTime, w.Start, w.End)
		if !ok {
			continue
		}

		change := StatusChange{
			SubscriptionID: id,
			NoPriorData:    !d.HasOld,
			DisplayName:    compareField(d.Old.DisplayName, d.New.DisplayName),
			State:          compareField(d.Old.State, d.New.State),
		}
		if change.DisplayName.Changed || change.State.Changed {
			out = append(out, change)
		}
	}
	return out
}

func budgetChanges(w Window, approvals []model.Approval, allocations []model.Allocation, history map[string][]model.SubscriptionDetail) []BudgetChange {
	approvalsBySub := groupBy(approvals, func(a model.Approval) string { return a.SubscriptionID })
	allocationsBySub := groupBy(allocations, func(a model.Allocation) string { return a.SubscriptionID })

	out := []BudgetChange{}
	for _, id := range unionIDs(sortedKeys(approvalsBySub), sortedKeys(allocationsBySub)) {
		subApprovals := approvalsBySub[id]
		subAllocations := allocationsBySub[id]
		if len(subApprovals) == 0 && len(subAllocations) == 0 {
			continue
		}
		out = append(out, BudgetChange{
			SubscriptionID:   id,
			Status:           statusAt(history[id], w.End),
			Approvals:        budgetItems(subApprovals, approvalItem),
			Allocations:      budgetItems(subAllocations, allocationItem),
			ApprovalsTotal:   sum(subApprovals, func(a model.Approval) decimal.Decimal { return a.Amount }),
			AllocationsTotal: sum(subAllocations, func(a model.Allocation) decimal.Decimal { return a.Amount }),
		})
	}
	return out
}

func notificationGroups(w Window, emails []model.Email, history map[string][]model.SubscriptionDetail) []Notifications {
	bySub := groupBy(emails, func(e model.Email) string { return *e.SubscriptionID })

	out := []Notifications{}
	for _, id := range sortedKeys(bySub) {
		items := make([]Notification, 0, len(bySub[id]))
		for _, e := range bySub[id] {
			items = append(items, Notification{ID: e.ID, Type: e.Type, ExtraInfo: e.ExtraInfo, TimeCreated: e.TimeCreated})
		}
		slices.SortFunc(items, func(a, b Notification) int {
			return byTimeThenID(a.TimeCreated, a.ID, b.TimeCreated, b.ID)
		})
		out = append(out, Notifications{
			SubscriptionID: id,
			Name:           statusAt(history[id], w.End).Name,
			Notifications:  items,
		})
	}
	return out
}

func financeGroups(w Window, entries []model.FinanceEntry, history map[string][]model.SubscriptionDetail) []FinanceEntries {
	bySub := groupBy(entries, func(e model.FinanceEntry) string { return e.SubscriptionID })

	out := []FinanceEntries{}
	for _, id := range sortedKeys(bySub) {
		subEntries := slices.Clone(bySub[id])
		slices.SortFunc(subEntries, func(a, b model.FinanceEntry) int {
			return byTimeThenID(a.TimeCreated, a.ID, b.TimeCreated, b.ID)
		})
		out = append(out, FinanceEntries{
			SubscriptionID: id,
			Name:           statusAt(history[id], w.End).Name,
			Entries:        subEntries,
		})
	}
	return out
}

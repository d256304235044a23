package summary

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/model"
)

func groupBy[T any](items []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, item := range items {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// unionIDs merges id lists into one sorted list without duplicates.
func unionIDs(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func sum[T any](items []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(amount(item))
	}
	return total
}

// byTimeThenID orders rows by creation time and falls back to the row id.
func byTimeThenID(at1 time.Time, id1 int64, at2 time.Time, id2 int64) int {
	if c := at1.Compare(at2); c != 0 {
		return c
	}
	return cmp.Compare(id1, id2)
}

func detailSubscription(d model.SubscriptionDetail) string { return d.SubscriptionID }
func detailTime(d model.SubscriptionDetail) time.Time      { return d.TimeCreated }

// checkHistory rejects histories whose row order disagrees with their
// timestamps: two rows at the same instant, or a later row stamped earlier.
func checkHistory(history map[string][]model.SubscriptionDetail) error {
	const op = "check status history"

	for _, id := range sortedKeys(history) {
		rows := slices.Clone(history[id])
		slices.SortFunc(rows, func(a, b model.SubscriptionDetail) int { return cmp.Compare(a.ID, b.ID) })
		for i := 1; i < len(rows); i++ {
			prev, cur := rows[i-1], rows[i]
			if cur.TimeCreated.Equal(prev.TimeCreated) {
				return inconsistentError(op, "subscription %s: status rows %d and %d share timestamp %s",
					id, prev.ID, cur.ID, cur.TimeCreated.Format(time.RFC3339Nano))
			}
			if cur.TimeCreated.Before(prev.TimeCreated) {
				return inconsistentError(op, "subscription %s: status row %d is older than earlier row %d",
					id, cur.ID, prev.ID)
			}
		}
	}
	return nil
}

// statusAt returns the latest status at or before t.
func statusAt(history []model.SubscriptionDetail, t time.Time) Status {
	d, ok := DiffLatest(history, detailTime, t, t)
	if !ok {
		return Status{}
	}
	return Status{Name: d.New.DisplayName, State: d.New.State, Known: true}
}

// approvalPeriod spans the earliest start and latest end of the approvals.
func approvalPeriod(approvals []model.Approval) (from, to *time.Time) {
	for _, a := range approvals {
		if from == nil || a.DateFrom.Before(*from) {
			f := a.DateFrom
			from = &f
		}
		if to == nil || a.DateTo.After(*to) {
			t := a.DateTo
			to = &t
		}
	}
	return from, to
}

// financeOverlaps reports whether the entry's inclusive validity days
// intersect the window.
func financeOverlaps(e model.FinanceEntry, w Window) bool {
	from := startOfDay(e.DateFrom)
	until := startOfDay(e.DateTo).AddDate(0, 0, 1)
	return from.Before(w.End) && w.Start.Before(until)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func budgetItems[T any](rows []T, item func(T) BudgetItem) []BudgetItem {
	out := make([]BudgetItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, item(r))
	}
	slices.SortFunc(out, func(a, b BudgetItem) int {
		return byTimeThenID(a.TimeCreated, a.ID, b.TimeCreated, b.ID)
	})
	return out
}

func approvalItem(a model.Approval) BudgetItem {
	return BudgetItem{ID: a.ID, Ticket: a.Ticket, Amount: a.Amount, TimeCreated: a.TimeCreated}
}

func allocationItem(a model.Allocation) BudgetItem {
	return BudgetItem{ID: a.ID, Ticket: a.Ticket, Amount: a.Amount, TimeCreated: a.TimeCreated}
}

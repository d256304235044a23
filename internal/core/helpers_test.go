package core

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/budget/internal/model"
)

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

// summaryScan fills a summaryQuery row.
type summaryScan struct {
	id, name, state           string
	abolished                 bool
	approved, allocated, cost string
	approvedFrom, approvedTo  *time.Time
	alwaysOn                  bool
	desired                   *bool
	reason                    *string
}

func (s summaryScan) scan(dest ...any) error {
	*(dest[0].(*string)) = s.id
	*(dest[1].(*bool)) = s.abolished
	*(dest[2].(*string)) = s.name
	*(dest[3].(*model.SubscriptionState)) = model.SubscriptionState(s.state)
	*(dest[4].(*pgtype.Numeric)) = numeric(s.approved)
	*(dest[5].(**time.Time)) = s.approvedFrom
	*(dest[6].(**time.Time)) = s.approvedTo
	*(dest[7].(*pgtype.Numeric)) = numeric(s.allocated)
	*(dest[8].(*pgtype.Numeric)) = numeric(s.cost)
	*(dest[9].(*bool)) = s.alwaysOn
	*(dest[10].(**bool)) = s.desired
	*(dest[11].(**string)) = s.reason
	return nil
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptr[T any](v T) *T { return &v }

// args matches a query's argument list, comparing decimals by value.
func args(expected ...any) any {
	return mock.MatchedBy(func(actual []any) bool {
		if len(actual) != len(expected) {
			return false
		}
		for i := range expected {
			if want, ok := expected[i].(decimal.Decimal); ok {
				got, ok := actual[i].(decimal.Decimal)
				if !ok || !want.Equal(got) {
					return false
				}
				continue
			}
			if !assert.ObjectsAreEqual(expected[i], actual[i]) {
				return false
			}
		}
		return true
	})
}

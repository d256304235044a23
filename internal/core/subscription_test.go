package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/budget/internal/model"
)

const subA = "00000000-0000-0000-0000-00000000000a"

func TestSubscriptionService_EnsureExists_Empty(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)

	require.NoError(t, svc.EnsureExists(context.Background(), nil))
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscriptionService_EnsureExists(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContains("ON CONFLICT (subscription_id) DO NOTHING"), []any{[]string{subA}}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, svc.EnsureExists(ctx, []string{subA}))
	db.AssertExpectations(t)
}

func TestSubscriptionService_EnsureExists_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("db error"))

	err := svc.EnsureExists(ctx, []string{subA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert missing subscriptions")
}

func TestSubscriptionService_GetByID(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	row := scanRow(summaryScan{
		id: subA, name: "lab", state: "Enabled",
		approved: "100", allocated: "60", cost: "12.34",
		approvedFrom: ptrTime(date("2024-01-01")), approvedTo: ptrTime(date("2024-12-31")),
	}.scan)
	db.On("QueryRow", ctx, sqlContains("WHERE s.subscription_id = $1::uuid"), []any{subA}).Return(row)

	sum, err := svc.GetByID(ctx, subA)
	require.NoError(t, err)
	assert.Equal(t, "lab", sum.Name)
	assert.Equal(t, model.StateEnabled, sum.State)
	assert.True(t, dec("100").Equal(sum.Approved))
	assert.True(t, dec("47.66").Equal(sum.Remaining), sum.Remaining.String())
	require.NotNil(t, sum.ApprovedTo)
	assert.Equal(t, "2024-12-31", isoDate(*sum.ApprovedTo))
	db.AssertExpectations(t)
}

func TestSubscriptionService_GetByID_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	row := scanRow(func(dest ...any) error { return pgx.ErrNoRows })
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := svc.GetByID(ctx, subA)
	require.Error(t, err)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestSubscriptionService_List(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	rows := scanRows(
		summaryScan{id: subA, approved: "0", allocated: "0", cost: "0"}.scan,
		summaryScan{id: "00000000-0000-0000-0000-00000000000b", name: "b", approved: "10", allocated: "5", cost: "1"}.scan,
	)
	db.On("Query", ctx, sqlContains("ORDER BY s.subscription_id"), []any(nil)).Return(rows, nil)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].ApprovedFrom)
	assert.True(t, dec("4").Equal(list[1].Remaining))
}

func TestSubscriptionService_List_IterError(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	rows := scanRows()
	rows.err = errors.New("iteration failed")
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	_, err := svc.List(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterate subscriptions")
}

func TestSubscriptionService_ListByIDs_Empty(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)

	list, err := svc.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestSubscriptionService_Inactive(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()
	cutoff := date("2024-01-01")

	rows := scanRows(func(dest ...any) error {
		*(dest[0].(*string)) = subA
		return nil
	})
	db.On("Query", ctx, sqlContains("NOT s.abolished"),
		[]any{[]string{"Disabled", "Deleted", "Expired"}, cutoff}).Return(rows, nil)

	ids, err := svc.Inactive(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{subA}, ids)
	db.AssertExpectations(t)
}

func TestSubscriptionService_SetAbolished(t *testing.T) {
	db := &mockDB{}
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	require.NoError(t, svc.SetAbolished(ctx, nil))

	db.On("Exec", ctx, sqlContains("SET abolished = true"), []any{[]string{subA}}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	require.NoError(t, svc.SetAbolished(ctx, []string{subA}))
	db.AssertExpectations(t)
}

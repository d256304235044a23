package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHashAPIKey(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashAPIKey("abc"))
}

func TestAPIKeyService_Create(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	db.On("QueryRow", ctx, sqlContains("INSERT INTO api_keys"), mock.Anything).
		Return(scanRow(func(dest ...any) error {
			*(dest[0].(*time.Time)) = created
			return nil
		}))

	key, raw, err := svc.Create(ctx, "ci", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "bgt_"))
	assert.Len(t, raw, 68)
	assert.Equal(t, raw[:12], key.KeyPrefix)
	assert.Equal(t, HashAPIKey(raw), key.KeyHash)
	assert.Equal(t, []string{"*:*"}, key.Scopes)
	assert.Equal(t, created, key.CreatedAt)
	db.AssertExpectations(t)
}

func TestAPIKeyService_CreateWithRawKey_TooShort(t *testing.T) {
	svc := NewAPIKeyService(&mockDB{})
	_, err := svc.CreateWithRawKey(context.Background(), "x", "short", nil)
	assert.Error(t, err)
}

func TestAPIKeyService_GetByHash_Error(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("WHERE key_hash = $1"), []any{"h"}).
		Return(scanRow(func(dest ...any) error { return errors.New("no rows in result set") }))

	_, err := svc.GetByHash(ctx, "h")
	assert.ErrorContains(t, err, "get api key by hash")
}

func TestAPIKeyService_List_HasMore(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	scan := func(id string) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			return nil
		}
	}
	db.On("Query", ctx, sqlContains("AND id > $1"), []any{"k0", 3}).
		Return(scanRows(scan("k1"), scan("k2"), scan("k3")), nil)

	keys, hasMore, err := svc.List(ctx, 2, "k0")
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, keys, 2)
}

func TestAPIKeyService_Revoke_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"missing"}).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := svc.Revoke(ctx, "missing")
	assert.ErrorContains(t, err, "not found or already revoked")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

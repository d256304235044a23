package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDB expects statements by SQL and argument list. Statements issued
// inside a transaction reach the same expectations through fakeTx.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	ret := m.Called(ctx, sql, arguments)
	return ret.Get(0).(pgconn.CommandTag), ret.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	ret := m.Called(ctx, sql, arguments)
	rows, _ := ret.Get(0).(pgx.Rows)
	return rows, ret.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	return m.Called(ctx, sql, arguments).Get(0).(pgx.Row)
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	ret := m.Called(ctx)
	tx, _ := ret.Get(0).(pgx.Tx)
	return tx, ret.Error(1)
}

// beginTx makes the next Begin on db hand out a fakeTx.
func beginTx(db *mockDB) *fakeTx {
	tx := &fakeTx{db: db}
	db.On("Begin", mock.Anything).Return(tx, nil).Once()
	return tx
}

// fakeTx forwards statements to its mockDB and records how it ended.
type fakeTx struct {
	db         *mockDB
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, arguments...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

// Rollback after Commit is a no-op, as it is for a real pgx transaction.
func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions are not used")
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("copy is not used")
}

func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Conn() *pgx.Conn                                        { return nil }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("prepare is not used")
}

// scanRow is a single result row.
type scanRow func(dest ...any) error

func (f scanRow) Scan(dest ...any) error { return f(dest...) }

// fakeRows yields one row per scan func, then stops with err.
type fakeRows struct {
	pending []func(dest ...any) error
	current func(dest ...any) error
	err     error
	closed  bool
}

func scanRows(rows ...func(dest ...any) error) *fakeRows {
	return &fakeRows{pending: rows}
}

func (r *fakeRows) Next() bool {
	if r.closed || len(r.pending) == 0 {
		r.current = nil
		return false
	}
	r.current, r.pending = r.pending[0], r.pending[1:]
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.current == nil {
		return errors.New("scan called without a row")
	}
	return r.current(dest...)
}

func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

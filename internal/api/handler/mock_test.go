package handler

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

// handlerMockDB implements core.DB for handler tests.
type handlerMockDB struct {
	mock.Mock
}

func (m *handlerMockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *handlerMockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *handlerMockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func (m *handlerMockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

// expectTx makes the next Begin hand out a transaction that forwards
// statements to m.
func (m *handlerMockDB) expectTx() *handlerMockTx {
	tx := &handlerMockTx{db: m}
	m.On("Begin", mock.Anything).Return(tx, nil).Once()
	return tx
}

// handlerMockTx implements pgx.Tx on top of handlerMockDB.
type handlerMockTx struct {
	db         *handlerMockDB
	committed  bool
	rolledBack bool
}

func (t *handlerMockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, arguments...)
}

func (t *handlerMockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *handlerMockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *handlerMockTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *handlerMockTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *handlerMockTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transaction")
}

func (t *handlerMockTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("copy not supported")
}

func (t *handlerMockTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *handlerMockTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *handlerMockTx) Conn() *pgx.Conn                                        { return nil }

func (t *handlerMockTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("prepare not supported")
}

// handlerMockRow implements pgx.Row with a configurable scan.
type handlerMockRow struct {
	scanFunc func(dest ...any) error
}

func (r *handlerMockRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// errRow returns a row whose Scan fails with err.
func errRow(err error) *handlerMockRow {
	return &handlerMockRow{scanFunc: func(...any) error { return err }}
}

// handlerMockRows implements pgx.Rows over scan funcs, one per row.
type handlerMockRows struct {
	rows []func(dest ...any) error
	idx  int
	err  error
}

func (r *handlerMockRows) Close()                                       {}
func (r *handlerMockRows) Err() error                                   { return r.err }
func (r *handlerMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *handlerMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *handlerMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *handlerMockRows) RawValues() [][]byte                          { return nil }
func (r *handlerMockRows) Conn() *pgx.Conn                              { return nil }

func (r *handlerMockRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *handlerMockRows) Scan(dest ...any) error {
	return r.rows[r.idx-1](dest...)
}

// mockNotifier records the notifications handlers send.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) StatusChanged(ctx context.Context, changes []core.StatusChange) error {
	return m.Called(ctx, changes).Error(0)
}

func (m *mockNotifier) UsageChanged(ctx context.Context, before, after []model.SubscriptionSummary) error {
	return m.Called(ctx, before, after).Error(0)
}

func (m *mockNotifier) Approved(ctx context.Context, a *model.Approval) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockNotifier) Allocated(ctx context.Context, a *model.Allocation) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockNotifier) PersistenceChanged(ctx context.Context, p *model.Persistence) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockNotifier) DesiredStatesChanged(ctx context.Context, changes []core.DesiredStateChange) error {
	return m.Called(ctx, changes).Error(0)
}

// quietNotifier accepts every notification.
func quietNotifier() *mockNotifier {
	n := &mockNotifier{}
	for _, method := range []string{"Approved", "Allocated", "PersistenceChanged"} {
		n.On(method, mock.Anything, mock.Anything).Return(nil).Maybe()
	}
	n.On("StatusChanged", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("DesiredStatesChanged", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("UsageChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

// fakeDesired is a DesiredStates that records what it was asked to refresh.
type fakeDesired struct {
	refreshed [][]string
	changes   []core.DesiredStateChange
	states    []model.DesiredState
	err       error
}

func (f *fakeDesired) Refresh(_ context.Context, ids []string) ([]core.DesiredStateChange, error) {
	f.refreshed = append(f.refreshed, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.changes, nil
}

func (f *fakeDesired) List(context.Context) ([]model.DesiredState, error) {
	return f.states, f.err
}

// fakeSummaries returns one snapshot per call.
type fakeSummaries struct {
	snapshots [][]model.SubscriptionSummary
	calls     int
	err       error
}

func (f *fakeSummaries) List(context.Context) ([]model.SubscriptionSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := min(f.calls, len(f.snapshots)-1)
	f.calls++
	if i < 0 {
		return nil, nil
	}
	return f.snapshots[i], nil
}

package activity

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/model"
	"github.com/edvin/budget/internal/summary"
)

type fakeLock struct{ released bool }

func (l *fakeLock) Release(context.Context) error {
	l.released = true
	return nil
}

type fakeLocker struct {
	lock *fakeLock
	err  error
	name string
}

func (f *fakeLocker) TryLock(_ context.Context, name string) (db.Lock, error) {
	f.name = name
	if f.err != nil {
		return nil, f.err
	}
	f.lock = &fakeLock{}
	return f.lock, nil
}

type mockMarkers struct{ mock.Mock }

func (m *mockMarkers) Latest(ctx context.Context) (summary.Marker, error) {
	args := m.Called(ctx)
	return args.Get(0).(summary.Marker), args.Error(1)
}

func (m *mockMarkers) Advance(ctx context.Context, mk summary.Marker, recipients []string, status int) error {
	return m.Called(ctx, mk, recipients, status).Error(0)
}

type mockRunner struct{ mock.Mock }

func (m *mockRunner) Run(ctx context.Context, marker summary.Marker, now time.Time) (*summary.Report, summary.Marker, error) {
	args := m.Called(ctx, marker, now)
	report, _ := args.Get(0).(*summary.Report)
	return report, args.Get(1).(summary.Marker), args.Error(2)
}

type fakeSender struct {
	sent   []mailer.Message
	status int
	err    error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, msg)
	return f.status, nil
}

type fakeFailed struct{ stored []*model.FailedEmail }

func (f *fakeFailed) RecordFailedEmail(_ context.Context, e *model.FailedEmail) error {
	f.stored = append(f.stored, e)
	return nil
}

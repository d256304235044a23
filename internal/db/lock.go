package db

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Lock names shared by every process that touches the same data.
const (
	LockDailySummary  = "daily-summary"
	LockAbolish       = "abolish-subscriptions"
	LockUsageUpload   = "usage_upload"
	LockAlerts        = "subscription-alerts"
	LockDesiredStates = "desired-states"
)

// ErrLockHeld is returned by TryLock when another session owns the lock.
var ErrLockHeld = errors.New("advisory lock held by another session")

// LockID maps a lock name to the bigint key PostgreSQL advisory locks use:
// the first eight bytes of the name's MD5 digest read as a big-endian int64.
func LockID(name string) int64 {
	sum := md5.Sum([]byte(name))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Lock is a held advisory lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out session-level advisory locks, each pinned to its own pool connection.
type Locker struct {
	pool *pgxpool.Pool
}

func NewLocker(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

// TryLock acquires the named lock without waiting. It returns ErrLockHeld if
// another session holds it.
func (l *Locker) TryLock(ctx context.Context, name string) (Lock, error) {
	return l.acquire(ctx, name, "SELECT pg_try_advisory_lock($1)")
}

// Lock blocks until the named lock is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, name string) (Lock, error) {
	return l.acquire(ctx, name, "SELECT true FROM (SELECT pg_advisory_lock($1)) AS l")
}

func (l *Locker) acquire(ctx context.Context, name, query string) (Lock, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for lock %s: %w", name, err)
	}

	id := LockID(name)
	var acquired bool
	if err := conn.QueryRow(ctx, query, id).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("take advisory lock %s: %w", name, err)
	}
	if !acquired {
		conn.Release()
		return nil, fmt.Errorf("%s: %w", name, ErrLockHeld)
	}

	return &advisoryLock{conn: conn, name: name, id: id}, nil
}

type advisoryLock struct {
	conn *pgxpool.Conn
	name string
	id   int64
}

// Release unlocks and returns the connection to the pool. If unlocking fails
// the connection is closed so the session, and with it the lock, ends.
func (a *advisoryLock) Release(ctx context.Context) error {
	defer a.conn.Release()

	if _, err := a.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", a.id); err != nil {
		a.conn.Conn().Close(ctx)
		return fmt.Errorf("release advisory lock %s: %w", a.name, err)
	}
	return nil
}

package activity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/db"
)

// Locker hands out advisory locks. *db.Locker satisfies this interface.
type Locker interface {
	TryLock(ctx context.Context, name string) (db.Lock, error)
}

// release drops lock on a context that survives cancellation of the activity,
// so a timed-out run does not keep the lock until its connection is reaped.
func release(ctx context.Context, lock db.Lock, name string, logger zerolog.Logger) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		logger.Error().Err(err).Str("lock", name).Msg("release advisory lock")
	}
}

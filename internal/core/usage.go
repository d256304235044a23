package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// Locker hands out named advisory locks.
type Locker interface {
	Lock(ctx context.Context, name string) (db.Lock, error)
	TryLock(ctx context.Context, name string) (db.Lock, error)
}

// UsageService stores cost data pushed by the usage agent.
type UsageService struct {
	db     DB
	locker Locker
	subs   *SubscriptionService
	logger zerolog.Logger
}

func NewUsageService(db DB, locker Locker, subs *SubscriptionService, logger zerolog.Logger) *UsageService {
	return &UsageService{db: db, locker: locker, subs: subs, logger: logger.With().Str("service", "usage").Logger()}
}

// Upload upserts usage rows by id. Uploads are serialised with an advisory
// lock so concurrent pushes of overlapping data do not interleave.
func (s *UsageService) Upload(ctx context.Context, usage []model.Usage) (err error) {
	lock, err := s.locker.Lock(ctx, db.LockUsageUpload)
	if err != nil {
		return fmt.Errorf("acquire usage lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = fmt.Errorf("release usage lock: %w", rerr)
		}
	}()

	ids := make([]string, 0, len(usage))
	for _, u := range usage {
		ids = append(ids, u.SubscriptionID)
	}
	if err := s.subs.EnsureExists(ctx, ids); err != nil {
		return err
	}

	start := time.Now()
	for _, u := range usage {
		currency := u.Currency
		if currency == "" {
			currency = model.DefaultCurrency
		}
		_, err := s.db.Exec(ctx,
			`INSERT INTO usage (id, subscription_id, name, date, currency, cost, amortised_cost, total_cost, invoice_section)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			     subscription_id = EXCLUDED.subscription_id, name = EXCLUDED.name, date = EXCLUDED.date,
			     currency = EXCLUDED.currency, cost = EXCLUDED.cost, amortised_cost = EXCLUDED.amortised_cost,
			     total_cost = EXCLUDED.total_cost, invoice_section = EXCLUDED.invoice_section,
			     time_updated = clock_timestamp()`,
			u.ID, u.SubscriptionID, u.Name, u.Date, currency,
			u.Cost, u.AmortisedCost, u.TotalCost, u.InvoiceSection)
		if err != nil {
			return fmt.Errorf("upsert usage %s: %w", u.ID, err)
		}
	}
	s.logger.Info().Int("rows", len(usage)).Dur("took", time.Since(start)).Msg("usage uploaded")
	return nil
}

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// SubscriptionService owns the subscription registry and the derived
// per-subscription budget summary.
type SubscriptionService struct {
	db DB
}

func NewSubscriptionService(db DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// EnsureExists registers every id that is not known yet.
func (s *SubscriptionService) EnsureExists(ctx context.Context, ids []string) error {
	return ensureExists(ctx, s.db, ids)
}

func ensureExists(ctx context.Context, q DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO subscription (subscription_id)
		 SELECT DISTINCT unnest($1::uuid[])
		 ON CONFLICT (subscription_id) DO NOTHING`, ids)
	if err != nil {
		return fmt.Errorf("insert missing subscriptions: %w", err)
	}
	return nil
}

const summaryQuery = `SELECT s.subscription_id::text, s.abolished,
       COALESCE(d.display_name, ''), COALESCE(d.state, ''),
       COALESCE(ap.amount, 0), ap.date_from, ap.date_to,
       COALESCE(al.amount, 0), COALESCE(u.total_cost, 0),
       COALESCE(p.always_on, false), st.active, st.reason
FROM subscription s
LEFT JOIN LATERAL (
    SELECT display_name, state FROM subscription_details sd
    WHERE sd.subscription_id = s.subscription_id ORDER BY sd.id DESC LIMIT 1
) d ON true
LEFT JOIN LATERAL (
    SELECT SUM(amount) AS amount, MIN(date_from) AS date_from, MAX(date_to) AS date_to
    FROM approvals a WHERE a.subscription_id = s.subscription_id
) ap ON true
LEFT JOIN LATERAL (
    SELECT SUM(amount) AS amount FROM allocations a WHERE a.subscription_id = s.subscription_id
) al ON true
LEFT JOIN LATERAL (
    SELECT SUM(total_cost) AS total_cost FROM usage u WHERE u.subscription_id = s.subscription_id
) u ON true
LEFT JOIN LATERAL (
    SELECT always_on FROM persistence p WHERE p.subscription_id = s.subscription_id ORDER BY p.id DESC LIMIT 1
) p ON true
LEFT JOIN LATERAL (
    SELECT active, reason FROM status st WHERE st.subscription_id = s.subscription_id ORDER BY st.id DESC LIMIT 1
) st ON true`

// List returns the summary of every subscription ordered by id.
func (s *SubscriptionService) List(ctx context.Context) ([]model.SubscriptionSummary, error) {
	return s.summaries(ctx, summaryQuery+` ORDER BY s.subscription_id`)
}

// ListByIDs returns the summaries of the given subscriptions.
func (s *SubscriptionService) ListByIDs(ctx context.Context, ids []string) ([]model.SubscriptionSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.summaries(ctx, summaryQuery+` WHERE s.subscription_id = ANY($1::uuid[]) ORDER BY s.subscription_id`, ids)
}

// GetByID returns the summary of one subscription. The error wraps
// pgx.ErrNoRows when the subscription is unknown.
func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*model.SubscriptionSummary, error) {
	sum, err := scanSummary(s.db.QueryRow(ctx, summaryQuery+` WHERE s.subscription_id = $1::uuid`, id))
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return sum, nil
}

func (s *SubscriptionService) summaries(ctx context.Context, query string, args ...any) ([]model.SubscriptionSummary, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.SubscriptionSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

func scanSummary(row pgx.Row) (*model.SubscriptionSummary, error) {
	var (
		sum                       model.SubscriptionSummary
		approved, allocated, cost pgtype.Numeric
		approvedFrom, approvedTo  *time.Time
		reason                    *string
	)
	if err := row.Scan(&sum.SubscriptionID, &sum.Abolished, &sum.Name, &sum.State,
		&approved, &approvedFrom, &approvedTo, &allocated, &cost,
		&sum.AlwaysOn, &sum.DesiredStatus, &reason); err != nil {
		return nil, err
	}
	if reason != nil {
		r := model.BillingStatus(*reason)
		sum.DesiredStatusInfo = &r
	}
	sum.Approved = db.Decimal(approved)
	sum.Allocated = db.Decimal(allocated)
	sum.TotalCost = db.Decimal(cost)
	sum.Remaining = sum.Allocated.Sub(sum.TotalCost)
	sum.ApprovedFrom = utcDate(approvedFrom)
	sum.ApprovedTo = utcDate(approvedTo)
	return &sum, nil
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// SetAbolished flags the given subscriptions as abolished.
func (s *SubscriptionService) SetAbolished(ctx context.Context, ids []string) error {
	return setAbolished(ctx, s.db, ids)
}

func setAbolished(ctx context.Context, q DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`UPDATE subscription SET abolished = true, time_updated = clock_timestamp()
		 WHERE subscription_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return fmt.Errorf("set abolished: %w", err)
	}
	return nil
}

// Inactive returns the subscriptions, not yet abolished, whose latest status
// is inactive and was recorded before cutoff.
func (s *SubscriptionService) Inactive(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT s.subscription_id::text
		 FROM subscription s
		 JOIN LATERAL (
		     SELECT state, time_created FROM subscription_details sd
		     WHERE sd.subscription_id = s.subscription_id ORDER BY sd.id DESC LIMIT 1
		 ) d ON true
		 WHERE NOT s.abolished AND d.state = ANY($1) AND d.time_created < $2
		 ORDER BY s.subscription_id`,
		[]string{string(model.StateDisabled), string(model.StateDeleted), string(model.StateExpired)}, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list inactive subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan inactive subscription: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inactive subscriptions: %w", err)
	}
	return ids, nil
}

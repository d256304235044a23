package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/edvin/budget/internal/db"
	"github.com/edvin/budget/internal/model"
)

// DB is the subset of pgxpool.Pool used by the marker store.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is implemented by pgxpool.Pool and pgxpool.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PGStore reads snapshots from PostgreSQL inside a repeatable read, read only
// transaction.
type PGStore struct {
	db TxBeginner
}

func NewPGStore(db TxBeginner) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Snapshot(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgReader{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgReader struct {
	q querier
}

// where builds a WHERE clause from a timestamp range and an optional id filter.
func where(col string, ids []string, r Range) (string, []any) {
	var conds []string
	var args []any

	if ids != nil {
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("subscription_id = ANY($%d::uuid[])", len(args)))
	}
	if !r.From.IsZero() {
		args = append(args, r.From)
		conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(args)))
	}
	op := "<"
	if r.Inclusive {
		op = "<="
	}
	args = append(args, r.To)
	conds = append(conds, fmt.Sprintf("%s %s $%d", col, op, len(args)))

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *pgReader) Subscriptions(ctx context.Context, rg Range) ([]model.Subscription, error) {
	clause, args := where("time_created", nil, rg)
	rows, err := r.q.Query(ctx,
		`SELECT subscription_id::text, abolished, time_created, time_updated FROM subscription`+clause+
			` ORDER BY subscription_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.Abolished, &s.TimeCreated, &s.TimeUpdated); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.TimeCreated = s.TimeCreated.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

func (r *pgReader) Details(ctx context.Context, ids []string, rg Range) ([]model.SubscriptionDetail, error) {
	clause, args := where("time_created", ids, rg)
	rows, err := r.q.Query(ctx,
		`SELECT id, subscription_id::text, display_name, state, role_assignments, time_created
		 FROM subscription_details`+clause+` ORDER BY subscription_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscription details: %w", err)
	}
	defer rows.Close()

	var out []model.SubscriptionDetail
	for rows.Next() {
		var d model.SubscriptionDetail
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.DisplayName, &d.State, &d.RoleAssignments, &d.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan subscription detail: %w", err)
		}
		d.TimeCreated = d.TimeCreated.UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription details: %w", err)
	}
	return out, nil
}

func (r *pgReader) Approvals(ctx context.Context, ids []string, rg Range) ([]model.Approval, error) {
	clause, args := where("time_created", ids, rg)
	rows, err := r.q.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, currency, date_from, date_to, time_created
		 FROM approvals`+clause+` ORDER BY subscription_id, time_created, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var out []model.Approval
	for rows.Next() {
		var a model.Approval
		var amount pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.Ticket, &amount, &a.Currency, &a.DateFrom, &a.DateTo, &a.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Amount = db.Decimal(amount)
		a.TimeCreated = a.TimeCreated.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return out, nil
}

func (r *pgReader) Allocations(ctx context.Context, ids []string, rg Range) ([]model.Allocation, error) {
	clause, args := where("time_created", ids, rg)
	rows, err := r.q.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, currency, time_created
		 FROM allocations`+clause+` ORDER BY subscription_id, time_created, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	var out []model.Allocation
	for rows.Next() {
		var a model.Allocation
		var amount pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.Ticket, &amount, &a.Currency, &a.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Amount = db.Decimal(amount)
		a.TimeCreated = a.TimeCreated.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocations: %w", err)
	}
	return out, nil
}

func (r *pgReader) UsageTotals(ctx context.Context, ids []string, asOf time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx,
		`SELECT subscription_id::text, SUM(total_cost)
		 FROM usage
		 WHERE subscription_id = ANY($1::uuid[]) AND date <= $2::date
		 GROUP BY subscription_id`, ids, asOf)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var id string
		var total pgtype.Numeric
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("scan usage total: %w", err)
		}
		out[id] = db.Decimal(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage totals: %w", err)
	}
	return out, nil
}

func (r *pgReader) Notifications(ctx context.Context, rg Range) ([]model.Email, error) {
	clause, args := where("time_created", nil, rg)
	args = append(args, model.EmailTypeSummary)
	rows, err := r.q.Query(ctx,
		`SELECT id, subscription_id::text, status, type, recipients, extra_info, time_created
		 FROM emails`+clause+fmt.Sprintf(` AND subscription_id IS NOT NULL AND type <> $%d`, len(args))+
			` ORDER BY subscription_id, time_created, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Email
	for rows.Next() {
		var e model.Email
		if err := rows.Scan(&e.ID, &e.SubscriptionID, &e.Status, &e.Type, &e.Recipients, &e.ExtraInfo, &e.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		e.TimeCreated = e.TimeCreated.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *pgReader) Finance(ctx context.Context, from, to time.Time) ([]model.FinanceEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, subscription_id::text, ticket, amount, priority, finance_code, date_from, date_to, time_created
		 FROM finance
		 WHERE date_from <= $2::date AND date_to >= $1::date
		 ORDER BY subscription_id, time_created, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query finance: %w", err)
	}
	defer rows.Close()

	var out []model.FinanceEntry
	for rows.Next() {
		var f model.FinanceEntry
		var amount pgtype.Numeric
		if err := rows.Scan(&f.ID, &f.SubscriptionID, &f.Ticket, &amount, &f.Priority, &f.FinanceCode, &f.DateFrom, &f.DateTo, &f.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan finance: %w", err)
		}
		f.Amount = db.Decimal(amount)
		f.TimeCreated = f.TimeCreated.UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finance: %w", err)
	}
	return out, nil
}

// PGMarkerStore keeps the marker as the newest summary row of the emails table.
type PGMarkerStore struct {
	db DB
}

func NewPGMarkerStore(db DB) *PGMarkerStore {
	return &PGMarkerStore{db: db}
}

func (s *PGMarkerStore) Latest(ctx context.Context) (Marker, error) {
	var at time.Time
	err := s.db.QueryRow(ctx,
		`SELECT time_created FROM emails WHERE type = $1 ORDER BY id DESC LIMIT 1`,
		model.EmailTypeSummary,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return Marker{}, nil
	}
	if err != nil {
		return Marker{}, dataError("read summary marker", err)
	}
	return Marker{At: at.UTC()}, nil
}

func (s *PGMarkerStore) Advance(ctx context.Context, m Marker, recipients []string, status int) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO emails (status, type, recipients, time_created) VALUES ($1, $2, $3, $4)`,
		status, model.EmailTypeSummary, strings.Join(recipients, ";"), m.At,
	)
	if err != nil {
		return dataError("advance summary marker", err)
	}
	return nil
}

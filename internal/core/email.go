package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/budget/internal/model"
)

// EmailService keeps the log of sent notifications and of messages that could
// not be delivered.
type EmailService struct {
	db DB
}

func NewEmailService(db DB) *EmailService {
	return &EmailService{db: db}
}

// Record logs a sent email.
func (s *EmailService) Record(ctx context.Context, e *model.Email) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO emails (subscription_id, status, type, recipients, extra_info)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, time_created`,
		e.SubscriptionID, e.Status, e.Type, e.Recipients, e.ExtraInfo,
	).Scan(&e.ID, &e.TimeCreated)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

// LastSent returns when the newest email of one of the given types was sent
// about a subscription, or nil when there is none.
func (s *EmailService) LastSent(ctx context.Context, subID string, types ...string) (*time.Time, error) {
	var at time.Time
	err := s.db.QueryRow(ctx,
		`SELECT time_created FROM emails
		 WHERE subscription_id = $1 AND type = ANY($2)
		 ORDER BY id DESC LIMIT 1`, subID, types,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last email for %s: %w", subID, err)
	}
	at = at.UTC()
	return &at, nil
}

// RecordFailedEmail keeps an undelivered message so it can be resent by hand.
func (s *EmailService) RecordFailedEmail(ctx context.Context, e *model.FailedEmail) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO failed_emails (subscription_id, type, subject, from_email, recipients, message)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, time_created`,
		e.SubscriptionID, e.Type, e.Subject, e.FromEmail, e.Recipients, e.Message,
	).Scan(&e.ID, &e.TimeCreated)
	if err != nil {
		return fmt.Errorf("insert failed email: %w", err)
	}
	return nil
}

// ListFailed returns undelivered messages newest first. A non-zero before
// starts the page below that id. hasMore reports whether older messages remain.
func (s *EmailService) ListFailed(ctx context.Context, limit int, before int64) (out []model.FailedEmail, hasMore bool, err error) {
	query := `SELECT id, subscription_id::text, type, subject, from_email, recipients, message, time_created
		 FROM failed_emails`
	args := []any{}
	if before > 0 {
		query += ` WHERE id < $1`
		args = append(args, before)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list failed emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.FailedEmail
		if err := rows.Scan(&e.ID, &e.SubscriptionID, &e.Type, &e.Subject, &e.FromEmail, &e.Recipients, &e.Message, &e.TimeCreated); err != nil {
			return nil, false, fmt.Errorf("scan failed email: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate failed emails: %w", err)
	}
	if len(out) > limit {
		return out[:limit], true, nil
	}
	return out, false, nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/budget/internal/model"
)

// StatusService records the status observations pushed by the status agent.
type StatusService struct {
	db     DB
	logger zerolog.Logger
}

func NewStatusService(db DB, logger zerolog.Logger) *StatusService {
	return &StatusService{db: db, logger: logger.With().Str("service", "status").Logger()}
}

// StatusChange is a status that was appended by Ingest. Previous is nil for
// the first status of a subscription.
type StatusChange struct {
	Previous *model.SubscriptionStatus
	Current  model.SubscriptionStatus
}

// Ingest stores a batch of statuses in one transaction. A new
// subscription_details row is only appended when the status differs from the
// latest one recorded for that subscription. Returns the appended statuses.
func (s *StatusService) Ingest(ctx context.Context, statuses []model.SubscriptionStatus) ([]StatusChange, error) {
	ids := make([]string, 0, len(statuses))
	for _, st := range statuses {
		ids = append(ids, st.SubscriptionID)
	}

	var changes []StatusChange
	err := inTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := ensureExists(ctx, tx, ids); err != nil {
			return err
		}
		for _, st := range statuses {
			if stripped, changed := replaceNUL(st); changed {
				s.logger.Warn().Str("subscription_id", st.SubscriptionID).Msg("status contained NUL characters")
				st = stripped
			}
			if st.RoleAssignments == nil {
				st.RoleAssignments = []model.RoleAssignment{}
			}

			prev, err := latestStatus(ctx, tx, st.SubscriptionID)
			if err != nil {
				return err
			}
			if prev != nil && sameStatus(*prev, st) {
				continue
			}

			_, err = tx.Exec(ctx,
				`INSERT INTO subscription_details (subscription_id, display_name, state, role_assignments)
				 VALUES ($1, $2, $3, $4)`,
				st.SubscriptionID, st.DisplayName, string(st.State), st.RoleAssignments)
			if err != nil {
				return fmt.Errorf("insert status for %s: %w", st.SubscriptionID, err)
			}
			changes = append(changes, StatusChange{Previous: prev, Current: st})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Latest returns the most recent status of a subscription, or nil when none
// was recorded yet.
func (s *StatusService) Latest(ctx context.Context, id string) (*model.SubscriptionStatus, error) {
	return latestStatus(ctx, s.db, id)
}

func latestStatus(ctx context.Context, q DB, id string) (*model.SubscriptionStatus, error) {
	var st model.SubscriptionStatus
	err := q.QueryRow(ctx,
		`SELECT subscription_id::text, display_name, state, role_assignments
		 FROM subscription_details WHERE subscription_id = $1 ORDER BY id DESC LIMIT 1`, id,
	).Scan(&st.SubscriptionID, &st.DisplayName, &st.State, &st.RoleAssignments)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest status for %s: %w", id, err)
	}
	return &st, nil
}

// History returns every status row of a subscription, oldest first.
func (s *StatusService) History(ctx context.Context, id string) ([]model.SubscriptionDetail, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, subscription_id::text, display_name, state, role_assignments, time_created
		 FROM subscription_details WHERE subscription_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list status history for %s: %w", id, err)
	}
	defer rows.Close()

	var out []model.SubscriptionDetail
	for rows.Next() {
		var d model.SubscriptionDetail
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.DisplayName, &d.State, &d.RoleAssignments, &d.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return out, nil
}

func sameStatus(a, b model.SubscriptionStatus) bool {
	if a.DisplayName != b.DisplayName || a.State != b.State {
		return false
	}
	return slices.EqualFunc(a.RoleAssignments, b.RoleAssignments, func(x, y model.RoleAssignment) bool {
		return x.RoleDefinitionID == y.RoleDefinitionID && x.RoleName == y.RoleName &&
			x.PrincipalID == y.PrincipalID && x.DisplayName == y.DisplayName &&
			equalPtr(x.Mail, y.Mail) && equalPtr(x.Scope, y.Scope)
	})
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// replaceNUL substitutes the text "NUL" for NUL characters, which PostgreSQL
// text columns cannot hold.
func replaceNUL(st model.SubscriptionStatus) (model.SubscriptionStatus, bool) {
	changed := false
	fix := func(v string) string {
		if strings.ContainsRune(v, 0) {
			changed = true
			return strings.ReplaceAll(v, "\x00", "NUL")
		}
		return v
	}
	fixPtr := func(v *string) *string {
		if v == nil {
			return nil
		}
		out := fix(*v)
		return &out
	}

	st.DisplayName = fix(st.DisplayName)
	st.State = model.SubscriptionState(fix(string(st.State)))
	roles := make([]model.RoleAssignment, len(st.RoleAssignments))
	for i, r := range st.RoleAssignments {
		roles[i] = model.RoleAssignment{
			RoleDefinitionID: fix(r.RoleDefinitionID),
			RoleName:         fix(r.RoleName),
			PrincipalID:      fix(r.PrincipalID),
			DisplayName:      fix(r.DisplayName),
			Mail:             fixPtr(r.Mail),
			Scope:            fixPtr(r.Scope),
		}
	}
	if st.RoleAssignments != nil {
		st.RoleAssignments = roles
	}
	return st, changed
}

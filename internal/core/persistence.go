package core

import (
	"context"
	"fmt"

	"github.com/edvin/budget/internal/model"
)

// PersistenceService records the always-on flag of subscriptions.
type PersistenceService struct {
	db   DB
	subs *SubscriptionService
}

func NewPersistenceService(db DB, subs *SubscriptionService) *PersistenceService {
	return &PersistenceService{db: db, subs: subs}
}

// Set appends a persistence row. The latest row wins.
func (s *PersistenceService) Set(ctx context.Context, subID string, alwaysOn bool) (*model.Persistence, error) {
	if _, err := s.subs.GetByID(ctx, subID); err != nil {
		return nil, err
	}

	p := &model.Persistence{SubscriptionID: subID, AlwaysOn: alwaysOn}
	err := s.db.QueryRow(ctx,
		`INSERT INTO persistence (subscription_id, always_on) VALUES ($1, $2) RETURNING id, time_created`,
		subID, alwaysOn,
	).Scan(&p.ID, &p.TimeCreated)
	if err != nil {
		return nil, fmt.Errorf("insert persistence for %s: %w", subID, err)
	}
	return p, nil
}

package core

import "github.com/rs/zerolog"

type Services struct {
	Subscription *SubscriptionService
	Status       *StatusService
	Usage        *UsageService
	Approval     *ApprovalService
	Allocation   *AllocationService
	Finance      *FinanceService
	APIKey       *APIKeyService
	Email        *EmailService
	Abolish      *AbolishService
	Export       *ExportService
	DesiredState *DesiredStateService
	Persistence  *PersistenceService
}

func NewServices(db DB, locker Locker, whitelist Whitelist, logger zerolog.Logger) *Services {
	subs := NewSubscriptionService(db)
	return &Services{
		Subscription: subs,
		Status:       NewStatusService(db, logger),
		Usage:        NewUsageService(db, locker, subs, logger),
		Approval:     NewApprovalService(db, subs),
		Allocation:   NewAllocationService(db, subs),
		Finance:      NewFinanceService(db, subs),
		APIKey:       NewAPIKeyService(db),
		Email:        NewEmailService(db),
		Abolish:      NewAbolishService(db, subs, logger),
		Export:       NewExportService(subs),
		DesiredState: NewDesiredStateService(db, locker, whitelist, logger),
		Persistence:  NewPersistenceService(db, subs),
	}
}

package application

import (
	"context"
	"fmt"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"
	"rafflehub/domain/services"
	"rafflehub/infrastructure/observability"
)

// RaffleApplication runs every raffle operation inside its own unit of work.
// Events published by the service are released only after commit.
type RaffleApplication struct {
	uowFactory UnitOfWorkFactory
	paging     services.Paging
	metrics    *observability.MetricsProvider
}

// NewRaffleApplication creates a new raffle application
func NewRaffleApplication(uowFactory UnitOfWorkFactory, paging services.Paging, metrics *observability.MetricsProvider) *RaffleApplication {
	return &RaffleApplication{
		uowFactory: uowFactory,
		paging:     paging,
		metrics:    metrics,
	}
}

// withService begins a unit of work, runs fn against a raffle service bound
// to it, and commits on success
func (a *RaffleApplication) withService(ctx context.Context, operation string, fn func(interfaces.RaffleService) error) (err error) {
	defer func() { a.metrics.RecordOperation(operation, err) }()

	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	service := services.NewRaffleService(
		uow.RaffleRepository(),
		uow.TicketRepository(),
		uow.EntryRepository(),
		uow.RefundRepository(),
		uow.EventBus(),
		a.paging,
	)

	if err := fn(service); err != nil {
		return err
	}

	done := a.metrics.MeasureDatabaseQuery("unit_of_work", "Commit")
	defer done()
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateRaffle creates a new raffle
func (a *RaffleApplication) CreateRaffle(ctx context.Context, input interfaces.CreateRaffleInput) (string, error) {
	var id string
	err := a.withService(ctx, "create_raffle", func(s interfaces.RaffleService) error {
		var err error
		id, err = s.CreateRaffle(ctx, input)
		return err
	})
	if err != nil {
		return "", err
	}
	a.metrics.RecordRaffleTransition(string(entities.RaffleStatusActive))
	return id, nil
}

// ListActiveRaffles lists active raffles
func (a *RaffleApplication) ListActiveRaffles(ctx context.Context, query interfaces.ListRafflesQuery) (*interfaces.RafflePage, error) {
	var page *interfaces.RafflePage
	err := a.withService(ctx, "list_raffles", func(s interfaces.RaffleService) error {
		var err error
		page, err = s.ListActiveRaffles(ctx, query)
		return err
	})
	return page, err
}

// GetRaffleByID returns a single raffle
func (a *RaffleApplication) GetRaffleByID(ctx context.Context, id string) (*entities.Raffle, error) {
	var raffle *entities.Raffle
	err := a.withService(ctx, "get_raffle", func(s interfaces.RaffleService) error {
		var err error
		raffle, err = s.GetRaffleByID(ctx, id)
		return err
	})
	return raffle, err
}

// RegisterParticipant registers an answer submission
func (a *RaffleApplication) RegisterParticipant(ctx context.Context, id string, input interfaces.RegisterParticipantInput) (*interfaces.RegistrationResult, error) {
	var result *interfaces.RegistrationResult
	err := a.withService(ctx, "register_participant", func(s interfaces.RaffleService) error {
		var err error
		result, err = s.RegisterParticipant(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTicketsSold(1)
	return result, nil
}

// PurchaseTicket buys tickets
func (a *RaffleApplication) PurchaseTicket(ctx context.Context, id string, input interfaces.PurchaseTicketInput) (*interfaces.PurchaseResult, error) {
	var result *interfaces.PurchaseResult
	err := a.withService(ctx, "purchase_ticket", func(s interfaces.RaffleService) error {
		var err error
		result, err = s.PurchaseTicket(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordTicketsSold(input.TicketCount)
	return result, nil
}

// ConcludeRaffle draws a winner
func (a *RaffleApplication) ConcludeRaffle(ctx context.Context, id string) (*entities.Winner, error) {
	var winner *entities.Winner
	err := a.withService(ctx, "conclude_raffle", func(s interfaces.RaffleService) error {
		var err error
		winner, err = s.ConcludeRaffle(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.metrics.RecordRaffleTransition(string(entities.RaffleStatusCompleted))
	return winner, nil
}

// ExtendRaffle pushes the end time
func (a *RaffleApplication) ExtendRaffle(ctx context.Context, id string, additionalMinutes float64) (time.Time, error) {
	var end time.Time
	err := a.withService(ctx, "extend_raffle", func(s interfaces.RaffleService) error {
		var err error
		end, err = s.ExtendRaffle(ctx, id, additionalMinutes)
		return err
	})
	return end, err
}

// GetRaffleTransactions returns the merged ledger
func (a *RaffleApplication) GetRaffleTransactions(ctx context.Context, id string) ([]entities.LedgerEntry, error) {
	var ledger []entities.LedgerEntry
	err := a.withService(ctx, "get_transactions", func(s interfaces.RaffleService) error {
		var err error
		ledger, err = s.GetRaffleTransactions(ctx, id)
		return err
	})
	return ledger, err
}

// ListParticipants returns participant summaries
func (a *RaffleApplication) ListParticipants(ctx context.Context, id string, page, limit int) (*interfaces.ParticipantPage, error) {
	var result *interfaces.ParticipantPage
	err := a.withService(ctx, "list_participants", func(s interfaces.RaffleService) error {
		var err error
		result, err = s.ListParticipants(ctx, id, page, limit)
		return err
	})
	return result, err
}

// ExpireRaffle expires a lapsed raffle
func (a *RaffleApplication) ExpireRaffle(ctx context.Context, id string) ([]*entities.Refund, error) {
	var refunds []*entities.Refund
	err := a.withService(ctx, "expire_raffle", func(s interfaces.RaffleService) error {
		var err error
		refunds, err = s.ExpireRaffle(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if refunds != nil {
		a.metrics.RecordRaffleTransition(string(entities.RaffleStatusExpired))
	}
	return refunds, nil
}

var _ interfaces.RaffleService = (*RaffleApplication)(nil)

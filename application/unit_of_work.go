package application

import (
	"context"

	"rafflehub/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases buffered events
	Commit() error

	// Rollback rolls back the transaction and drops buffered events
	Rollback() error

	// Repository getters
	RaffleRepository() interfaces.RaffleRepository
	TicketRepository() interfaces.TicketRepository
	EntryRepository() interfaces.EntryRepository
	RefundRepository() interfaces.RefundRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

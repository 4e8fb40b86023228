package infrastructure

import (
	"rafflehub/application"
	"rafflehub/database"
	"rafflehub/domain/events"
	"rafflehub/domain/interfaces"
	"rafflehub/repository"
)

// UnitOfWorkFactory implements application.UnitOfWorkFactory. Each unit of
// work gets its own transactional publisher that feeds the shared publisher
// after commit.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(interfaces.TransactionalEventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// RegisterLocalHandler registers a handler on the shared publisher when it
// supports local delivery
func (f *UnitOfWorkFactory) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	if publisher, ok := f.eventPublisher.(*DomainEventPublisher); ok {
		publisher.RegisterLocalHandler(eventType, handler)
	}
}

// Create creates a new UnitOfWork with a fresh transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewTransactionalPublisher(f.eventPublisher))
}

var _ application.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)

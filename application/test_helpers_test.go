package application

import (
	"context"
	"errors"
	"sync"

	"rafflehub/domain/interfaces"
	"rafflehub/domain/testhelpers"
)

// fakeUnitOfWork hands out shared repository mocks and records its lifecycle
type fakeUnitOfWork struct {
	factory   *fakeUnitOfWorkFactory
	begun     bool
	committed bool
}

func (u *fakeUnitOfWork) Begin(context.Context) error {
	if u.factory.beginErr != nil {
		return u.factory.beginErr
	}
	u.begun = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if !u.begun {
		return errors.New("no transaction to commit")
	}
	u.committed = true
	u.factory.mu.Lock()
	u.factory.commits++
	u.factory.mu.Unlock()
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if u.begun && !u.committed {
		u.factory.mu.Lock()
		u.factory.rollbacks++
		u.factory.mu.Unlock()
	}
	u.begun = false
	return nil
}

func (u *fakeUnitOfWork) RaffleRepository() interfaces.RaffleRepository { return u.factory.raffleRepo }
func (u *fakeUnitOfWork) TicketRepository() interfaces.TicketRepository { return u.factory.ticketRepo }
func (u *fakeUnitOfWork) EntryRepository() interfaces.EntryRepository   { return u.factory.entryRepo }
func (u *fakeUnitOfWork) RefundRepository() interfaces.RefundRepository { return u.factory.refundRepo }
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher           { return u.factory.publisher }

// fakeUnitOfWorkFactory counts commits and rollbacks across units of work
type fakeUnitOfWorkFactory struct {
	raffleRepo *testhelpers.MockRaffleRepository
	ticketRepo *testhelpers.MockTicketRepository
	entryRepo  *testhelpers.MockEntryRepository
	refundRepo *testhelpers.MockRefundRepository
	publisher  *testhelpers.MockEventPublisher
	beginErr   error

	mu        sync.Mutex
	commits   int
	rollbacks int
}

func newFakeUnitOfWorkFactory() *fakeUnitOfWorkFactory {
	return &fakeUnitOfWorkFactory{
		raffleRepo: new(testhelpers.MockRaffleRepository),
		ticketRepo: new(testhelpers.MockTicketRepository),
		entryRepo:  new(testhelpers.MockEntryRepository),
		refundRepo: new(testhelpers.MockRefundRepository),
		publisher:  new(testhelpers.MockEventPublisher),
	}
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	return &fakeUnitOfWork{factory: f}
}

func (f *fakeUnitOfWorkFactory) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits, f.rollbacks
}

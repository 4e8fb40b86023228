package testhelpers

import (
	"context"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) ListActive(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) CountActive(ctx context.Context, filter entities.RaffleFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockRaffleRepository) ReserveTickets(ctx context.Context, id uuid.UUID, count int) (int, bool, error) {
	args := m.Called(ctx, id, count)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockRaffleRepository) ReserveEntrySlot(ctx context.Context, id uuid.UUID) (int, bool, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockRaffleRepository) ExtendEndTime(ctx context.Context, id uuid.UUID, d time.Duration) (*time.Time, error) {
	args := m.Called(ctx, id, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockRaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetExpiredActive(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetNextEndTime(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*entities.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Ticket, error) {
	args := m.Called(ctx, raffleID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ExistsForParticipant(ctx context.Context, raffleID uuid.UUID, participantID string) (bool, error) {
	args := m.Called(ctx, raffleID, participantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) GetParticipantSummary(ctx context.Context, raffleID uuid.UUID, limit, offset int) ([]*entities.ParticipantSummary, error) {
	args := m.Called(ctx, raffleID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ParticipantSummary), args.Error(1)
}

func (m *MockTicketRepository) CountParticipants(ctx context.Context, raffleID uuid.UUID) (int, error) {
	args := m.Called(ctx, raffleID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) GetRefundEligible(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkRefunded(ctx context.Context, raffleID uuid.UUID) error {
	args := m.Called(ctx, raffleID)
	return args.Error(0)
}

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *entities.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Entry, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Entry), args.Error(1)
}

func (m *MockEntryRepository) GetCorrectByRaffle(ctx context.Context, raffleID uuid.UUID) ([]entities.Entry, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Entry), args.Error(1)
}

func (m *MockEntryRepository) CountCorrect(ctx context.Context, raffleID uuid.UUID) (int, error) {
	args := m.Called(ctx, raffleID)
	return args.Int(0), args.Error(1)
}

// MockRefundRepository is a mock implementation of RefundRepository
type MockRefundRepository struct {
	mock.Mock
}

func (m *MockRefundRepository) CreateBatch(ctx context.Context, refunds []*entities.Refund) error {
	args := m.Called(ctx, refunds)
	return args.Error(0)
}

func (m *MockRefundRepository) GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Refund, error) {
	args := m.Called(ctx, raffleID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Refund), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

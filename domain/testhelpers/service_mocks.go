package testhelpers

import (
	"context"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockRaffleService is a mock implementation of RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) CreateRaffle(ctx context.Context, input interfaces.CreateRaffleInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockRaffleService) ListActiveRaffles(ctx context.Context, query interfaces.ListRafflesQuery) (*interfaces.RafflePage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RafflePage), args.Error(1)
}

func (m *MockRaffleService) GetRaffleByID(ctx context.Context, id string) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleService) RegisterParticipant(ctx context.Context, id string, input interfaces.RegisterParticipantInput) (*interfaces.RegistrationResult, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RegistrationResult), args.Error(1)
}

func (m *MockRaffleService) PurchaseTicket(ctx context.Context, id string, input interfaces.PurchaseTicketInput) (*interfaces.PurchaseResult, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PurchaseResult), args.Error(1)
}

func (m *MockRaffleService) ConcludeRaffle(ctx context.Context, id string) (*entities.Winner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Winner), args.Error(1)
}

func (m *MockRaffleService) ExtendRaffle(ctx context.Context, id string, additionalMinutes float64) (time.Time, error) {
	args := m.Called(ctx, id, additionalMinutes)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockRaffleService) GetRaffleTransactions(ctx context.Context, id string) ([]entities.LedgerEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.LedgerEntry), args.Error(1)
}

func (m *MockRaffleService) ListParticipants(ctx context.Context, id string, page, limit int) (*interfaces.ParticipantPage, error) {
	args := m.Called(ctx, id, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ParticipantPage), args.Error(1)
}

func (m *MockRaffleService) ExpireRaffle(ctx context.Context, id string) ([]*entities.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Refund), args.Error(1)
}

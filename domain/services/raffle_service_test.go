package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/events"
	"rafflehub/domain/interfaces"
	"rafflehub/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// raffleMocks aggregates the repository mocks used by the raffle service
type raffleMocks struct {
	raffleRepo     *testhelpers.MockRaffleRepository
	ticketRepo     *testhelpers.MockTicketRepository
	entryRepo      *testhelpers.MockEntryRepository
	refundRepo     *testhelpers.MockRefundRepository
	eventPublisher *testhelpers.MockEventPublisher
}

func newRaffleMocks() *raffleMocks {
	return &raffleMocks{
		raffleRepo:     new(testhelpers.MockRaffleRepository),
		ticketRepo:     new(testhelpers.MockTicketRepository),
		entryRepo:      new(testhelpers.MockEntryRepository),
		refundRepo:     new(testhelpers.MockRefundRepository),
		eventPublisher: new(testhelpers.MockEventPublisher),
	}
}

func (m *raffleMocks) assertExpectations(t *testing.T) {
	m.raffleRepo.AssertExpectations(t)
	m.ticketRepo.AssertExpectations(t)
	m.entryRepo.AssertExpectations(t)
	m.refundRepo.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func newTestService(m *raffleMocks) *raffleService {
	svc := NewRaffleService(m.raffleRepo, m.ticketRepo, m.entryRepo, m.refundRepo, m.eventPublisher, DefaultPaging).(*raffleService)
	svc.now = func() time.Time { return testNow }
	return svc
}

// createTestRaffle builds an active raffle with common defaults
func createTestRaffle(opts ...func(*entities.Raffle)) *entities.Raffle {
	raffle := &entities.Raffle{
		ID:       uuid.New(),
		RaffleID: "client-raffle-1",
		EntryFee: decimal.RequireFromString("0.5"),
		PrizeDetails: entities.PrizeDetails{
			Type:   "token",
			Title:  "Prize",
			Amount: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		},
		Participants: entities.Participants{Max: 5, Min: 1},
		Time: entities.RaffleTime{
			Start:   testNow.Add(-time.Hour),
			End:     testNow.Add(time.Hour),
			Created: testNow.Add(-2 * time.Hour),
		},
		Question: entities.Question{
			Text:          "Pick one",
			Options:       []string{"A", "B", "C"},
			CorrectAnswer: "A",
		},
		Status: entities.Status{
			Current:     entities.RaffleStatusActive,
			Fulfillment: entities.FulfillmentPending,
		},
	}
	for _, opt := range opts {
		opt(raffle)
	}
	return raffle
}

func validCreateInput() interfaces.CreateRaffleInput {
	fee := decimal.RequireFromString("1.25")
	maxParticipants, minParticipants := 10, 2
	start := testNow
	end := testNow.Add(24 * time.Hour)
	return interfaces.CreateRaffleInput{
		RaffleID:        "r-1",
		EntryFee:        &fee,
		PrizeDetails:    entities.PrizeDetails{Type: "nft", Title: "Rare"},
		MaxParticipants: &maxParticipants,
		MinParticipants: &minParticipants,
		StartTime:       &start,
		EndTime:         &end,
		QuestionText:    "2+2?",
		QuestionOptions: []string{"3", "4", "5"},
		CorrectAnswer:   "4",
	}
}

func TestRaffleService_CreateRaffle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		modify      func(*interfaces.CreateRaffleInput)
		wantFields  []string
		errContains string
	}{
		{
			name:   "valid input",
			modify: func(*interfaces.CreateRaffleInput) {},
		},
		{
			name: "missing fields are all reported",
			modify: func(in *interfaces.CreateRaffleInput) {
				in.RaffleID = ""
				in.EntryFee = nil
				in.QuestionOptions = nil
			},
			wantFields: []string{"raffleId", "entryFee", "question.options"},
		},
		{
			name: "non-positive entry fee",
			modify: func(in *interfaces.CreateRaffleInput) {
				zero := decimal.Zero
				in.EntryFee = &zero
			},
			wantFields:  []string{"entryFee"},
			errContains: "positive",
		},
		{
			name: "min exceeds max",
			modify: func(in *interfaces.CreateRaffleInput) {
				minParticipants := 11
				in.MinParticipants = &minParticipants
			},
			wantFields:  []string{"participants.min"},
			errContains: "exceed",
		},
		{
			name: "end before start",
			modify: func(in *interfaces.CreateRaffleInput) {
				end := in.StartTime.Add(-time.Minute)
				in.EndTime = &end
			},
			wantFields:  []string{"time.end"},
			errContains: "after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mocks := newRaffleMocks()
			svc := newTestService(mocks)

			input := validCreateInput()
			tt.modify(&input)

			if tt.wantFields == nil {
				mocks.raffleRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.Raffle) bool {
					return r.IsActive() &&
						r.Participants.TicketsSold == 0 &&
						r.Status.Fulfillment == entities.FulfillmentPending &&
						r.Question.CorrectAnswer == "4" &&
						assert.ObjectsAreEqual([]string{"3", "4", "5"}, r.Question.Options) &&
						r.Time.Created.Equal(testNow)
				})).Return(nil)
			}

			id, err := svc.CreateRaffle(context.Background(), input)

			if tt.wantFields != nil {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.wantFields, validationErr.Fields)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				assert.Empty(t, id)
			} else {
				require.NoError(t, err)
				_, parseErr := uuid.Parse(id)
				assert.NoError(t, parseErr)
			}

			mocks.assertExpectations(t)
		})
	}
}

func TestRaffleService_CreateRaffle_StoreFailure(t *testing.T) {
	t.Parallel()

	mocks := newRaffleMocks()
	svc := newTestService(mocks)

	dbErr := errors.New("connection reset")
	mocks.raffleRepo.On("Create", mock.Anything, mock.Anything).Return(dbErr)

	_, err := svc.CreateRaffle(context.Background(), validCreateInput())

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, dbErr)
}

func TestRaffleService_ListActiveRaffles(t *testing.T) {
	t.Parallel()

	t.Run("applies paging defaults and display defaults", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.PrizeDetails.Title = ""
		})
		expectedFilter := entities.RaffleFilter{
			SortField: entities.SortByStartTime,
			Limit:     10,
			Offset:    10,
		}
		mocks.raffleRepo.On("ListActive", mock.Anything, expectedFilter).Return([]*entities.Raffle{raffle}, nil)
		mocks.raffleRepo.On("CountActive", mock.Anything, expectedFilter).Return(11, nil)

		page, err := svc.ListActiveRaffles(context.Background(), interfaces.ListRafflesQuery{Page: 2})

		require.NoError(t, err)
		require.Len(t, page.Raffles, 1)
		assert.Equal(t, entities.DisplayPlaceholder, page.Raffles[0].PrizeDetails.Title)
		assert.Equal(t, interfaces.PageMeta{Page: 2, Limit: 10, Total: 11, TotalPages: 2}, page.Meta)
		mocks.assertExpectations(t)
	})

	t.Run("caps limit and passes filters", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		maxParticipants := 50
		expectedFilter := entities.RaffleFilter{
			PrizeType:       "nft",
			MaxParticipants: &maxParticipants,
			Fulfillment:     entities.FulfillmentPending,
			SortField:       entities.SortByEntryFee,
			SortDescending:  true,
			Limit:           100,
			Offset:          0,
		}
		mocks.raffleRepo.On("ListActive", mock.Anything, expectedFilter).Return([]*entities.Raffle{}, nil)
		mocks.raffleRepo.On("CountActive", mock.Anything, expectedFilter).Return(0, nil)

		page, err := svc.ListActiveRaffles(context.Background(), interfaces.ListRafflesQuery{
			PrizeType:       "nft",
			MaxParticipants: &maxParticipants,
			Fulfillment:     "pending",
			SortField:       "entryFee",
			SortDescending:  true,
			Page:            0,
			Limit:           500,
		})

		require.NoError(t, err)
		assert.Empty(t, page.Raffles)
		assert.Equal(t, 0, page.Meta.TotalPages)
		mocks.assertExpectations(t)
	})

	t.Run("rejects unknown fulfillment", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		_, err := svc.ListActiveRaffles(context.Background(), interfaces.ListRafflesQuery{Fulfillment: "shipped"})

		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		mocks.assertExpectations(t)
	})
}

func TestPaging_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults", 0, 0, 1, 10},
		{"negative page", -3, 5, 1, 5},
		{"limit capped", 2, 1000, 2, 100},
		{"huge page clamped", math.MaxInt, 100, MaxPage, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, limit := DefaultPaging.normalize(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
			assert.GreaterOrEqual(t, (page-1)*limit, 0)
		})
	}
}

func TestRaffleService_ListActiveRaffles_HugePage(t *testing.T) {
	t.Parallel()

	mocks := newRaffleMocks()
	svc := newTestService(mocks)

	expectedFilter := entities.RaffleFilter{
		SortField: entities.SortByStartTime,
		Limit:     10,
		Offset:    (MaxPage - 1) * 10,
	}
	mocks.raffleRepo.On("ListActive", mock.Anything, expectedFilter).Return([]*entities.Raffle{}, nil)
	mocks.raffleRepo.On("CountActive", mock.Anything, expectedFilter).Return(3, nil)

	page, err := svc.ListActiveRaffles(context.Background(), interfaces.ListRafflesQuery{Page: math.MaxInt})

	require.NoError(t, err)
	assert.Empty(t, page.Raffles)
	assert.Equal(t, MaxPage, page.Meta.Page)
	mocks.assertExpectations(t)
}

func TestRaffleService_GetRaffleByID(t *testing.T) {
	t.Parallel()

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		_, err := svc.GetRaffleByID(context.Background(), "not-a-uuid")

		var invalidErr *InvalidIDError
		assert.ErrorAs(t, err, &invalidErr)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		id := uuid.New()
		mocks.raffleRepo.On("GetByID", mock.Anything, id).Return(nil, nil)

		_, err := svc.GetRaffleByID(context.Background(), id.String())

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
		mocks.assertExpectations(t)
	})

	t.Run("splits entries by correctness", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		raffle := createTestRaffle()
		tickets := []*entities.Ticket{{ID: 1, ParticipantID: "p1"}, {ID: 2, ParticipantID: "p2"}}
		entries := []*entities.Entry{
			{ParticipantID: "p1", Answer: "A", IsCorrect: true},
			{ParticipantID: "p2", Answer: "B", IsCorrect: false},
		}
		mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.ticketRepo.On("GetByRaffle", mock.Anything, raffle.ID).Return(tickets, nil)
		mocks.entryRepo.On("GetByRaffle", mock.Anything, raffle.ID).Return(entries, nil)

		got, err := svc.GetRaffleByID(context.Background(), raffle.ID.String())

		require.NoError(t, err)
		assert.Len(t, got.Participants.Tickets, 2)
		require.Len(t, got.Participants.Correct, 1)
		require.Len(t, got.Participants.Incorrect, 1)
		assert.Equal(t, "p1", got.Participants.Correct[0].ParticipantID)
		assert.Equal(t, "p2", got.Participants.Incorrect[0].ParticipantID)
		mocks.assertExpectations(t)
	})
}

func TestRaffleService_RegisterParticipant(t *testing.T) {
	t.Parallel()

	amount := decimal.RequireFromString("0.5")
	baseInput := interfaces.RegisterParticipantInput{
		ParticipantID: "p1",
		Name:          "Alice",
		Pubkey:        "pk1",
		Answer:        "A",
		AmountPaid:    &amount,
	}

	tests := []struct {
		name        string
		raffle      *entities.Raffle
		input       interfaces.RegisterParticipantInput
		setupMocks  func(*raffleMocks, *entities.Raffle)
		wantCorrect bool
		wantErr     interface{}
	}{
		{
			name:   "correct answer",
			raffle: createTestRaffle(),
			input:  baseInput,
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(false, nil)
				m.raffleRepo.On("ReserveEntrySlot", mock.Anything, r.ID).Return(1, true, nil)
				m.entryRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.Entry) bool {
					return e.IsCorrect && e.RegisteredAt.Equal(testNow)
				})).Return(nil)
				m.ticketRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(tickets []*entities.Ticket) bool {
					return len(tickets) == 1 && tickets[0].RefundEligible && tickets[0].AmountPaid.Equal(amount)
				})).Return(nil)
				m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.ParticipantUpdateEvent) bool {
					return e.TicketsSold == 1 && e.AvailableTickets == 4 && e.Name == "Alice"
				})).Return(nil)
			},
			wantCorrect: true,
		},
		{
			name:   "answers are compared without normalization",
			raffle: createTestRaffle(),
			input: func() interfaces.RegisterParticipantInput {
				in := baseInput
				in.Answer = "a"
				return in
			}(),
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(false, nil)
				m.raffleRepo.On("ReserveEntrySlot", mock.Anything, r.ID).Return(1, true, nil)
				m.entryRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.ticketRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
				m.eventPublisher.On("Publish", mock.Anything).Return(nil)
			},
			wantCorrect: false,
		},
		{
			name:    "missing fields",
			raffle:  createTestRaffle(),
			input:   interfaces.RegisterParticipantInput{ParticipantID: "p1"},
			wantErr: &ValidationError{},
		},
		{
			name:   "participant already holds a ticket",
			raffle: createTestRaffle(),
			input:  baseInput,
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(true, nil)
			},
			wantErr: &DuplicateParticipantError{},
		},
		{
			name: "shipping required but incomplete",
			raffle: createTestRaffle(func(r *entities.Raffle) {
				r.PrizeDetails.RequiresShipping = true
			}),
			input: func() interfaces.RegisterParticipantInput {
				in := baseInput
				in.ShippingInfo = &entities.ShippingInfo{FullName: "Alice"}
				return in
			}(),
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(false, nil)
			},
			wantErr: &ValidationError{},
		},
		{
			name:   "raffle full",
			raffle: createTestRaffle(),
			input:  baseInput,
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(false, nil)
				m.raffleRepo.On("ReserveEntrySlot", mock.Anything, r.ID).Return(0, false, nil)
			},
			wantErr: &InsufficientTicketsError{},
		},
		{
			name:   "concurrent duplicate entry",
			raffle: createTestRaffle(),
			input:  baseInput,
			setupMocks: func(m *raffleMocks, r *entities.Raffle) {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, r.ID).Return(r, nil)
				m.ticketRepo.On("ExistsForParticipant", mock.Anything, r.ID, "p1").Return(false, nil)
				m.raffleRepo.On("ReserveEntrySlot", mock.Anything, r.ID).Return(1, true, nil)
				m.entryRepo.On("Create", mock.Anything, mock.Anything).Return(interfaces.ErrDuplicate)
			},
			wantErr: &DuplicateParticipantError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mocks := newRaffleMocks()
			svc := newTestService(mocks)
			if tt.setupMocks != nil {
				tt.setupMocks(mocks, tt.raffle)
			}

			result, err := svc.RegisterParticipant(context.Background(), tt.raffle.ID.String(), tt.input)

			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
				assert.Equal(t, tt.wantCorrect, result.IsCorrect)
			case *ValidationError:
				assert.ErrorAs(t, err, &want)
			case *DuplicateParticipantError:
				assert.ErrorAs(t, err, &want)
			case *InsufficientTicketsError:
				assert.ErrorAs(t, err, &want)
			}

			mocks.assertExpectations(t)
		})
	}
}

func TestRaffleService_PurchaseTicket(t *testing.T) {
	t.Parallel()

	sig := "sig-123"
	input := interfaces.PurchaseTicketInput{
		ParticipantID:        "buyer",
		Pubkey:               "pk",
		TicketCount:          3,
		TransactionSignature: &sig,
	}

	t.Run("successful purchase", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Participants.TicketsSold = 1
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.raffleRepo.On("ReserveTickets", mock.Anything, raffle.ID, 3).Return(4, true, nil)
		mocks.ticketRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(tickets []*entities.Ticket) bool {
			if len(tickets) != 3 {
				return false
			}
			for _, ticket := range tickets {
				if !ticket.AmountPaid.Equal(raffle.EntryFee) || ticket.TransactionSignature == nil || *ticket.TransactionSignature != sig {
					return false
				}
			}
			return true
		})).Return(nil)
		mocks.eventPublisher.On("Publish", events.RaffleUpdateEvent{
			RaffleID:         raffle.ID,
			TicketsSold:      4,
			AvailableTickets: 1,
		}).Return(nil)

		result, err := svc.PurchaseTicket(context.Background(), raffle.ID.String(), input)

		require.NoError(t, err)
		assert.Equal(t, &interfaces.PurchaseResult{TicketsSold: 4, AvailableTickets: 1}, result)
		mocks.assertExpectations(t)
	})

	t.Run("exceeding capacity is rejected before reserving", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Participants.TicketsSold = 4
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)

		_, err := svc.PurchaseTicket(context.Background(), raffle.ID.String(), input)

		var insufficient *InsufficientTicketsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 3, insufficient.Requested)
		assert.Equal(t, 1, insufficient.Available)
		mocks.raffleRepo.AssertNotCalled(t, "ReserveTickets", mock.Anything, mock.Anything, mock.Anything)
		mocks.assertExpectations(t)
	})

	t.Run("inactive raffle", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Status.Current = entities.RaffleStatusCompleted
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)

		_, err := svc.PurchaseTicket(context.Background(), raffle.ID.String(), input)

		var notActive *RaffleNotActiveError
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, "completed", notActive.Status)
		mocks.assertExpectations(t)
	})

	t.Run("zero ticket count", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		bad := input
		bad.TicketCount = 0
		_, err := svc.PurchaseTicket(context.Background(), uuid.NewString(), bad)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, []string{"ticketCount"}, validationErr.Fields)
	})

	t.Run("lost race on conditional reserve", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle()

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.raffleRepo.On("ReserveTickets", mock.Anything, raffle.ID, 3).Return(0, false, nil)

		_, err := svc.PurchaseTicket(context.Background(), raffle.ID.String(), input)

		var insufficient *InsufficientTicketsError
		assert.ErrorAs(t, err, &insufficient)
		mocks.ticketRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
		mocks.assertExpectations(t)
	})
}

func TestRaffleService_ConcludeRaffle(t *testing.T) {
	t.Parallel()

	t.Run("draws winner among correct entries", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Participants.Min = 2
		})
		correct := []entities.Entry{
			{ParticipantID: "p1", Pubkey: "pk1", IsCorrect: true},
			{ParticipantID: "p2", Pubkey: "pk2", IsCorrect: true},
		}

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.entryRepo.On("GetCorrectByRaffle", mock.Anything, raffle.ID).Return(correct, nil)
		mocks.raffleRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Raffle) bool {
			return r.Status.Current == entities.RaffleStatusCompleted &&
				r.Status.Fulfillment == entities.FulfillmentFulfilledOffChain &&
				r.Winner != nil
		})).Return(nil)
		mocks.eventPublisher.On("Publish", mock.AnythingOfType("events.RaffleConcludedEvent")).Return(nil)

		winner, err := svc.ConcludeRaffle(context.Background(), raffle.ID.String())

		require.NoError(t, err)
		assert.Contains(t, []string{"p1", "p2"}, winner.ParticipantID)
		assert.True(t, winner.AmountWon.Equal(decimal.NewFromInt(10)))
		mocks.assertExpectations(t)
	})

	t.Run("threshold not met", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Participants.Min = 2
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.entryRepo.On("GetCorrectByRaffle", mock.Anything, raffle.ID).Return([]entities.Entry{{ParticipantID: "p1"}}, nil)

		_, err := svc.ConcludeRaffle(context.Background(), raffle.ID.String())

		var thresholdErr *ThresholdNotMetError
		require.ErrorAs(t, err, &thresholdErr)
		assert.Equal(t, 1, thresholdErr.Have)
		assert.Equal(t, 2, thresholdErr.Need)
		mocks.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mocks.assertExpectations(t)
	})

	t.Run("zero minimum with no correct entries", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Participants.Min = 0
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.entryRepo.On("GetCorrectByRaffle", mock.Anything, raffle.ID).Return([]entities.Entry{}, nil)

		_, err := svc.ConcludeRaffle(context.Background(), raffle.ID.String())

		var thresholdErr *ThresholdNotMetError
		assert.ErrorAs(t, err, &thresholdErr)
		mocks.assertExpectations(t)
	})

	t.Run("already concluded", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Status.Current = entities.RaffleStatusCompleted
		})

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)

		_, err := svc.ConcludeRaffle(context.Background(), raffle.ID.String())

		var notActive *RaffleNotActiveError
		assert.ErrorAs(t, err, &notActive)
		mocks.assertExpectations(t)
	})
}

func TestRaffleService_ExtendRaffle(t *testing.T) {
	t.Parallel()

	t.Run("extends active raffle", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle()
		newEnd := raffle.Time.End.Add(90 * time.Second)

		mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.raffleRepo.On("ExtendEndTime", mock.Anything, raffle.ID, 90*time.Second).Return(&newEnd, nil)
		mocks.eventPublisher.On("Publish", mock.MatchedBy(func(e events.RaffleUpdateEvent) bool {
			return e.EndTime != nil && e.EndTime.Equal(newEnd)
		})).Return(nil)

		got, err := svc.ExtendRaffle(context.Background(), raffle.ID.String(), 1.5)

		require.NoError(t, err)
		assert.True(t, got.Equal(newEnd))
		mocks.assertExpectations(t)
	})

	t.Run("rejects non-positive minutes", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)

		_, err := svc.ExtendRaffle(context.Background(), uuid.NewString(), 0)

		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("rejects minutes beyond duration range", func(t *testing.T) {
		t.Parallel()

		for _, minutes := range []float64{2e8, 1e300} {
			mocks := newRaffleMocks()
			svc := newTestService(mocks)

			_, err := svc.ExtendRaffle(context.Background(), uuid.NewString(), minutes)

			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr, "minutes=%g", minutes)
			mocks.raffleRepo.AssertNotCalled(t, "ExtendEndTime", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("accepts largest representable extension", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle()
		newEnd := raffle.Time.End.Add(time.Duration(maxExtensionMinutes) * time.Minute)

		mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.raffleRepo.On("ExtendEndTime", mock.Anything, raffle.ID, mock.MatchedBy(func(d time.Duration) bool {
			return d > 0
		})).Return(&newEnd, nil)
		mocks.eventPublisher.On("Publish", mock.Anything).Return(nil)

		got, err := svc.ExtendRaffle(context.Background(), raffle.ID.String(), maxExtensionMinutes)

		require.NoError(t, err)
		assert.True(t, got.After(raffle.Time.End))
		mocks.assertExpectations(t)
	})

	t.Run("rejects expired raffle", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(func(r *entities.Raffle) {
			r.Status.Current = entities.RaffleStatusExpired
		})

		mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)

		_, err := svc.ExtendRaffle(context.Background(), raffle.ID.String(), 10)

		var notActive *RaffleNotActiveError
		assert.ErrorAs(t, err, &notActive)
		mocks.assertExpectations(t)
	})
}

func TestRaffleService_GetRaffleTransactions(t *testing.T) {
	t.Parallel()

	mocks := newRaffleMocks()
	svc := newTestService(mocks)
	raffle := createTestRaffle()

	ticketID := int64(1)
	tickets := []*entities.Ticket{
		{ID: 1, ParticipantID: "p1", PurchaseTime: testNow.Add(-2 * time.Minute), AmountPaid: decimal.NewFromInt(1)},
	}
	refunds := []*entities.Refund{
		{ID: 1, TicketID: &ticketID, ParticipantID: "p1", RefundedAt: testNow, Amount: decimal.NewFromInt(1)},
	}

	mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
	mocks.ticketRepo.On("GetRecentByRaffle", mock.Anything, raffle.ID, entities.MaxLedgerEntries).Return(tickets, nil)
	mocks.refundRepo.On("GetRecentByRaffle", mock.Anything, raffle.ID, entities.MaxLedgerEntries).Return(refunds, nil)

	ledger, err := svc.GetRaffleTransactions(context.Background(), raffle.ID.String())

	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, entities.LedgerEntryRefund, ledger[0].Type)
	assert.Equal(t, entities.LedgerEntryPurchase, ledger[1].Type)
	mocks.assertExpectations(t)
}

func TestRaffleService_ListParticipants(t *testing.T) {
	t.Parallel()

	mocks := newRaffleMocks()
	svc := newTestService(mocks)
	raffle := createTestRaffle()

	summaries := []*entities.ParticipantSummary{
		{ParticipantID: "p1", TicketCount: 3, TotalPaid: decimal.NewFromFloat(1.5)},
	}

	mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
	mocks.ticketRepo.On("GetParticipantSummary", mock.Anything, raffle.ID, 5, 5).Return(summaries, nil)
	mocks.ticketRepo.On("CountParticipants", mock.Anything, raffle.ID).Return(6, nil)

	page, err := svc.ListParticipants(context.Background(), raffle.ID.String(), 2, 5)

	require.NoError(t, err)
	assert.Equal(t, summaries, page.Participants)
	assert.Equal(t, interfaces.PageMeta{Page: 2, Limit: 5, Total: 6, TotalPages: 2}, page.Meta)
	mocks.assertExpectations(t)
}

func TestRaffleService_ExpireRaffle(t *testing.T) {
	t.Parallel()

	pastEnd := func(r *entities.Raffle) {
		r.Time.End = testNow.Add(-time.Minute)
		r.Participants.Min = 3
	}

	t.Run("refunds eligible tickets", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(pastEnd)
		tickets := []*entities.Ticket{
			{ID: 7, RaffleID: raffle.ID, ParticipantID: "p1", AmountPaid: decimal.NewFromInt(1), RefundEligible: true},
			{ID: 8, RaffleID: raffle.ID, ParticipantID: "p2", AmountPaid: decimal.NewFromInt(1), RefundEligible: true},
		}

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.entryRepo.On("CountCorrect", mock.Anything, raffle.ID).Return(1, nil)
		mocks.ticketRepo.On("GetRefundEligible", mock.Anything, raffle.ID).Return(tickets, nil)
		mocks.refundRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(refunds []*entities.Refund) bool {
			return len(refunds) == 2 && *refunds[0].TicketID == 7 && !refunds[0].OnChain
		})).Return(nil)
		mocks.ticketRepo.On("MarkRefunded", mock.Anything, raffle.ID).Return(nil)
		mocks.raffleRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.Raffle) bool {
			return r.Status.Current == entities.RaffleStatusExpired && r.Analytics.TotalRefunds == 2
		})).Return(nil)
		mocks.eventPublisher.On("Publish", mock.MatchedBy(func(e events.NotificationEvent) bool {
			return e.Status == entities.RaffleStatusExpired && e.RefundCount == 2
		})).Return(nil)

		refunds, err := svc.ExpireRaffle(context.Background(), raffle.ID.String())

		require.NoError(t, err)
		assert.Len(t, refunds, 2)
		mocks.assertExpectations(t)
	})

	t.Run("not yet ended", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle()

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)

		refunds, err := svc.ExpireRaffle(context.Background(), raffle.ID.String())

		require.NoError(t, err)
		assert.Nil(t, refunds)
		mocks.assertExpectations(t)
	})

	t.Run("threshold met leaves raffle for conclusion", func(t *testing.T) {
		t.Parallel()

		mocks := newRaffleMocks()
		svc := newTestService(mocks)
		raffle := createTestRaffle(pastEnd)

		mocks.raffleRepo.On("GetByIDForUpdate", mock.Anything, raffle.ID).Return(raffle, nil)
		mocks.entryRepo.On("CountCorrect", mock.Anything, raffle.ID).Return(3, nil)

		refunds, err := svc.ExpireRaffle(context.Background(), raffle.ID.String())

		require.NoError(t, err)
		assert.Nil(t, refunds)
		mocks.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		mocks.assertExpectations(t)
	})
}

func TestRaffleService_PublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	mocks := newRaffleMocks()
	svc := newTestService(mocks)
	raffle := createTestRaffle()
	newEnd := raffle.Time.End.Add(time.Minute)

	mocks.raffleRepo.On("GetByID", mock.Anything, raffle.ID).Return(raffle, nil)
	mocks.raffleRepo.On("ExtendEndTime", mock.Anything, raffle.ID, time.Minute).Return(&newEnd, nil)
	mocks.eventPublisher.On("Publish", mock.Anything).Return(errors.New("bus down"))

	_, err := svc.ExtendRaffle(context.Background(), raffle.ID.String(), 1)

	assert.NoError(t, err)
	mocks.assertExpectations(t)
}

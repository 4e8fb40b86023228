package interfaces

import (
	"context"
	"time"

	"rafflehub/domain/entities"

	"github.com/shopspring/decimal"
)

// RaffleService manages the lifecycle of raffles: creation, ticket sales,
// registration, conclusion, extension and expiry
type RaffleService interface {
	// CreateRaffle validates and persists a new active raffle, returning its ID
	CreateRaffle(ctx context.Context, input CreateRaffleInput) (string, error)

	// ListActiveRaffles returns one page of active raffles and the total match count
	ListActiveRaffles(ctx context.Context, query ListRafflesQuery) (*RafflePage, error)

	// GetRaffleByID returns a raffle with display defaults applied
	GetRaffleByID(ctx context.Context, id string) (*entities.Raffle, error)

	// RegisterParticipant records an answer submission and one ticket
	RegisterParticipant(ctx context.Context, id string, input RegisterParticipantInput) (*RegistrationResult, error)

	// PurchaseTicket appends ticketCount tickets for the buyer
	PurchaseTicket(ctx context.Context, id string, input PurchaseTicketInput) (*PurchaseResult, error)

	// ConcludeRaffle draws a winner from the correct entries
	ConcludeRaffle(ctx context.Context, id string) (*entities.Winner, error)

	// ExtendRaffle pushes the end time of an active raffle
	ExtendRaffle(ctx context.Context, id string, additionalMinutes float64) (time.Time, error)

	// GetRaffleTransactions returns the merged purchase/refund history
	GetRaffleTransactions(ctx context.Context, id string) ([]entities.LedgerEntry, error)

	// ListParticipants returns one page of per-participant ticket summaries
	ListParticipants(ctx context.Context, id string, page, limit int) (*ParticipantPage, error)

	// ExpireRaffle closes an active raffle whose end time passed without
	// enough correct entries, recording refunds for its tickets
	ExpireRaffle(ctx context.Context, id string) ([]*entities.Refund, error)
}

// CreateRaffleInput carries a new raffle definition. Pointer fields
// distinguish missing values from zero values.
type CreateRaffleInput struct {
	RaffleID        string
	EntryFee        *decimal.Decimal
	PrizeDetails    entities.PrizeDetails
	MaxParticipants *int
	MinParticipants *int
	StartTime       *time.Time
	EndTime         *time.Time
	QuestionText    string
	QuestionOptions []string
	CorrectAnswer   string
	IsOnChain       bool
}

// ListRafflesQuery is the caller's view of filtering and paging
type ListRafflesQuery struct {
	PrizeType       string
	MaxParticipants *int
	Fulfillment     string
	SortField       string
	SortDescending  bool
	Page            int
	Limit           int
}

// PageMeta describes a page of results
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes the page count for total items
func NewPageMeta(page, limit, total int) PageMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PageMeta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// RafflePage is one page of active raffles
type RafflePage struct {
	Raffles []*entities.Raffle
	Meta    PageMeta
}

// ParticipantPage is one page of participant summaries
type ParticipantPage struct {
	Participants []*entities.ParticipantSummary
	Meta         PageMeta
}

// RegisterParticipantInput carries an answer submission
type RegisterParticipantInput struct {
	ParticipantID string
	Name          string
	Pubkey        string
	Answer        string
	AmountPaid    *decimal.Decimal
	ShippingInfo  *entities.ShippingInfo
}

// RegistrationResult only reveals whether the answer was correct
type RegistrationResult struct {
	IsCorrect bool `json:"isCorrect"`
}

// PurchaseTicketInput carries a ticket purchase
type PurchaseTicketInput struct {
	ParticipantID        string
	Pubkey               string
	TicketCount          int
	TransactionSignature *string
}

// PurchaseResult reports the counters after a purchase
type PurchaseResult struct {
	TicketsSold      int `json:"ticketsSold"`
	AvailableTickets int `json:"availableTickets"`
}

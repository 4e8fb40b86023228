package interfaces

import (
	"context"
	"errors"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/events"

	"github.com/google/uuid"
)

// ErrDuplicate is returned by repositories when a unique constraint rejects a row
var ErrDuplicate = errors.New("duplicate record")

// RaffleRepository defines the interface for raffle data access
type RaffleRepository interface {
	// Create inserts a new raffle; the ID must already be assigned
	Create(ctx context.Context, raffle *entities.Raffle) error

	// GetByID returns the raffle row without its ticket or entry lists, nil if absent
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Raffle, error)

	// GetByIDForUpdate is GetByID with a row lock held until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Raffle, error)

	// ListActive returns active raffles matching the filter
	ListActive(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, error)

	// CountActive counts active raffles matching the filter, ignoring paging
	CountActive(ctx context.Context, filter entities.RaffleFilter) (int, error)

	// ReserveTickets atomically adds count to tickets_sold, total_tickets and
	// total_entries of an active raffle, only if capacity remains. It reports
	// the new sold count, or false when the raffle is not active or full.
	ReserveTickets(ctx context.Context, id uuid.UUID, count int) (int, bool, error)

	// ReserveEntrySlot atomically adds one to tickets_sold and total_entries
	// regardless of status, only if capacity remains
	ReserveEntrySlot(ctx context.Context, id uuid.UUID) (int, bool, error)

	// ExtendEndTime pushes an active raffle's end time out by d. It returns
	// nil when the raffle is not active.
	ExtendEndTime(ctx context.Context, id uuid.UUID, d time.Duration) (*time.Time, error)

	// Update persists status, winner and analytics of a locked raffle
	Update(ctx context.Context, raffle *entities.Raffle) error

	// GetExpiredActive returns active raffles whose end time is at or before now
	// and whose correct entries fall short of the minimum
	GetExpiredActive(ctx context.Context, now time.Time) ([]*entities.Raffle, error)

	// GetNextEndTime returns the earliest end time among active raffles, nil if none
	GetNextEndTime(ctx context.Context) (*time.Time, error)
}

// TicketRepository defines the interface for raffle ticket data access
type TicketRepository interface {
	// CreateBatch inserts tickets and fills in their IDs
	CreateBatch(ctx context.Context, tickets []*entities.Ticket) error

	// GetByRaffle returns every ticket of a raffle in purchase order
	GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error)

	// GetRecentByRaffle returns up to limit tickets, newest first
	GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Ticket, error)

	// ExistsForParticipant reports whether the participant holds any ticket
	ExistsForParticipant(ctx context.Context, raffleID uuid.UUID, participantID string) (bool, error)

	// GetParticipantSummary aggregates tickets per participant, most tickets first
	GetParticipantSummary(ctx context.Context, raffleID uuid.UUID, limit, offset int) ([]*entities.ParticipantSummary, error)

	// CountParticipants counts distinct ticket-holding participants
	CountParticipants(ctx context.Context, raffleID uuid.UUID) (int, error)

	// GetRefundEligible returns tickets still flagged for refund
	GetRefundEligible(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error)

	// MarkRefunded clears the refund flag on every ticket of a raffle
	MarkRefunded(ctx context.Context, raffleID uuid.UUID) error
}

// EntryRepository defines the interface for registration entry data access
type EntryRepository interface {
	// Create inserts an entry; returns ErrDuplicate if the participant already registered
	Create(ctx context.Context, entry *entities.Entry) error

	// GetByRaffle returns every entry of a raffle in registration order
	GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Entry, error)

	// GetCorrectByRaffle returns entries whose answer matched, in registration order
	GetCorrectByRaffle(ctx context.Context, raffleID uuid.UUID) ([]entities.Entry, error)

	// CountCorrect counts entries whose answer matched
	CountCorrect(ctx context.Context, raffleID uuid.UUID) (int, error)
}

// RefundRepository defines the interface for refund record data access
type RefundRepository interface {
	// CreateBatch inserts refunds and fills in their IDs
	CreateBatch(ctx context.Context, refunds []*entities.Refund) error

	// GetRecentByRaffle returns up to limit refunds, newest first
	GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Refund, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding
// transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

package repository

import (
	"context"
	"fmt"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/google/uuid"
)

const ticketColumns = `id, raffle_id, participant_id, pubkey, purchase_time, amount_paid, refund_eligible, transaction_signature`

// TicketRepository implements raffle ticket data access
type TicketRepository struct {
	q Queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(q Queryable) *TicketRepository {
	return &TicketRepository{q: q}
}

// newTicketRepository creates a ticket repository bound to a transaction
func newTicketRepository(tx Queryable) interfaces.TicketRepository {
	return &TicketRepository{q: tx}
}

// CreateBatch creates multiple tickets in one insert. Columns travel as
// arrays, so the bind parameter count does not grow with the batch.
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []*entities.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	query := `
		INSERT INTO raffle_tickets (raffle_id, participant_id, pubkey, purchase_time, amount_paid, refund_eligible, transaction_signature)
		SELECT raffle_id::uuid, participant_id, pubkey, purchase_time, amount_paid::numeric, refund_eligible, transaction_signature
		FROM unnest($1::text[], $2::text[], $3::text[], $4::timestamptz[], $5::text[], $6::boolean[], $7::text[])
			WITH ORDINALITY AS t(raffle_id, participant_id, pubkey, purchase_time, amount_paid, refund_eligible, transaction_signature, ord)
		ORDER BY ord
		RETURNING id
	`

	raffleIDs := make([]string, len(tickets))
	participantIDs := make([]string, len(tickets))
	pubkeys := make([]string, len(tickets))
	purchaseTimes := make([]time.Time, len(tickets))
	amounts := make([]string, len(tickets))
	refundEligible := make([]bool, len(tickets))
	signatures := make([]*string, len(tickets))
	for i, ticket := range tickets {
		raffleIDs[i] = ticket.RaffleID.String()
		participantIDs[i] = ticket.ParticipantID
		pubkeys[i] = ticket.Pubkey
		purchaseTimes[i] = ticket.PurchaseTime
		amounts[i] = ticket.AmountPaid.String()
		refundEligible[i] = ticket.RefundEligible
		signatures[i] = ticket.TransactionSignature
	}

	rows, err := r.q.Query(ctx, query, raffleIDs, participantIDs, pubkeys, purchaseTimes, amounts, refundEligible, signatures)
	if err != nil {
		return fmt.Errorf("failed to batch create tickets: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(tickets) {
			return fmt.Errorf("batch insert returned more ids than tickets")
		}
		if err := rows.Scan(&tickets[i].ID); err != nil {
			return fmt.Errorf("failed to scan ticket result: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to batch create tickets: %w", err)
	}

	return nil
}

// GetByRaffle returns all tickets of a raffle in purchase order
func (r *TicketRepository) GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM raffle_tickets
		WHERE raffle_id = $1
		ORDER BY id ASC`

	return r.queryTickets(ctx, query, raffleID)
}

// GetRecentByRaffle returns the newest tickets of a raffle
func (r *TicketRepository) GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM raffle_tickets
		WHERE raffle_id = $1
		ORDER BY purchase_time DESC, id DESC
		LIMIT $2`

	return r.queryTickets(ctx, query, raffleID, limit)
}

// ExistsForParticipant reports whether a participant holds any ticket in the raffle
func (r *TicketRepository) ExistsForParticipant(ctx context.Context, raffleID uuid.UUID, participantID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM raffle_tickets WHERE raffle_id = $1 AND participant_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, raffleID, participantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tickets for participant %s: %w", participantID, err)
	}

	return exists, nil
}

// GetParticipantSummary aggregates tickets per participant
func (r *TicketRepository) GetParticipantSummary(ctx context.Context, raffleID uuid.UUID, limit, offset int) ([]*entities.ParticipantSummary, error) {
	query := `
		SELECT participant_id,
		       (ARRAY_AGG(pubkey ORDER BY purchase_time DESC, id DESC))[1] AS pubkey,
		       COUNT(*) AS ticket_count,
		       SUM(amount_paid) AS total_paid,
		       MAX(purchase_time) AS last_purchase
		FROM raffle_tickets
		WHERE raffle_id = $1
		GROUP BY participant_id
		ORDER BY ticket_count DESC, last_purchase DESC, participant_id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, raffleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant summary for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	summaries := make([]*entities.ParticipantSummary, 0)
	for rows.Next() {
		var s entities.ParticipantSummary
		if err := rows.Scan(&s.ParticipantID, &s.Pubkey, &s.TicketCount, &s.TotalPaid, &s.LastPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan participant summary: %w", err)
		}
		s.LastPurchase = s.LastPurchase.UTC()
		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant summary: %w", err)
	}

	return summaries, nil
}

// CountParticipants counts distinct ticket holders of a raffle
func (r *TicketRepository) CountParticipants(ctx context.Context, raffleID uuid.UUID) (int, error) {
	query := `SELECT COUNT(DISTINCT participant_id) FROM raffle_tickets WHERE raffle_id = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, raffleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants for raffle %s: %w", raffleID, err)
	}

	return count, nil
}

// GetRefundEligible returns the tickets still flagged for refund
func (r *TicketRepository) GetRefundEligible(ctx context.Context, raffleID uuid.UUID) ([]*entities.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM raffle_tickets
		WHERE raffle_id = $1 AND refund_eligible
		ORDER BY id ASC`

	return r.queryTickets(ctx, query, raffleID)
}

// MarkRefunded clears the refund flag on every ticket of a raffle
func (r *TicketRepository) MarkRefunded(ctx context.Context, raffleID uuid.UUID) error {
	query := `UPDATE raffle_tickets SET refund_eligible = FALSE WHERE raffle_id = $1 AND refund_eligible`

	if _, err := r.q.Exec(ctx, query, raffleID); err != nil {
		return fmt.Errorf("failed to mark tickets refunded for raffle %s: %w", raffleID, err)
	}

	return nil
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...any) ([]*entities.Ticket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*entities.Ticket, 0)
	for rows.Next() {
		var ticket entities.Ticket
		err := rows.Scan(
			&ticket.ID,
			&ticket.RaffleID,
			&ticket.ParticipantID,
			&ticket.Pubkey,
			&ticket.PurchaseTime,
			&ticket.AmountPaid,
			&ticket.RefundEligible,
			&ticket.TransactionSignature,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		ticket.PurchaseTime = ticket.PurchaseTime.UTC()
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return tickets, nil
}

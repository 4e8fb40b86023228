package repository

import (
	"context"
	"fmt"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/google/uuid"
)

// RefundRepository implements refund record data access
type RefundRepository struct {
	q Queryable
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(q Queryable) *RefundRepository {
	return &RefundRepository{q: q}
}

// newRefundRepository creates a refund repository bound to a transaction
func newRefundRepository(tx Queryable) interfaces.RefundRepository {
	return &RefundRepository{q: tx}
}

// CreateBatch creates multiple refunds in one insert using column arrays
func (r *RefundRepository) CreateBatch(ctx context.Context, refunds []*entities.Refund) error {
	if len(refunds) == 0 {
		return nil
	}

	query := `
		INSERT INTO raffle_refunds (raffle_id, ticket_id, participant_id, pubkey, amount, on_chain, transaction_signature, refunded_at)
		SELECT raffle_id::uuid, ticket_id, participant_id, pubkey, amount::numeric, on_chain, transaction_signature, refunded_at
		FROM unnest($1::text[], $2::bigint[], $3::text[], $4::text[], $5::text[], $6::boolean[], $7::text[], $8::timestamptz[])
			WITH ORDINALITY AS r(raffle_id, ticket_id, participant_id, pubkey, amount, on_chain, transaction_signature, refunded_at, ord)
		ORDER BY ord
		RETURNING id
	`

	raffleIDs := make([]string, len(refunds))
	ticketIDs := make([]*int64, len(refunds))
	participantIDs := make([]string, len(refunds))
	pubkeys := make([]string, len(refunds))
	amounts := make([]string, len(refunds))
	onChain := make([]bool, len(refunds))
	signatures := make([]*string, len(refunds))
	refundedAt := make([]time.Time, len(refunds))
	for i, refund := range refunds {
		raffleIDs[i] = refund.RaffleID.String()
		ticketIDs[i] = refund.TicketID
		participantIDs[i] = refund.ParticipantID
		pubkeys[i] = refund.Pubkey
		amounts[i] = refund.Amount.String()
		onChain[i] = refund.OnChain
		signatures[i] = refund.TransactionSignature
		refundedAt[i] = refund.RefundedAt
	}

	rows, err := r.q.Query(ctx, query, raffleIDs, ticketIDs, participantIDs, pubkeys, amounts, onChain, signatures, refundedAt)
	if err != nil {
		return fmt.Errorf("failed to batch create refunds: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(refunds) {
			return fmt.Errorf("batch insert returned more ids than refunds")
		}
		if err := rows.Scan(&refunds[i].ID); err != nil {
			return fmt.Errorf("failed to scan refund result: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to batch create refunds: %w", err)
	}

	return nil
}

// GetRecentByRaffle returns the newest refunds of a raffle
func (r *RefundRepository) GetRecentByRaffle(ctx context.Context, raffleID uuid.UUID, limit int) ([]*entities.Refund, error) {
	query := `
		SELECT id, raffle_id, ticket_id, participant_id, pubkey, amount, on_chain, transaction_signature, refunded_at
		FROM raffle_refunds
		WHERE raffle_id = $1
		ORDER BY refunded_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, raffleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get refunds for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	refunds := make([]*entities.Refund, 0)
	for rows.Next() {
		var refund entities.Refund
		err := rows.Scan(
			&refund.ID,
			&refund.RaffleID,
			&refund.TicketID,
			&refund.ParticipantID,
			&refund.Pubkey,
			&refund.Amount,
			&refund.OnChain,
			&refund.TransactionSignature,
			&refund.RefundedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refund.RefundedAt = refund.RefundedAt.UTC()
		refunds = append(refunds, &refund)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refunds: %w", err)
	}

	return refunds, nil
}

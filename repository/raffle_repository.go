package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const raffleColumns = `
	id, raffle_id, entry_fee,
	prize_type, prize_title, prize_amount, prize_details, prize_image_url,
	requires_shipping, shipping_fields,
	max_participants, min_participants, tickets_sold,
	start_time, end_time, created_at,
	question_text, question_options, correct_answer,
	status, fulfillment, is_on_chain,
	winner_participant_id, winner_pubkey, winner_amount_won,
	total_tickets, total_entries, total_refunds, successful_raffles, failed_raffles`

// RaffleRepository implements raffle data access
type RaffleRepository struct {
	q Queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(q Queryable) *RaffleRepository {
	return &RaffleRepository{q: q}
}

// newRaffleRepository creates a raffle repository bound to a transaction
func newRaffleRepository(tx Queryable) interfaces.RaffleRepository {
	return &RaffleRepository{q: tx}
}

// Create inserts a new raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		INSERT INTO raffles (
			id, raffle_id, entry_fee,
			prize_type, prize_title, prize_amount, prize_details, prize_image_url,
			requires_shipping, shipping_fields,
			max_participants, min_participants, tickets_sold,
			start_time, end_time, created_at,
			question_text, question_options, correct_answer,
			status, fulfillment, is_on_chain
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10,
			$11, $12, $13,
			$14, $15, $16,
			$17, $18, $19,
			$20, $21, $22
		)
	`

	shippingFields := raffle.PrizeDetails.ShippingFields
	if shippingFields == nil {
		shippingFields = []string{}
	}

	_, err := r.q.Exec(ctx, query,
		raffle.ID,
		raffle.RaffleID,
		raffle.EntryFee,
		raffle.PrizeDetails.Type,
		raffle.PrizeDetails.Title,
		raffle.PrizeDetails.Amount,
		raffle.PrizeDetails.Details,
		raffle.PrizeDetails.ImageURL,
		raffle.PrizeDetails.RequiresShipping,
		shippingFields,
		raffle.Participants.Max,
		raffle.Participants.Min,
		raffle.Participants.TicketsSold,
		raffle.Time.Start,
		raffle.Time.End,
		raffle.Time.Created,
		raffle.Question.Text,
		raffle.Question.Options,
		raffle.Question.CorrectAnswer,
		string(raffle.Status.Current),
		string(raffle.Status.Fulfillment),
		raffle.Status.IsOnChain,
	)
	if err != nil {
		return fmt.Errorf("failed to create raffle: %w", err)
	}

	return nil
}

// GetByID retrieves a raffle by its ID
func (r *RaffleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle by ID %s: %w", id, err)
	}

	return raffle, nil
}

// GetByIDForUpdate retrieves a raffle by ID with row lock for update
func (r *RaffleRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1 FOR UPDATE`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle for update by ID %s: %w", id, err)
	}

	return raffle, nil
}

// ListActive returns one page of active raffles matching the filter
func (r *RaffleRepository) ListActive(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, error) {
	where, args := activeFilterClause(filter)

	direction := "ASC"
	if filter.SortDescending {
		direction = "DESC"
	}

	// Column() only yields whitelisted identifiers
	query := fmt.Sprintf(`SELECT %s FROM raffles %s ORDER BY %s %s, id ASC`,
		raffleColumns, where, filter.SortField.Column(), direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active raffles: %w", err)
	}
	defer rows.Close()

	raffles := make([]*entities.Raffle, 0)
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffles: %w", err)
	}

	return raffles, nil
}

// CountActive counts active raffles matching the filter
func (r *RaffleRepository) CountActive(ctx context.Context, filter entities.RaffleFilter) (int, error) {
	where, args := activeFilterClause(filter)
	query := `SELECT COUNT(*) FROM raffles ` + where

	var count int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active raffles: %w", err)
	}

	return count, nil
}

// ReserveTickets adds count sold tickets to an active raffle if capacity remains
func (r *RaffleRepository) ReserveTickets(ctx context.Context, id uuid.UUID, count int) (int, bool, error) {
	query := `
		UPDATE raffles
		SET tickets_sold = tickets_sold + $2,
		    total_tickets = total_tickets + $2,
		    total_entries = total_entries + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND tickets_sold + $2 <= max_participants
		RETURNING tickets_sold
	`

	var sold int
	err := r.q.QueryRow(ctx, query, id, count).Scan(&sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to reserve %d tickets for raffle %s: %w", count, id, err)
	}

	return sold, true, nil
}

// ReserveEntrySlot consumes one unit of capacity for a registration
func (r *RaffleRepository) ReserveEntrySlot(ctx context.Context, id uuid.UUID) (int, bool, error) {
	query := `
		UPDATE raffles
		SET tickets_sold = tickets_sold + 1,
		    total_entries = total_entries + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND tickets_sold < max_participants
		RETURNING tickets_sold
	`

	var sold int
	err := r.q.QueryRow(ctx, query, id).Scan(&sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to reserve entry slot for raffle %s: %w", id, err)
	}

	return sold, true, nil
}

// ExtendEndTime pushes the end time of an active raffle
func (r *RaffleRepository) ExtendEndTime(ctx context.Context, id uuid.UUID, d time.Duration) (*time.Time, error) {
	query := `
		UPDATE raffles
		SET end_time = end_time + make_interval(secs => $2),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING end_time
	`

	var endTime time.Time
	err := r.q.QueryRow(ctx, query, id, d.Seconds()).Scan(&endTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extend raffle %s: %w", id, err)
	}

	endTime = endTime.UTC()
	return &endTime, nil
}

// Update persists the mutable state of a raffle
func (r *RaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		UPDATE raffles
		SET status = $2,
		    fulfillment = $3,
		    winner_participant_id = $4,
		    winner_pubkey = $5,
		    winner_amount_won = $6,
		    total_refunds = $7,
		    successful_raffles = $8,
		    failed_raffles = $9,
		    updated_at = NOW()
		WHERE id = $1
	`

	var winnerID, winnerPubkey *string
	var amountWon decimal.NullDecimal
	if raffle.Winner != nil {
		winnerID = &raffle.Winner.ParticipantID
		winnerPubkey = &raffle.Winner.Pubkey
		amountWon = decimal.NewNullDecimal(raffle.Winner.AmountWon)
	}

	result, err := r.q.Exec(ctx, query,
		raffle.ID,
		string(raffle.Status.Current),
		string(raffle.Status.Fulfillment),
		winnerID,
		winnerPubkey,
		amountWon,
		raffle.Analytics.TotalRefunds,
		raffle.Analytics.SuccessfulRaffles,
		raffle.Analytics.FailedRaffles,
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("raffle %s not found", raffle.ID)
	}

	return nil
}

// GetExpiredActive returns active raffles whose end time has passed and
// which did not collect enough correct entries. Raffles that met their
// threshold stay active until concluded and are not returned.
func (r *RaffleRepository) GetExpiredActive(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + `
		FROM raffles
		WHERE status = 'active' AND end_time <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM raffle_entries e
			WHERE e.raffle_id = raffles.id AND e.is_correct
			GROUP BY e.raffle_id
			HAVING COUNT(*) >= raffles.min_participants
		  )
		ORDER BY end_time ASC`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired raffles: %w", err)
	}
	defer rows.Close()

	var raffles []*entities.Raffle
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired raffles: %w", err)
	}

	return raffles, nil
}

// GetNextEndTime returns the earliest end time among active raffles
func (r *RaffleRepository) GetNextEndTime(ctx context.Context) (*time.Time, error) {
	query := `SELECT MIN(end_time) FROM raffles WHERE status = 'active'`

	var next *time.Time
	if err := r.q.QueryRow(ctx, query).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to get next raffle end time: %w", err)
	}

	return next, nil
}

// activeFilterClause builds the WHERE clause shared by ListActive and CountActive
func activeFilterClause(filter entities.RaffleFilter) (string, []any) {
	conditions := []string{"status = 'active'"}
	var args []any

	if filter.PrizeType != "" {
		args = append(args, filter.PrizeType)
		conditions = append(conditions, fmt.Sprintf("prize_type = $%d", len(args)))
	}
	if filter.MaxParticipants != nil {
		args = append(args, *filter.MaxParticipants)
		conditions = append(conditions, fmt.Sprintf("max_participants <= $%d", len(args)))
	}
	if filter.Fulfillment != "" {
		args = append(args, string(filter.Fulfillment))
		conditions = append(conditions, fmt.Sprintf("fulfillment = $%d", len(args)))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// scanRaffle scans one row selected with raffleColumns
func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var raffle entities.Raffle
	var status, fulfillment string
	var winnerID, winnerPubkey *string
	var amountWon decimal.NullDecimal

	err := row.Scan(
		&raffle.ID,
		&raffle.RaffleID,
		&raffle.EntryFee,
		&raffle.PrizeDetails.Type,
		&raffle.PrizeDetails.Title,
		&raffle.PrizeDetails.Amount,
		&raffle.PrizeDetails.Details,
		&raffle.PrizeDetails.ImageURL,
		&raffle.PrizeDetails.RequiresShipping,
		&raffle.PrizeDetails.ShippingFields,
		&raffle.Participants.Max,
		&raffle.Participants.Min,
		&raffle.Participants.TicketsSold,
		&raffle.Time.Start,
		&raffle.Time.End,
		&raffle.Time.Created,
		&raffle.Question.Text,
		&raffle.Question.Options,
		&raffle.Question.CorrectAnswer,
		&status,
		&fulfillment,
		&raffle.Status.IsOnChain,
		&winnerID,
		&winnerPubkey,
		&amountWon,
		&raffle.Analytics.TotalTickets,
		&raffle.Analytics.TotalEntries,
		&raffle.Analytics.TotalRefunds,
		&raffle.Analytics.SuccessfulRaffles,
		&raffle.Analytics.FailedRaffles,
	)
	if err != nil {
		return nil, err
	}

	raffle.Status.Current = entities.RaffleStatus(status)
	raffle.Status.Fulfillment = entities.FulfillmentStatus(fulfillment)
	raffle.Time.Start = raffle.Time.Start.UTC()
	raffle.Time.End = raffle.Time.End.UTC()
	raffle.Time.Created = raffle.Time.Created.UTC()

	if winnerID != nil {
		raffle.Winner = &entities.Winner{
			ParticipantID: *winnerID,
			AmountWon:     amountWon.Decimal,
		}
		if winnerPubkey != nil {
			raffle.Winner.Pubkey = *winnerPubkey
		}
	}

	return &raffle, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

const entryColumns = `id, raffle_id, participant_id, name, pubkey, answer, is_correct, amount_paid, shipping_info, registered_at`

// EntryRepository implements registration entry data access
type EntryRepository struct {
	q Queryable
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(q Queryable) *EntryRepository {
	return &EntryRepository{q: q}
}

// newEntryRepository creates an entry repository bound to a transaction
func newEntryRepository(tx Queryable) interfaces.EntryRepository {
	return &EntryRepository{q: tx}
}

// Create inserts a registration entry
func (r *EntryRepository) Create(ctx context.Context, entry *entities.Entry) error {
	query := `
		INSERT INTO raffle_entries (raffle_id, participant_id, name, pubkey, answer, is_correct, amount_paid, shipping_info, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		entry.RaffleID,
		entry.ParticipantID,
		entry.Name,
		entry.Pubkey,
		entry.Answer,
		entry.IsCorrect,
		entry.AmountPaid,
		entry.ShippingInfo,
		entry.RegisteredAt,
	).Scan(&entry.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return interfaces.ErrDuplicate
		}
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// GetByRaffle returns all entries of a raffle in registration order
func (r *EntryRepository) GetByRaffle(ctx context.Context, raffleID uuid.UUID) ([]*entities.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM raffle_entries
		WHERE raffle_id = $1
		ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	entries := make([]*entities.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// GetCorrectByRaffle returns entries with a matching answer in registration order
func (r *EntryRepository) GetCorrectByRaffle(ctx context.Context, raffleID uuid.UUID) ([]entities.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM raffle_entries
		WHERE raffle_id = $1 AND is_correct
		ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get correct entries for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	entries := make([]entities.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correct entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate correct entries: %w", err)
	}

	return entries, nil
}

// CountCorrect counts entries with a matching answer
func (r *EntryRepository) CountCorrect(ctx context.Context, raffleID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM raffle_entries WHERE raffle_id = $1 AND is_correct`

	var count int
	if err := r.q.QueryRow(ctx, query, raffleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count correct entries for raffle %s: %w", raffleID, err)
	}

	return count, nil
}

func scanEntry(row pgx.Row) (*entities.Entry, error) {
	var entry entities.Entry
	err := row.Scan(
		&entry.ID,
		&entry.RaffleID,
		&entry.ParticipantID,
		&entry.Name,
		&entry.Pubkey,
		&entry.Answer,
		&entry.IsCorrect,
		&entry.AmountPaid,
		&entry.ShippingInfo,
		&entry.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	entry.RegisteredAt = entry.RegisteredAt.UTC()
	return &entry, nil
}

package testutil

import (
	"time"

	"rafflehub/domain/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestRaffle creates an active raffle with default values
func CreateTestRaffle(clientID string, maxParticipants, minParticipants int) *entities.Raffle {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entities.Raffle{
		ID:       uuid.New(),
		RaffleID: clientID,
		EntryFee: decimal.RequireFromString("0.25"),
		PrizeDetails: entities.PrizeDetails{
			Type:           "token",
			Title:          "Test Prize",
			Amount:         decimal.NewNullDecimal(decimal.NewFromInt(100)),
			Details:        "Test prize details",
			ShippingFields: []string{},
		},
		Participants: entities.Participants{
			Max: maxParticipants,
			Min: minParticipants,
		},
		Time: entities.RaffleTime{
			Start:   now.Add(-time.Hour),
			End:     now.Add(time.Hour),
			Created: now,
		},
		Question: entities.Question{
			Text:          "Which option?",
			Options:       []string{"C", "A", "B"},
			CorrectAnswer: "A",
		},
		Status: entities.Status{
			Current:     entities.RaffleStatusActive,
			Fulfillment: entities.FulfillmentPending,
		},
	}
}

// CreateTestRaffleEndingAt creates an active raffle with a specific end time
func CreateTestRaffleEndingAt(clientID string, end time.Time) *entities.Raffle {
	raffle := CreateTestRaffle(clientID, 10, 1)
	raffle.Time.Start = end.Add(-2 * time.Hour)
	raffle.Time.End = end
	return raffle
}

// CreateTestEntry creates a registration entry for a raffle
func CreateTestEntry(raffleID uuid.UUID, participantID, answer string, correct bool) *entities.Entry {
	return &entities.Entry{
		RaffleID:      raffleID,
		ParticipantID: participantID,
		Name:          "Participant " + participantID,
		Pubkey:        "pk-" + participantID,
		Answer:        answer,
		IsCorrect:     correct,
		AmountPaid:    decimal.RequireFromString("0.25"),
		RegisteredAt:  time.Now().UTC(),
	}
}

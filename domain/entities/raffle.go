package entities

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusCompleted RaffleStatus = "completed"
	RaffleStatusExpired   RaffleStatus = "expired"
)

// FulfillmentStatus describes how a concluded raffle's prize is delivered
type FulfillmentStatus string

const (
	FulfillmentPending           FulfillmentStatus = "pending"
	FulfillmentFulfilledOnChain  FulfillmentStatus = "fulfilled_on_chain"
	FulfillmentFulfilledOffChain FulfillmentStatus = "fulfilled_off_chain"
)

// IsValid reports whether the fulfillment value is one of the known states
func (f FulfillmentStatus) IsValid() bool {
	switch f {
	case FulfillmentPending, FulfillmentFulfilledOnChain, FulfillmentFulfilledOffChain:
		return true
	}
	return false
}

// DisplayPlaceholder replaces missing text fields when a raffle is rendered
const DisplayPlaceholder = "N/A"

// ErrNoEligibleEntries is returned when a draw has nothing to choose from
var ErrNoEligibleEntries = errors.New("no eligible entries to draw from")

// PrizeDetails describes what the winner receives
type PrizeDetails struct {
	Type             string              `json:"type"`
	Title            string              `json:"title"`
	Amount           decimal.NullDecimal `json:"amount"`
	Details          string              `json:"details"`
	ImageURL         string              `json:"imageUrl"`
	RequiresShipping bool                `json:"requiresShipping"`
	ShippingFields   []string            `json:"shippingFields"`
}

// Participants holds capacity, counters and the ledger views of a raffle
type Participants struct {
	Max         int      `json:"max"`
	Min         int      `json:"min"`
	TicketsSold int      `json:"ticketsSold"`
	Tickets     []Ticket `json:"tickets"`
	Correct     []Entry  `json:"correct"`
	Incorrect   []Entry  `json:"incorrect"`
}

// RaffleTime holds the wall-clock bounds of a raffle
type RaffleTime struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Created time.Time `json:"created"`
}

// Question is the fixed-answer gate applied at registration.
// The correct answer never leaves the server.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"-"`
}

// Status tracks the raffle state machine and prize fulfillment
type Status struct {
	Current     RaffleStatus      `json:"current"`
	Fulfillment FulfillmentStatus `json:"fulfillment"`
	IsOnChain   bool              `json:"isOnChain"`
}

// Winner is recorded once, when the raffle is concluded
type Winner struct {
	ParticipantID string          `json:"participantId"`
	Pubkey        string          `json:"pubkey"`
	AmountWon     decimal.Decimal `json:"amountWon"`
}

// Analytics holds advisory counters, never used for invariant checks
type Analytics struct {
	TotalTickets      int `json:"totalTickets"`
	TotalEntries      int `json:"totalEntries"`
	TotalRefunds      int `json:"totalRefunds"`
	SuccessfulRaffles int `json:"successfulRaffles"`
	FailedRaffles     int `json:"failedRaffles"`
}

// Raffle is the aggregate root: one prize pool with a fixed ticket capacity
type Raffle struct {
	ID           uuid.UUID       `json:"id"`
	RaffleID     string          `json:"raffleId"`
	EntryFee     decimal.Decimal `json:"entryFee"`
	PrizeDetails PrizeDetails    `json:"prizeDetails"`
	Participants Participants    `json:"participants"`
	Time         RaffleTime      `json:"time"`
	Question     Question        `json:"question"`
	Status       Status          `json:"status"`
	Winner       *Winner         `json:"winner,omitempty"`
	Analytics    Analytics       `json:"analytics"`
}

// IsActive returns true while tickets and extensions are allowed
func (r *Raffle) IsActive() bool {
	return r.Status.Current == RaffleStatusActive
}

// AvailableTickets returns the remaining capacity
func (r *Raffle) AvailableTickets() int {
	available := r.Participants.Max - r.Participants.TicketsSold
	if available < 0 {
		return 0
	}
	return available
}

// HasMetThreshold reports whether enough correct entries exist to draw a winner
func (r *Raffle) HasMetThreshold(correctCount int) bool {
	return correctCount >= r.Participants.Min
}

// IsPastEnd returns true once the end time has passed
func (r *Raffle) IsPastEnd(now time.Time) bool {
	return !now.Before(r.Time.End)
}

// AnswerIsCorrect compares the submitted answer exactly, with no normalization
func (r *Raffle) AnswerIsCorrect(answer string) bool {
	return answer == r.Question.CorrectAnswer
}

// CompletedFulfillment returns the fulfillment state a conclusion moves to
func (r *Raffle) CompletedFulfillment() FulfillmentStatus {
	if r.Status.IsOnChain {
		return FulfillmentFulfilledOnChain
	}
	return FulfillmentFulfilledOffChain
}

// PrizeAmount returns the prize value, or zero when the prize has no amount
func (r *Raffle) PrizeAmount() decimal.Decimal {
	if r.PrizeDetails.Amount.Valid {
		return r.PrizeDetails.Amount.Decimal
	}
	return decimal.Zero
}

// DrawWinner picks one entry uniformly at random using crypto/rand.
// rand.Int samples without modulo bias.
func DrawWinner(entries []Entry) (*Entry, error) {
	if len(entries) == 0 {
		return nil, ErrNoEligibleEntries
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(entries))))
	if err != nil {
		return nil, fmt.Errorf("failed to generate winner index: %w", err)
	}

	winner := entries[n.Int64()]
	return &winner, nil
}

// Conclude moves the raffle to completed and records the winner
func (r *Raffle) Conclude(entry *Entry) *Winner {
	winner := &Winner{
		ParticipantID: entry.ParticipantID,
		Pubkey:        entry.Pubkey,
		AmountWon:     r.PrizeAmount(),
	}

	r.Status.Current = RaffleStatusCompleted
	r.Status.Fulfillment = r.CompletedFulfillment()
	r.Winner = winner
	r.Analytics.SuccessfulRaffles++

	return winner
}

// Expire moves the raffle to expired after a failed threshold
func (r *Raffle) Expire(refundCount int) {
	r.Status.Current = RaffleStatusExpired
	r.Analytics.FailedRaffles++
	r.Analytics.TotalRefunds += refundCount
}

// WithDisplayDefaults returns a copy with missing display fields filled in.
// Missing strings become "N/A", missing numbers zero and nil lists empty.
func (r *Raffle) WithDisplayDefaults() *Raffle {
	out := *r

	out.RaffleID = orPlaceholder(out.RaffleID)
	out.PrizeDetails.Type = orPlaceholder(out.PrizeDetails.Type)
	out.PrizeDetails.Title = orPlaceholder(out.PrizeDetails.Title)
	out.PrizeDetails.Details = orPlaceholder(out.PrizeDetails.Details)
	out.PrizeDetails.ImageURL = orPlaceholder(out.PrizeDetails.ImageURL)
	out.Question.Text = orPlaceholder(out.Question.Text)
	if !out.PrizeDetails.Amount.Valid {
		out.PrizeDetails.Amount = decimal.NewNullDecimal(decimal.Zero)
	}

	if out.PrizeDetails.ShippingFields == nil {
		out.PrizeDetails.ShippingFields = []string{}
	}
	if out.Question.Options == nil {
		out.Question.Options = []string{}
	}
	if out.Participants.Tickets == nil {
		out.Participants.Tickets = []Ticket{}
	}
	if out.Participants.Correct == nil {
		out.Participants.Correct = []Entry{}
	}
	if out.Participants.Incorrect == nil {
		out.Participants.Incorrect = []Entry{}
	}
	if out.Status.Current == "" {
		out.Status.Current = RaffleStatusActive
	}
	if out.Status.Fulfillment == "" {
		out.Status.Fulfillment = FulfillmentPending
	}

	return &out
}

func orPlaceholder(s string) string {
	if s == "" {
		return DisplayPlaceholder
	}
	return s
}

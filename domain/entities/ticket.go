package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is one purchased entry in a raffle's append-only ticket log
type Ticket struct {
	ID                   int64           `json:"id"`
	RaffleID             uuid.UUID       `json:"-"`
	ParticipantID        string          `json:"participantId"`
	Pubkey               string          `json:"pubkey"`
	PurchaseTime         time.Time       `json:"purchaseTime"`
	AmountPaid           decimal.Decimal `json:"amountPaid"`
	RefundEligible       bool            `json:"refundEligible"`
	TransactionSignature *string         `json:"transactionSignature,omitempty"`
}

// NewTickets builds count tickets for one buyer, each priced at amount
func NewTickets(raffleID uuid.UUID, participantID, pubkey string, amount decimal.Decimal, count int, signature *string, now time.Time) []*Ticket {
	tickets := make([]*Ticket, 0, count)
	for i := 0; i < count; i++ {
		tickets = append(tickets, &Ticket{
			RaffleID:             raffleID,
			ParticipantID:        participantID,
			Pubkey:               pubkey,
			PurchaseTime:         now,
			AmountPaid:           amount,
			RefundEligible:       true,
			TransactionSignature: signature,
		})
	}
	return tickets
}

// ParticipantSummary aggregates a participant's tickets within one raffle
type ParticipantSummary struct {
	ParticipantID string          `json:"participantId"`
	Pubkey        string          `json:"pubkey"`
	TicketCount   int             `json:"ticketCount"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	LastPurchase  time.Time       `json:"lastPurchase"`
}

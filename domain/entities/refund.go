package entities

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Refund records money returned to a ticket holder of a failed raffle
type Refund struct {
	ID                   int64           `json:"id"`
	RaffleID             uuid.UUID       `json:"-"`
	TicketID             *int64          `json:"ticketId,omitempty"`
	ParticipantID        string          `json:"participantId"`
	Pubkey               string          `json:"pubkey"`
	Amount               decimal.Decimal `json:"amount"`
	OnChain              bool            `json:"onChain"`
	TransactionSignature *string         `json:"transactionSignature,omitempty"`
	RefundedAt           time.Time       `json:"refundedAt"`
}

// RefundForTicket builds an off-chain refund covering one ticket
func RefundForTicket(ticket *Ticket, now time.Time) *Refund {
	ticketID := ticket.ID
	return &Refund{
		RaffleID:      ticket.RaffleID,
		TicketID:      &ticketID,
		ParticipantID: ticket.ParticipantID,
		Pubkey:        ticket.Pubkey,
		Amount:        ticket.AmountPaid,
		OnChain:       false,
		RefundedAt:    now,
	}
}

// LedgerEntryType tags an entry in the merged transaction history
type LedgerEntryType string

const (
	LedgerEntryPurchase LedgerEntryType = "purchase"
	LedgerEntryRefund   LedgerEntryType = "refund"
)

// MaxLedgerEntries bounds the merged transaction history
const MaxLedgerEntries = 100

// LedgerEntry is one row of a raffle's merged purchase/refund history
type LedgerEntry struct {
	Type                 LedgerEntryType `json:"type"`
	ParticipantID        string          `json:"participantId"`
	Pubkey               string          `json:"pubkey"`
	Amount               decimal.Decimal `json:"amount"`
	Timestamp            time.Time       `json:"timestamp"`
	OnChain              bool            `json:"onChain"`
	TransactionSignature *string         `json:"transactionSignature,omitempty"`
}

// MergeLedger tags tickets as purchases and refunds as refunds, then keeps
// the limit most recent entries ordered by timestamp descending
func MergeLedger(tickets []*Ticket, refunds []*Refund, limit int) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(tickets)+len(refunds))
	for _, t := range tickets {
		entries = append(entries, LedgerEntry{
			Type:                 LedgerEntryPurchase,
			ParticipantID:        t.ParticipantID,
			Pubkey:               t.Pubkey,
			Amount:               t.AmountPaid,
			Timestamp:            t.PurchaseTime,
			OnChain:              t.TransactionSignature != nil,
			TransactionSignature: t.TransactionSignature,
		})
	}
	for _, r := range refunds {
		entries = append(entries, LedgerEntry{
			Type:                 LedgerEntryRefund,
			ParticipantID:        r.ParticipantID,
			Pubkey:               r.Pubkey,
			Amount:               r.Amount,
			Timestamp:            r.RefundedAt,
			OnChain:              r.OnChain,
			TransactionSignature: r.TransactionSignature,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingInfo is collected from participants when a prize must be shipped
type ShippingInfo struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// Missing returns the names of required shipping fields that are blank.
// A nil receiver is missing everything.
func (s *ShippingInfo) Missing() []string {
	if s == nil {
		return []string{"fullName", "email", "phone", "addressLine1", "city", "postalCode", "country"}
	}

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"fullName", s.FullName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"addressLine1", s.AddressLine1},
		{"city", s.City},
		{"postalCode", s.PostalCode},
		{"country", s.Country},
	}
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// Entry is a registered answer submission, bucketed by correctness.
// Shipping details are stored but never rendered publicly.
type Entry struct {
	ID            int64           `json:"-"`
	RaffleID      uuid.UUID       `json:"-"`
	ParticipantID string          `json:"participantId"`
	Name          string          `json:"name"`
	Pubkey        string          `json:"pubkey"`
	Answer        string          `json:"answer"`
	IsCorrect     bool            `json:"isCorrect"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	ShippingInfo  *ShippingInfo   `json:"-"`
	RegisteredAt  time.Time       `json:"registeredAt"`
}

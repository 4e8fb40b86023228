package api

import (
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/interfaces"

	"github.com/shopspring/decimal"
)

type prizeDetailsRequest struct {
	Type             string           `json:"type"`
	Title            string           `json:"title"`
	Amount           *decimal.Decimal `json:"amount"`
	Details          string           `json:"details"`
	ImageURL         string           `json:"imageUrl"`
	RequiresShipping bool             `json:"requiresShipping"`
	ShippingFields   []string         `json:"shippingFields"`
}

type participantsRequest struct {
	Max *int `json:"max"`
	Min *int `json:"min"`
}

type timeRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

type questionRequest struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type statusRequest struct {
	IsOnChain bool `json:"isOnChain"`
}

// createRaffleRequest mirrors the nested raffle document accepted on create
type createRaffleRequest struct {
	RaffleID     string              `json:"raffleId"`
	EntryFee     *decimal.Decimal    `json:"entryFee"`
	PrizeDetails prizeDetailsRequest `json:"prizeDetails"`
	Participants participantsRequest `json:"participants"`
	Time         timeRequest         `json:"time"`
	Question     questionRequest     `json:"question"`
	Status       statusRequest       `json:"status"`
}

func (r createRaffleRequest) toInput() interfaces.CreateRaffleInput {
	prize := entities.PrizeDetails{
		Type:             r.PrizeDetails.Type,
		Title:            r.PrizeDetails.Title,
		Details:          r.PrizeDetails.Details,
		ImageURL:         r.PrizeDetails.ImageURL,
		RequiresShipping: r.PrizeDetails.RequiresShipping,
		ShippingFields:   r.PrizeDetails.ShippingFields,
	}
	if r.PrizeDetails.Amount != nil {
		prize.Amount = decimal.NewNullDecimal(*r.PrizeDetails.Amount)
	}

	return interfaces.CreateRaffleInput{
		RaffleID:        r.RaffleID,
		EntryFee:        r.EntryFee,
		PrizeDetails:    prize,
		MaxParticipants: r.Participants.Max,
		MinParticipants: r.Participants.Min,
		StartTime:       r.Time.Start,
		EndTime:         r.Time.End,
		QuestionText:    r.Question.Text,
		QuestionOptions: r.Question.Options,
		CorrectAnswer:   r.Question.CorrectAnswer,
		IsOnChain:       r.Status.IsOnChain,
	}
}

type registerParticipantRequest struct {
	ParticipantID string                 `json:"participantId"`
	Name          string                 `json:"name"`
	Pubkey        string                 `json:"pubkey"`
	Answer        string                 `json:"answer"`
	AmountPaid    *decimal.Decimal       `json:"amountPaid"`
	ShippingInfo  *entities.ShippingInfo `json:"shippingInfo"`
}

func (r registerParticipantRequest) toInput() interfaces.RegisterParticipantInput {
	return interfaces.RegisterParticipantInput{
		ParticipantID: r.ParticipantID,
		Name:          r.Name,
		Pubkey:        r.Pubkey,
		Answer:        r.Answer,
		AmountPaid:    r.AmountPaid,
		ShippingInfo:  r.ShippingInfo,
	}
}

type purchaseTicketRequest struct {
	ParticipantID        string  `json:"participantId"`
	Pubkey               string  `json:"pubkey"`
	TicketCount          int     `json:"ticketCount"`
	TransactionSignature *string `json:"transactionSignature"`
}

func (r purchaseTicketRequest) toInput() interfaces.PurchaseTicketInput {
	return interfaces.PurchaseTicketInput{
		ParticipantID:        r.ParticipantID,
		Pubkey:               r.Pubkey,
		TicketCount:          r.TicketCount,
		TransactionSignature: r.TransactionSignature,
	}
}

type extendRaffleRequest struct {
	AdditionalMinutes *float64 `json:"additionalMinutes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

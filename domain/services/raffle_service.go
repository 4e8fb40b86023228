package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"rafflehub/domain/entities"
	"rafflehub/domain/events"
	"rafflehub/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Paging bounds the page sizes callers may request
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPaging is used when no explicit paging configuration is supplied
var DefaultPaging = Paging{DefaultLimit: 10, MaxLimit: 100}

// MaxPage bounds the page number so the row offset stays representable
const MaxPage = 1_000_000

// maxExtensionMinutes is the largest extension a time.Duration can hold
const maxExtensionMinutes = float64(math.MaxInt64 / int64(time.Minute))

// normalize applies defaults and caps to a requested page and limit
func (p Paging) normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return page, limit
}

// raffleService implements the raffle lifecycle on top of the repositories.
// Callers run each operation inside one transaction.
type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	ticketRepo     interfaces.TicketRepository
	entryRepo      interfaces.EntryRepository
	refundRepo     interfaces.RefundRepository
	eventPublisher interfaces.EventPublisher
	paging         Paging
	now            func() time.Time
}

// NewRaffleService creates a new raffle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	ticketRepo interfaces.TicketRepository,
	entryRepo interfaces.EntryRepository,
	refundRepo interfaces.RefundRepository,
	eventPublisher interfaces.EventPublisher,
	paging Paging,
) interfaces.RaffleService {
	if paging.DefaultLimit < 1 || paging.MaxLimit < paging.DefaultLimit {
		paging = DefaultPaging
	}
	return &raffleService{
		raffleRepo:     raffleRepo,
		ticketRepo:     ticketRepo,
		entryRepo:      entryRepo,
		refundRepo:     refundRepo,
		eventPublisher: eventPublisher,
		paging:         paging,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateRaffle validates the definition and persists a new active raffle
func (s *raffleService) CreateRaffle(ctx context.Context, input interfaces.CreateRaffleInput) (string, error) {
	var missing []string
	if input.RaffleID == "" {
		missing = append(missing, "raffleId")
	}
	if input.EntryFee == nil {
		missing = append(missing, "entryFee")
	}
	if input.PrizeDetails.Type == "" {
		missing = append(missing, "prizeDetails.type")
	}
	if input.MaxParticipants == nil {
		missing = append(missing, "participants.max")
	}
	if input.MinParticipants == nil {
		missing = append(missing, "participants.min")
	}
	if input.StartTime == nil {
		missing = append(missing, "time.start")
	}
	if input.EndTime == nil {
		missing = append(missing, "time.end")
	}
	if input.QuestionText == "" {
		missing = append(missing, "question.text")
	}
	if len(input.QuestionOptions) == 0 {
		missing = append(missing, "question.options")
	}
	if input.CorrectAnswer == "" {
		missing = append(missing, "question.correctAnswer")
	}
	if len(missing) > 0 {
		return "", &ValidationError{Fields: missing}
	}

	switch {
	case !input.EntryFee.IsPositive():
		return "", &ValidationError{Fields: []string{"entryFee"}, Message: "entryFee must be positive"}
	case *input.MaxParticipants < 1:
		return "", &ValidationError{Fields: []string{"participants.max"}, Message: "participants.max must be at least 1"}
	case *input.MinParticipants < 0:
		return "", &ValidationError{Fields: []string{"participants.min"}, Message: "participants.min must not be negative"}
	case *input.MinParticipants > *input.MaxParticipants:
		return "", &ValidationError{Fields: []string{"participants.min"}, Message: "participants.min must not exceed participants.max"}
	case !input.EndTime.After(*input.StartTime):
		return "", &ValidationError{Fields: []string{"time.end"}, Message: "time.end must be after time.start"}
	}

	options := make([]string, len(input.QuestionOptions))
	copy(options, input.QuestionOptions)

	prize := input.PrizeDetails
	if prize.ShippingFields == nil {
		prize.ShippingFields = []string{}
	}

	raffle := &entities.Raffle{
		ID:           uuid.New(),
		RaffleID:     input.RaffleID,
		EntryFee:     *input.EntryFee,
		PrizeDetails: prize,
		Participants: entities.Participants{
			Max: *input.MaxParticipants,
			Min: *input.MinParticipants,
		},
		Time: entities.RaffleTime{
			Start:   input.StartTime.UTC(),
			End:     input.EndTime.UTC(),
			Created: s.now(),
		},
		Question: entities.Question{
			Text:          input.QuestionText,
			Options:       options,
			CorrectAnswer: input.CorrectAnswer,
		},
		Status: entities.Status{
			Current:     entities.RaffleStatusActive,
			Fulfillment: entities.FulfillmentPending,
			IsOnChain:   input.IsOnChain,
		},
	}

	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		return "", storeError("create raffle", err)
	}

	log.WithFields(log.Fields{
		"raffleID": raffle.ID,
		"clientID": raffle.RaffleID,
		"max":      raffle.Participants.Max,
		"min":      raffle.Participants.Min,
	}).Info("Raffle created")

	return raffle.ID.String(), nil
}

// ListActiveRaffles returns one page of active raffles and the total match count
func (s *raffleService) ListActiveRaffles(ctx context.Context, query interfaces.ListRafflesQuery) (*interfaces.RafflePage, error) {
	page, limit := s.paging.normalize(query.Page, query.Limit)

	fulfillment := entities.FulfillmentStatus(query.Fulfillment)
	if fulfillment != "" && !fulfillment.IsValid() {
		return nil, &ValidationError{Fields: []string{"fulfillment"}, Message: fmt.Sprintf("unknown fulfillment status %q", query.Fulfillment)}
	}
	if query.MaxParticipants != nil && *query.MaxParticipants < 0 {
		return nil, &ValidationError{Fields: []string{"maxParticipants"}, Message: "maxParticipants must not be negative"}
	}

	sortField, ok := entities.ParseSortField(query.SortField)
	if !ok {
		log.WithField("sortField", query.SortField).Debug("Ignoring unknown sort field")
	}

	filter := entities.RaffleFilter{
		PrizeType:       query.PrizeType,
		MaxParticipants: query.MaxParticipants,
		Fulfillment:     fulfillment,
		SortField:       sortField,
		SortDescending:  query.SortDescending,
		Limit:           limit,
		Offset:          (page - 1) * limit,
	}

	raffles, err := s.raffleRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, storeError("list active raffles", err)
	}

	total, err := s.raffleRepo.CountActive(ctx, filter)
	if err != nil {
		return nil, storeError("count active raffles", err)
	}

	items := make([]*entities.Raffle, 0, len(raffles))
	for _, raffle := range raffles {
		items = append(items, raffle.WithDisplayDefaults())
	}

	return &interfaces.RafflePage{
		Raffles: items,
		Meta:    interfaces.NewPageMeta(page, limit, total),
	}, nil
}

// GetRaffleByID returns the full raffle, including its ticket log and entries
func (s *raffleService) GetRaffleByID(ctx context.Context, id string) (*entities.Raffle, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	raffle, err := s.getRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.GetByRaffle(ctx, raffleID)
	if err != nil {
		return nil, storeError("get raffle tickets", err)
	}
	entries, err := s.entryRepo.GetByRaffle(ctx, raffleID)
	if err != nil {
		return nil, storeError("get raffle entries", err)
	}

	raffle.Participants.Tickets = make([]entities.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		raffle.Participants.Tickets = append(raffle.Participants.Tickets, *ticket)
	}
	raffle.Participants.Correct = []entities.Entry{}
	raffle.Participants.Incorrect = []entities.Entry{}
	for _, entry := range entries {
		if entry.IsCorrect {
			raffle.Participants.Correct = append(raffle.Participants.Correct, *entry)
		} else {
			raffle.Participants.Incorrect = append(raffle.Participants.Incorrect, *entry)
		}
	}

	return raffle.WithDisplayDefaults(), nil
}

// RegisterParticipant records an answer and one ticket in a single transaction
func (s *raffleService) RegisterParticipant(ctx context.Context, id string, input interfaces.RegisterParticipantInput) (*interfaces.RegistrationResult, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	var missing []string
	if input.ParticipantID == "" {
		missing = append(missing, "participantId")
	}
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Pubkey == "" {
		missing = append(missing, "pubkey")
	}
	if input.Answer == "" {
		missing = append(missing, "answer")
	}
	if input.AmountPaid == nil {
		missing = append(missing, "amountPaid")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	// Lock the raffle so the duplicate check and the insert are serialized
	raffle, err := s.getRaffleForUpdate(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	exists, err := s.ticketRepo.ExistsForParticipant(ctx, raffleID, input.ParticipantID)
	if err != nil {
		return nil, storeError("check existing participant", err)
	}
	if exists {
		return nil, &DuplicateParticipantError{ParticipantID: input.ParticipantID}
	}

	if raffle.PrizeDetails.RequiresShipping {
		if missingShipping := input.ShippingInfo.Missing(); len(missingShipping) > 0 {
			return nil, &ValidationError{
				Fields:  missingShipping,
				Message: "missing shipping information: " + strings.Join(missingShipping, ", "),
			}
		}
	}

	sold, reserved, err := s.raffleRepo.ReserveEntrySlot(ctx, raffleID)
	if err != nil {
		return nil, storeError("reserve entry slot", err)
	}
	if !reserved {
		return nil, &InsufficientTicketsError{Requested: 1, Available: 0}
	}

	now := s.now()
	entry := &entities.Entry{
		RaffleID:      raffleID,
		ParticipantID: input.ParticipantID,
		Name:          input.Name,
		Pubkey:        input.Pubkey,
		Answer:        input.Answer,
		IsCorrect:     raffle.AnswerIsCorrect(input.Answer),
		AmountPaid:    *input.AmountPaid,
		ShippingInfo:  input.ShippingInfo,
		RegisteredAt:  now,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			return nil, &DuplicateParticipantError{ParticipantID: input.ParticipantID}
		}
		return nil, storeError("create entry", err)
	}

	ticket := &entities.Ticket{
		RaffleID:       raffleID,
		ParticipantID:  input.ParticipantID,
		Pubkey:         input.Pubkey,
		PurchaseTime:   now,
		AmountPaid:     *input.AmountPaid,
		RefundEligible: true,
	}
	if err := s.ticketRepo.CreateBatch(ctx, []*entities.Ticket{ticket}); err != nil {
		return nil, storeError("create registration ticket", err)
	}

	s.publish(events.ParticipantUpdateEvent{
		RaffleID:         raffleID,
		ParticipantID:    entry.ParticipantID,
		Name:             entry.Name,
		Pubkey:           entry.Pubkey,
		TicketsSold:      sold,
		AvailableTickets: raffle.Participants.Max - sold,
		RegisteredAt:     now,
	})

	return &interfaces.RegistrationResult{IsCorrect: entry.IsCorrect}, nil
}

// PurchaseTicket appends tickets and bumps the counters in one conditional update
func (s *raffleService) PurchaseTicket(ctx context.Context, id string, input interfaces.PurchaseTicketInput) (*interfaces.PurchaseResult, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	var missing []string
	if input.ParticipantID == "" {
		missing = append(missing, "participantId")
	}
	if input.Pubkey == "" {
		missing = append(missing, "pubkey")
	}
	if input.TicketCount < 1 {
		missing = append(missing, "ticketCount")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	raffle, err := s.getRaffleForUpdate(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.IsActive() {
		return nil, &RaffleNotActiveError{Status: string(raffle.Status.Current)}
	}
	if available := raffle.AvailableTickets(); input.TicketCount > available {
		return nil, &InsufficientTicketsError{Requested: input.TicketCount, Available: available}
	}

	sold, reserved, err := s.raffleRepo.ReserveTickets(ctx, raffleID, input.TicketCount)
	if err != nil {
		return nil, storeError("reserve tickets", err)
	}
	if !reserved {
		return nil, &InsufficientTicketsError{Requested: input.TicketCount, Available: raffle.AvailableTickets()}
	}

	tickets := entities.NewTickets(raffleID, input.ParticipantID, input.Pubkey, raffle.EntryFee, input.TicketCount, input.TransactionSignature, s.now())
	if err := s.ticketRepo.CreateBatch(ctx, tickets); err != nil {
		return nil, storeError("create tickets", err)
	}

	result := &interfaces.PurchaseResult{
		TicketsSold:      sold,
		AvailableTickets: raffle.Participants.Max - sold,
	}

	s.publish(events.RaffleUpdateEvent{
		RaffleID:         raffleID,
		TicketsSold:      result.TicketsSold,
		AvailableTickets: result.AvailableTickets,
	})

	return result, nil
}

// ConcludeRaffle draws a winner among the correct entries. A raffle that is
// no longer active is rejected, so a winner is never drawn twice.
func (s *raffleService) ConcludeRaffle(ctx context.Context, id string) (*entities.Winner, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	raffle, err := s.getRaffleForUpdate(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.IsActive() {
		return nil, &RaffleNotActiveError{Status: string(raffle.Status.Current)}
	}

	correct, err := s.entryRepo.GetCorrectByRaffle(ctx, raffleID)
	if err != nil {
		return nil, storeError("get correct entries", err)
	}
	if !raffle.HasMetThreshold(len(correct)) {
		return nil, &ThresholdNotMetError{Have: len(correct), Need: raffle.Participants.Min}
	}

	entry, err := entities.DrawWinner(correct)
	if errors.Is(err, entities.ErrNoEligibleEntries) {
		return nil, &ThresholdNotMetError{Have: 0, Need: 1}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to draw winner: %w", err)
	}

	winner := raffle.Conclude(entry)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, storeError("update concluded raffle", err)
	}

	log.WithFields(log.Fields{
		"raffleID":    raffleID,
		"winner":      winner.ParticipantID,
		"correct":     len(correct),
		"fulfillment": raffle.Status.Fulfillment,
	}).Info("Raffle concluded")

	s.publish(events.RaffleConcludedEvent{
		RaffleID:    raffleID,
		Winner:      *winner,
		Fulfillment: raffle.Status.Fulfillment,
	})

	return winner, nil
}

// ExtendRaffle pushes the end time of an active raffle out by the given minutes
func (s *raffleService) ExtendRaffle(ctx context.Context, id string, additionalMinutes float64) (time.Time, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return time.Time{}, err
	}

	if math.IsNaN(additionalMinutes) || math.IsInf(additionalMinutes, 0) || additionalMinutes <= 0 {
		return time.Time{}, &ValidationError{Fields: []string{"additionalMinutes"}, Message: "additionalMinutes must be a positive number"}
	}
	if additionalMinutes > maxExtensionMinutes {
		return time.Time{}, &ValidationError{
			Fields:  []string{"additionalMinutes"},
			Message: fmt.Sprintf("additionalMinutes must not exceed %.0f", maxExtensionMinutes),
		}
	}

	raffle, err := s.getRaffle(ctx, raffleID)
	if err != nil {
		return time.Time{}, err
	}
	if !raffle.IsActive() {
		return time.Time{}, &RaffleNotActiveError{Status: string(raffle.Status.Current)}
	}

	extension := time.Duration(additionalMinutes * float64(time.Minute))
	newEnd, err := s.raffleRepo.ExtendEndTime(ctx, raffleID, extension)
	if err != nil {
		return time.Time{}, storeError("extend raffle", err)
	}
	if newEnd == nil {
		// Concluded or expired between the read and the update
		return time.Time{}, &RaffleNotActiveError{Status: "inactive"}
	}

	s.publish(events.RaffleUpdateEvent{
		RaffleID:         raffleID,
		TicketsSold:      raffle.Participants.TicketsSold,
		AvailableTickets: raffle.AvailableTickets(),
		EndTime:          newEnd,
	})

	return *newEnd, nil
}

// GetRaffleTransactions merges the newest purchases and refunds of a raffle
func (s *raffleService) GetRaffleTransactions(ctx context.Context, id string) ([]entities.LedgerEntry, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	if _, err := s.getRaffle(ctx, raffleID); err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.GetRecentByRaffle(ctx, raffleID, entities.MaxLedgerEntries)
	if err != nil {
		return nil, storeError("get recent tickets", err)
	}
	refunds, err := s.refundRepo.GetRecentByRaffle(ctx, raffleID, entities.MaxLedgerEntries)
	if err != nil {
		return nil, storeError("get recent refunds", err)
	}

	return entities.MergeLedger(tickets, refunds, entities.MaxLedgerEntries), nil
}

// ListParticipants returns one page of per-participant ticket summaries
func (s *raffleService) ListParticipants(ctx context.Context, id string, page, limit int) (*interfaces.ParticipantPage, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	if _, err := s.getRaffle(ctx, raffleID); err != nil {
		return nil, err
	}

	page, limit = s.paging.normalize(page, limit)

	summaries, err := s.ticketRepo.GetParticipantSummary(ctx, raffleID, limit, (page-1)*limit)
	if err != nil {
		return nil, storeError("get participant summary", err)
	}
	total, err := s.ticketRepo.CountParticipants(ctx, raffleID)
	if err != nil {
		return nil, storeError("count participants", err)
	}
	if summaries == nil {
		summaries = []*entities.ParticipantSummary{}
	}

	return &interfaces.ParticipantPage{
		Participants: summaries,
		Meta:         interfaces.NewPageMeta(page, limit, total),
	}, nil
}

// ExpireRaffle closes a lapsed raffle that can no longer be concluded and
// records one off-chain refund per refund-eligible ticket. A raffle that is
// not yet past its end, or that has enough correct entries to be concluded,
// is left untouched and nil refunds are returned.
func (s *raffleService) ExpireRaffle(ctx context.Context, id string) ([]*entities.Refund, error) {
	raffleID, err := parseRaffleID(id)
	if err != nil {
		return nil, err
	}

	raffle, err := s.getRaffleForUpdate(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.IsActive() {
		return nil, &RaffleNotActiveError{Status: string(raffle.Status.Current)}
	}

	now := s.now()
	if !raffle.IsPastEnd(now) {
		return nil, nil
	}

	correctCount, err := s.entryRepo.CountCorrect(ctx, raffleID)
	if err != nil {
		return nil, storeError("count correct entries", err)
	}
	if correctCount > 0 && raffle.HasMetThreshold(correctCount) {
		return nil, nil
	}

	tickets, err := s.ticketRepo.GetRefundEligible(ctx, raffleID)
	if err != nil {
		return nil, storeError("get refund eligible tickets", err)
	}

	refunds := make([]*entities.Refund, 0, len(tickets))
	for _, ticket := range tickets {
		refunds = append(refunds, entities.RefundForTicket(ticket, now))
	}
	if err := s.refundRepo.CreateBatch(ctx, refunds); err != nil {
		return nil, storeError("create refunds", err)
	}
	if err := s.ticketRepo.MarkRefunded(ctx, raffleID); err != nil {
		return nil, storeError("mark tickets refunded", err)
	}

	raffle.Expire(len(refunds))
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, storeError("update expired raffle", err)
	}

	log.WithFields(log.Fields{
		"raffleID": raffleID,
		"correct":  correctCount,
		"min":      raffle.Participants.Min,
		"refunds":  len(refunds),
	}).Info("Raffle expired")

	s.publish(events.NotificationEvent{
		RaffleID:    raffleID,
		Message:     "Raffle ended without enough correct entries; tickets will be refunded",
		Status:      entities.RaffleStatusExpired,
		RefundCount: len(refunds),
	})

	return refunds, nil
}

// getRaffle loads a raffle or returns NotFoundError
func (s *raffleService) getRaffle(ctx context.Context, raffleID uuid.UUID) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, storeError("get raffle", err)
	}
	if raffle == nil {
		return nil, &NotFoundError{ID: raffleID.String()}
	}
	return raffle, nil
}

// getRaffleForUpdate locks a raffle row or returns NotFoundError
func (s *raffleService) getRaffleForUpdate(ctx context.Context, raffleID uuid.UUID) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, raffleID)
	if err != nil {
		return nil, storeError("lock raffle", err)
	}
	if raffle == nil {
		return nil, &NotFoundError{ID: raffleID.String()}
	}
	return raffle, nil
}

// publish hands an event to the unit of work's publisher; failures are logged
func (s *raffleService) publish(event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"eventType": event.Type(),
			"raffleID":  event.RaffleKey(),
		}).Warn("Failed to publish raffle event")
	}
}

// parseRaffleID validates a store-native raffle identifier
func parseRaffleID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, &InvalidIDError{ID: id}
	}
	return parsed, nil
}

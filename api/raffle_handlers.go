package api

import (
	"net/http"
	"strconv"
	"strings"

	"rafflehub/domain/interfaces"
	"rafflehub/domain/services"

	"github.com/gin-gonic/gin"
)

// RaffleHandler exposes the raffle service over HTTP
type RaffleHandler struct {
	service interfaces.RaffleService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(service interfaces.RaffleService) *RaffleHandler {
	return &RaffleHandler{service: service}
}

// RegisterRoutes registers the raffle routes on the group
func (h *RaffleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	raffles := rg.Group("/raffles")
	raffles.GET("", h.ListRaffles)
	raffles.POST("", h.CreateRaffle)
	raffles.GET("/:id", h.GetRaffle)
	raffles.POST("/:id/register", h.RegisterParticipant)
	raffles.GET("/:id/participants", h.ListParticipants)
	raffles.POST("/:id/conclude", h.ConcludeRaffle)
	raffles.POST("/:id/extend", h.ExtendRaffle)
	raffles.POST("/:id/purchase-ticket", h.PurchaseTicket)
	raffles.GET("/:id/transactions", h.GetTransactions)
}

// ListRaffles handles GET /raffles
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	query := interfaces.ListRafflesQuery{
		PrizeType:      c.Query("prizeType"),
		Fulfillment:    c.Query("fulfillment"),
		SortField:      c.Query("sortBy"),
		SortDescending: strings.EqualFold(c.Query("sortOrder"), "desc"),
		Page:           queryInt(c, "page"),
		Limit:          queryInt(c, "limit"),
	}

	if raw := c.Query("maxParticipants"); raw != "" {
		maxParticipants, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, &services.ValidationError{Message: "maxParticipants must be an integer"})
			return
		}
		query.MaxParticipants = &maxParticipants
	}

	page, err := h.service.ListActiveRaffles(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": page.Raffles, "meta": page.Meta})
}

// CreateRaffle handles POST /raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req createRaffleRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.service.CreateRaffle(c.Request.Context(), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetRaffle handles GET /raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	raffle, err := h.service.GetRaffleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": raffle})
}

// RegisterParticipant handles POST /raffles/:id/register
func (h *RaffleHandler) RegisterParticipant(c *gin.Context) {
	var req registerParticipantRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.RegisterParticipant(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListParticipants handles GET /raffles/:id/participants
func (h *RaffleHandler) ListParticipants(c *gin.Context) {
	page, err := h.service.ListParticipants(c.Request.Context(), c.Param("id"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": page.Participants, "meta": page.Meta})
}

// ConcludeRaffle handles POST /raffles/:id/conclude
func (h *RaffleHandler) ConcludeRaffle(c *gin.Context) {
	winner, err := h.service.ConcludeRaffle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"winner": winner})
}

// ExtendRaffle handles POST /raffles/:id/extend
func (h *RaffleHandler) ExtendRaffle(c *gin.Context) {
	var req extendRaffleRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AdditionalMinutes == nil {
		respondError(c, &services.ValidationError{Fields: []string{"additionalMinutes"}})
		return
	}

	end, err := h.service.ExtendRaffle(c.Request.Context(), c.Param("id"), *req.AdditionalMinutes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updatedEndTime": end})
}

// PurchaseTicket handles POST /raffles/:id/purchase-ticket
func (h *RaffleHandler) PurchaseTicket(c *gin.Context) {
	var req purchaseTicketRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.PurchaseTicket(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactions handles GET /raffles/:id/transactions
func (h *RaffleHandler) GetTransactions(c *gin.Context) {
	ledger, err := h.service.GetRaffleTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ledger})
}

// queryInt parses an integer query parameter; absent or malformed values
// are zero so the service applies its defaults
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

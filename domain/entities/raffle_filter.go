package entities

import "strings"

// RaffleSortField is a whitelisted sort key for listing raffles
type RaffleSortField string

const (
	SortByStartTime       RaffleSortField = "time.start"
	SortByEndTime         RaffleSortField = "time.end"
	SortByCreatedTime     RaffleSortField = "time.created"
	SortByEntryFee        RaffleSortField = "entryFee"
	SortByTicketsSold     RaffleSortField = "ticketsSold"
	SortByMaxParticipants RaffleSortField = "participants.max"
)

var sortColumns = map[RaffleSortField]string{
	SortByStartTime:       "start_time",
	SortByEndTime:         "end_time",
	SortByCreatedTime:     "created_at",
	SortByEntryFee:        "entry_fee",
	SortByTicketsSold:     "tickets_sold",
	SortByMaxParticipants: "max_participants",
}

// ParseSortField maps a caller-supplied key to a whitelisted field.
// Unknown or empty keys fall back to the start time.
func ParseSortField(raw string) (RaffleSortField, bool) {
	field := RaffleSortField(strings.TrimSpace(raw))
	if field == "" {
		return SortByStartTime, true
	}
	if _, ok := sortColumns[field]; !ok {
		return SortByStartTime, false
	}
	return field, true
}

// Column returns the SQL column backing the sort field
func (f RaffleSortField) Column() string {
	if col, ok := sortColumns[f]; ok {
		return col
	}
	return sortColumns[SortByStartTime]
}

// RaffleFilter narrows and orders the active raffle listing
type RaffleFilter struct {
	PrizeType       string
	MaxParticipants *int
	Fulfillment     FulfillmentStatus
	SortField       RaffleSortField
	SortDescending  bool
	Limit           int
	Offset          int
}

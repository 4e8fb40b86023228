package observability

// Metric name prefixes
const (
	MetricPrefix = "rafflehub"
)

// Metric names
const (
	// Raffle metrics
	TicketsSoldTotal       = MetricPrefix + ".raffle.tickets_sold_total"
	RaffleTransitionsTotal = MetricPrefix + ".raffle.transitions_total"
	OperationsTotal        = MetricPrefix + ".raffle.operations_total"

	// Realtime metrics
	EventsPublishedTotal  = MetricPrefix + ".events.published_total"
	WebSocketConnections  = MetricPrefix + ".websocket.connections"
	WebSocketDroppedTotal = MetricPrefix + ".websocket.dropped_frames_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"
)

// Operation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

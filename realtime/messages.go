package realtime

import (
	"encoding/json"
	"fmt"
)

// Frame types exchanged with connections, besides the raffle event types
const (
	FrameTypeSubscribe  = "subscribe"
	FrameTypeSubscribed = "subscribed"
	FrameTypeEcho       = "echo"
	FrameTypeError      = "error"
)

// inboundMessage is the part of a client frame the hub interprets
type inboundMessage struct {
	Type     string          `json:"type"`
	RaffleID json.RawMessage `json:"raffleId"`
}

type statusFrame struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	RaffleID string `json:"raffleId,omitempty"`
}

type echoFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// subscriptionTarget extracts a usable raffle ID. String and numeric IDs are
// both accepted; anything else is ignored.
func (m inboundMessage) subscriptionTarget() (string, bool) {
	if m.Type != FrameTypeSubscribe || len(m.RaffleID) == 0 {
		return "", false
	}

	var id string
	if err := json.Unmarshal(m.RaffleID, &id); err == nil {
		return id, id != ""
	}

	var number json.Number
	if err := json.Unmarshal(m.RaffleID, &number); err == nil {
		return number.String(), true
	}

	return "", false
}

func errorFrame(message string) []byte {
	data, _ := json.Marshal(statusFrame{Type: FrameTypeError, Message: message})
	return data
}

func subscribedFrame(raffleID string) []byte {
	data, _ := json.Marshal(statusFrame{
		Type:     FrameTypeSubscribed,
		Message:  fmt.Sprintf("Subscribed to raffle %s", raffleID),
		RaffleID: raffleID,
	})
	return data
}

// echoOf wraps the parsed client message. raw is known to be valid JSON.
func echoOf(raw []byte) []byte {
	data, _ := json.Marshal(echoFrame{Type: FrameTypeEcho, Data: json.RawMessage(raw)})
	return data
}

package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rafflehub/domain/events"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func subscribe(t *testing.T, conn *websocket.Conn, raffleID string) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "raffleId": raffleID}))

	ack := readFrame(t, conn)
	require.Equal(t, "subscribed", ack["type"])
	assert.Equal(t, raffleID, ack["raffleId"])

	echo := readFrame(t, conn)
	require.Equal(t, "echo", echo["type"])
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastReachesOnlySubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	server := newTestServer(t, hub)

	raffleX := uuid.NewString()
	raffleY := uuid.NewString()

	subscriberX := dial(t, server)
	subscriberY := dial(t, server)
	waitForClients(t, hub, 2)

	subscribe(t, subscriberX, raffleX)
	subscribe(t, subscriberY, raffleY)

	xID := uuid.MustParse(raffleX)
	require.NoError(t, hub.Broadcast(raffleX, events.RaffleUpdateEvent{RaffleID: xID, TicketsSold: 3, AvailableTickets: 2}))
	require.NoError(t, hub.Broadcast(raffleY, events.NotificationEvent{RaffleID: uuid.MustParse(raffleY), Message: "for y"}))

	frame := readFrame(t, subscriberX)
	assert.Equal(t, "raffleUpdate", frame["type"])
	assert.Equal(t, raffleX, frame["raffleId"])
	assert.Equal(t, float64(3), frame["ticketsSold"])

	frame = readFrame(t, subscriberY)
	assert.Equal(t, "notification", frame["type"])
	assert.Equal(t, "for y", frame["message"])
}

func TestHub_LastSubscriptionWins(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	server := newTestServer(t, hub)

	first := uuid.NewString()
	second := uuid.NewString()

	conn := dial(t, server)
	subscribe(t, conn, first)
	subscribe(t, conn, second)

	hub.BroadcastRaw(first, []byte(`{"type":"notification","message":"stale"}`))
	hub.BroadcastRaw(second, []byte(`{"type":"notification","message":"current"}`))

	frame := readFrame(t, conn)
	assert.Equal(t, "current", frame["message"])
}

func TestHub_MessageHandling(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	server := newTestServer(t, hub)
	conn := dial(t, server)

	t.Run("invalid json gets an error frame only", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		frame := readFrame(t, conn)
		assert.Equal(t, "error", frame["type"])
		assert.NotEmpty(t, frame["message"])

		// The next frame must answer the next message, proving no echo was sent
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
		frame = readFrame(t, conn)
		assert.Equal(t, "echo", frame["type"])
	})

	t.Run("other messages are echoed", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello","n":1}`)))

		frame := readFrame(t, conn)
		assert.Equal(t, "echo", frame["type"])
		data, ok := frame["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hello", data["type"])
		assert.Equal(t, float64(1), data["n"])
	})

	t.Run("subscribe without raffle id is only echoed", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))

		frame := readFrame(t, conn)
		assert.Equal(t, "echo", frame["type"])
	})

	t.Run("non-object json is echoed", func(t *testing.T) {
		tests := []struct {
			raw  string
			want any
		}{
			{`["subscribe"]`, []any{"subscribe"}},
			{`42`, float64(42)},
			{`"x"`, "x"},
			{`null`, nil},
		}

		for _, tt := range tests {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))

			frame := readFrame(t, conn)
			assert.Equal(t, "echo", frame["type"], tt.raw)
			assert.Equal(t, tt.want, frame["data"], tt.raw)
		}
	})
}

func TestHub_CloseUnregisters(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	server := newTestServer(t, hub)

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// Broadcasting to a departed subscriber is a silent no-op
	hub.BroadcastRaw("anything", []byte(`{}`))
}

func TestHub_HandleEvent(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	server := newTestServer(t, hub)

	raffleID := uuid.New()
	conn := dial(t, server)
	subscribe(t, conn, raffleID.String())

	err := hub.HandleEvent(context.Background(), events.RaffleConcludedEvent{RaffleID: raffleID})
	require.NoError(t, err)

	frame := readFrame(t, conn)
	assert.Equal(t, "raffleConcluded", frame["type"])
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	t.Parallel()

	hub := NewHub([]string{"https://raffles.example"}, nil)
	server := newTestServer(t, hub)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://raffles.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestSubscriptionTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "string id", raw: `{"type":"subscribe","raffleId":"abc"}`, want: "abc", wantOK: true},
		{name: "numeric id", raw: `{"type":"subscribe","raffleId":42}`, want: "42", wantOK: true},
		{name: "empty id", raw: `{"type":"subscribe","raffleId":""}`, wantOK: false},
		{name: "object id", raw: `{"type":"subscribe","raffleId":{}}`, wantOK: false},
		{name: "other type", raw: `{"type":"ping","raffleId":"abc"}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var msg inboundMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))

			got, ok := msg.subscriptionTarget()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/game"
	"github.com/dkovn/match-server/pkg/matchmaking"
	"github.com/dkovn/match-server/pkg/messages"
	"github.com/dkovn/match-server/pkg/practice"
)

const timeout = 2 * time.Second

// envelope mirrors the wire format with the payload left raw for per-type
// decoding.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startTestServer starts a hub behind a websocket endpoint.
func startTestServer(t *testing.T) (*httptest.Server, *game.Registry) {
	t.Helper()

	logger := zap.NewNop()
	publisher := events.NewPublisher()
	registry := game.NewRegistry(publisher, logger)
	queue := matchmaking.NewQueue(registry, logger)
	generator := practice.NewGenerator(1)
	hub := NewHub(queue, registry, generator, publisher, logger)

	go hub.Run()
	t.Cleanup(hub.Shutdown)

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conn := NewConnection(ws, hub, logger)
		hub.Register(conn)
		go conn.WritePump()
		go conn.ReadPump()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, registry
}

// wsDial connects to the test endpoint and consumes the CONNECTED greeting.
func wsDial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	greeting := readEnvelope(t, conn)
	require.Equal(t, messages.TypeConnected, greeting.Type)

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON from server: %v\npayload: %s", err, string(data))
	}
	return msg
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(messages.InboundMessage{Type: msgType, Payload: raw}))
}

func decodePayload(t *testing.T, msg envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Payload, v))
}

// pairClients drives two connections through PLAYER_READY until both are in a
// session, returning them as (white, black).
func pairClients(t *testing.T, srv *httptest.Server) (*websocket.Conn, *websocket.Conn, string) {
	t.Helper()

	white := wsDial(t, srv)
	sendEnvelope(t, white, messages.TypePlayerReady, struct{}{})
	ack := readEnvelope(t, white)
	require.Equal(t, messages.TypeMatchmaking, ack.Type)

	black := wsDial(t, srv)
	sendEnvelope(t, black, messages.TypePlayerReady, struct{}{})
	ack = readEnvelope(t, black)
	require.Equal(t, messages.TypeMatchmaking, ack.Type)

	var whiteInit, blackInit messages.InitGamePayload

	msg := readEnvelope(t, white)
	require.Equal(t, messages.TypeInitGame, msg.Type)
	decodePayload(t, msg, &whiteInit)
	require.Equal(t, "white", string(whiteInit.Color))

	msg = readEnvelope(t, black)
	require.Equal(t, messages.TypeInitGame, msg.Type)
	decodePayload(t, msg, &blackInit)
	require.Equal(t, "black", string(blackInit.Color))

	require.Equal(t, whiteInit.GameID, blackInit.GameID)

	// Both sides get the initial state broadcast.
	require.Equal(t, messages.TypeGameState, readEnvelope(t, white).Type)
	require.Equal(t, messages.TypeGameState, readEnvelope(t, black).Type)

	return white, black, whiteInit.GameID
}

func TestReadyPairsTwoClientsWithOppositeColors(t *testing.T) {
	srv, registry := startTestServer(t)

	_, _, gameID := pairClients(t, srv)

	assert.NotEmpty(t, gameID)
	assert.Equal(t, 1, registry.SessionCount())
}

func TestMoveIsBroadcastToBothSides(t *testing.T) {
	srv, _ := startTestServer(t)
	white, black, _ := pairClients(t, srv)

	sendEnvelope(t, white, messages.TypeMove, messages.MovePayload{
		Move: messages.MoveSpec{From: "e2", To: "e4"},
	})

	for _, conn := range []*websocket.Conn{white, black} {
		msg := readEnvelope(t, conn)
		require.Equal(t, messages.TypeMove, msg.Type)

		var payload messages.MoveBroadcastPayload
		decodePayload(t, msg, &payload)
		assert.Equal(t, "e2", payload.From)
		assert.Equal(t, "e4", payload.To)
		assert.Equal(t, "white", string(payload.MovingRole))
		assert.Equal(t, "p", payload.ResultingPiece)

		state := readEnvelope(t, conn)
		require.Equal(t, messages.TypeGameState, state.Type)
		var statePayload messages.GameStatePayload
		decodePayload(t, state, &statePayload)
		assert.Equal(t, "black", string(statePayload.Turn))
		assert.Equal(t, 1, statePayload.MoveCount)
	}
}

func TestOutOfTurnMoveAnsweredWithError(t *testing.T) {
	srv, _ := startTestServer(t)
	_, black, _ := pairClients(t, srv)

	sendEnvelope(t, black, messages.TypeMove, messages.MovePayload{
		Move: messages.MoveSpec{From: "e7", To: "e5"},
	})

	msg := readEnvelope(t, black)
	require.Equal(t, messages.TypeError, msg.Type)
	var payload messages.ErrorPayload
	decodePayload(t, msg, &payload)
	assert.Contains(t, payload.Message, "not your turn")
}

func TestResignEndsGameForBoth(t *testing.T) {
	srv, registry := startTestServer(t)
	white, black, _ := pairClients(t, srv)

	sendEnvelope(t, black, messages.TypeResign, struct{}{})

	for _, conn := range []*websocket.Conn{white, black} {
		msg := readEnvelope(t, conn)
		require.Equal(t, messages.TypeGameOver, msg.Type)

		var payload messages.GameOverPayload
		decodePayload(t, msg, &payload)
		assert.Equal(t, "white", payload.Winner)
		assert.Equal(t, "resignation", payload.Reason)
	}

	assert.Eventually(t, func() bool {
		return registry.SessionCount() == 0
	}, timeout, 10*time.Millisecond)
}

func TestDisconnectNotifiesRemainingClient(t *testing.T) {
	srv, _ := startTestServer(t)
	white, black, _ := pairClients(t, srv)

	require.NoError(t, white.Close())

	msg := readEnvelope(t, black)
	require.Equal(t, messages.TypePlayerDisconnected, msg.Type)

	var payload messages.PlayerDisconnectedPayload
	decodePayload(t, msg, &payload)
	assert.Equal(t, "white", string(payload.Color))
}

func TestMoveWithoutSessionIsAnError(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := wsDial(t, srv)

	sendEnvelope(t, conn, messages.TypeMove, messages.MovePayload{
		Move: messages.MoveSpec{From: "e2", To: "e4"},
	})

	msg := readEnvelope(t, conn)
	require.Equal(t, messages.TypeError, msg.Type)
	var payload messages.ErrorPayload
	decodePayload(t, msg, &payload)
	assert.Contains(t, payload.Message, "not in an active game")
}

func TestUnknownTypeIsAnError(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := wsDial(t, srv)

	sendEnvelope(t, conn, "TELEPORT", struct{}{})

	msg := readEnvelope(t, conn)
	require.Equal(t, messages.TypeError, msg.Type)
}

func TestPracticeMoveRepliesWithGeneratedMove(t *testing.T) {
	srv, _ := startTestServer(t)
	conn := wsDial(t, srv)

	sendEnvelope(t, conn, messages.TypePracticeMove, messages.PracticeMovePayload{
		Position: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	})

	msg := readEnvelope(t, conn)
	require.Equal(t, messages.TypePracticeMove, msg.Type)

	var payload messages.PracticeMoveReplyPayload
	decodePayload(t, msg, &payload)
	assert.Len(t, payload.From, 2)
	assert.Len(t, payload.To, 2)
	assert.NotEmpty(t, payload.Position)
}

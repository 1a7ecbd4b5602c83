package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/boardbank/internal/broadcast"
	"github.com/mcoot/boardbank/internal/dependencies/clock"
	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/protocol"
	"github.com/mcoot/boardbank/internal/services/bank"
	"github.com/mcoot/boardbank/internal/services/journal"
	"github.com/mcoot/boardbank/internal/services/membership"
	"github.com/mcoot/boardbank/internal/services/session"
	"github.com/mcoot/boardbank/internal/storage/memory"
	"github.com/mcoot/boardbank/internal/testutil"
)

type HandlerSuite struct {
	suite.Suite
	server     *httptest.Server
	journal    *journal.Journal
	controller *bank.Controller
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := testutil.NopLogger()
	store := memory.New()
	clk := clock.New()
	rnd := random.New()

	s.journal = journal.New(store, 64, logger)
	s.journal.Start(context.Background())
	s.controller = bank.NewController(
		bank.DefaultConfig(),
		session.NewRegistry(model.DefaultCapacity, clk, logger),
		membership.NewTracker(),
		broadcast.NewGateway(logger),
		s.journal,
		store,
		clk,
		rnd,
		logger,
	)
	s.server = httptest.NewServer(NewHandler(s.controller, nil, rnd, logger))
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.journal.Close()
}

func (s *HandlerSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *HandlerSuite) send(conn *websocket.Conn, msgType, id string, payload any) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(protocol.Envelope{Type: msgType, ID: id, Payload: raw}))
}

// expect reads frames until one of msgType arrives
func (s *HandlerSuite) expect(conn *websocket.Conn, msgType string) *protocol.Envelope {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env protocol.Envelope
		s.Require().NoError(conn.ReadJSON(&env), "waiting for %s", msgType)
		if env.Type == msgType {
			return &env
		}
	}
}

// expectUpdate reads game updates until one satisfies match
func (s *HandlerSuite) expectUpdate(conn *websocket.Conn, match func(*model.Snapshot) bool) *model.Snapshot {
	for {
		env := s.expect(conn, protocol.TypeGameUpdate)
		var snap model.Snapshot
		s.Require().NoError(json.Unmarshal(env.Payload, &snap))
		if match(&snap) {
			return &snap
		}
	}
}

func (s *HandlerSuite) expectAck(conn *websocket.Conn, id string) protocol.AckPayload {
	for {
		env := s.expect(conn, protocol.TypeAck)
		if env.ID != id {
			continue
		}
		var ack protocol.AckPayload
		s.Require().NoError(json.Unmarshal(env.Payload, &ack))
		return ack
	}
}

func (s *HandlerSuite) joinAs(conn *websocket.Conn, code, name string) protocol.SuccessPayload {
	s.send(conn, protocol.TypeJoinGame, "", protocol.JoinGamePayload{GameCode: code, PlayerName: name})
	env := s.expect(conn, protocol.TypeSuccess)
	var success protocol.SuccessPayload
	s.Require().NoError(json.Unmarshal(env.Payload, &success))
	return success
}

func (s *HandlerSuite) TestJoinRepliesWithSuccessAndAck() {
	conn := s.dial()

	s.send(conn, protocol.TypeJoinGame, "req-1", protocol.JoinGamePayload{GameCode: "abc123", PlayerName: "Alice"})

	snap := s.expectUpdate(conn, func(*model.Snapshot) bool { return true })
	s.Equal(model.SessionCode("ABC123"), snap.Code)
	s.Require().Len(snap.Players, 1)
	s.True(snap.Players[0].Connected)

	env := s.expect(conn, protocol.TypeSuccess)
	var success protocol.SuccessPayload
	s.Require().NoError(json.Unmarshal(env.Payload, &success))
	s.Equal(protocol.MessageJoined, success.Message)
	s.Equal("ABC123", success.GameCode)
	s.Equal(string(snap.Players[0].ID), success.PlayerID)

	ack := s.expectAck(conn, "req-1")
	s.True(ack.Success)
}

func (s *HandlerSuite) TestTransferBroadcastsToBothPlayers() {
	alice := s.dial()
	bob := s.dial()
	s.joinAs(alice, "ABC123", "Alice")
	s.joinAs(bob, "ABC123", "Bob")

	s.send(alice, protocol.TypeTransfer, "t1", map[string]any{
		"gameCode":       "ABC123",
		"fromPlayerName": "Alice",
		"toPlayerName":   "Bob",
		"amount":         "500",
	})

	ack := s.expectAck(alice, "t1")
	s.True(ack.Success)
	s.Equal(protocol.MessageTransferred, ack.Message)
	s.Require().NotNil(ack.FromBalance)
	s.Require().NotNil(ack.ToBalance)
	s.Equal(int64(1000), *ack.FromBalance)
	s.Equal(int64(2000), *ack.ToBalance)

	snap := s.expectUpdate(bob, func(snap *model.Snapshot) bool {
		b, _ := snap.Balance("Bob")
		return b == 2000
	})
	a, _ := snap.Balance("Alice")
	s.Equal(int64(1000), a)
	s.Require().NotNil(snap.LastTransfer)
	s.Equal(int64(500), snap.LastTransfer.Amount)
}

func (s *HandlerSuite) TestTransferFailureIsAcknowledged() {
	alice := s.dial()
	s.joinAs(alice, "ABC123", "Alice")
	s.joinAs(s.dial(), "ABC123", "Bob")

	s.send(alice, protocol.TypeTransfer, "t1", protocol.TransferPayload{
		GameCode:       "ABC123",
		FromPlayerName: "Alice",
		ToPlayerName:   "Bob",
		Amount:         protocol.NewAmount(5000),
	})

	ack := s.expectAck(alice, "t1")
	s.False(ack.Success)
	s.Equal(model.KindInsufficientFunds, ack.Code)
	s.Nil(ack.FromBalance)

	snap, err := s.controller.Snapshot(context.Background(), "ABC123")
	s.Require().NoError(err)
	a, _ := snap.Balance("Alice")
	s.Equal(int64(1500), a)
}

func (s *HandlerSuite) TestInvalidAmountIsValidationError() {
	alice := s.dial()
	s.joinAs(alice, "ABC123", "Alice")

	s.send(alice, protocol.TypeBankTransfer, "b1", map[string]any{
		"gameCode":       "ABC123",
		"fromPlayerName": "Alice",
		"amount":         "lots",
		"flag":           "take",
	})

	ack := s.expectAck(alice, "b1")
	s.False(ack.Success)
	s.Equal(model.KindValidation, ack.Code)
}

func (s *HandlerSuite) TestBankTransfer() {
	alice := s.dial()
	s.joinAs(alice, "ABC123", "Alice")

	s.send(alice, protocol.TypeBankTransfer, "take", protocol.BankTransferPayload{
		GameCode: "ABC123", FromPlayerName: "Alice", Amount: protocol.NewAmount(300), Flag: "take",
	})
	ack := s.expectAck(alice, "take")
	s.True(ack.Success)
	s.Equal(protocol.MessageBankTransferred, ack.Message)
	s.Nil(ack.FromBalance)
	s.Equal(int64(1800), *ack.ToBalance)

	s.send(alice, protocol.TypeBankTransfer, "pay", protocol.BankTransferPayload{
		GameCode: "ABC123", FromPlayerName: "Alice", Amount: protocol.NewAmount(800), Flag: "pay",
	})
	ack = s.expectAck(alice, "pay")
	s.True(ack.Success)
	s.Equal(int64(1000), *ack.FromBalance)
	s.Nil(ack.ToBalance)
}

func (s *HandlerSuite) TestMalformedFrames() {
	conn := s.dial()

	frames := []string{
		`not json`,
		`{"payload":{}}`,
		`{"type":"dance","payload":{}}`,
		`{"type":"joinGame","payload":"nope"}`,
	}
	for _, frame := range frames {
		s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		env := s.expect(conn, protocol.TypeError)
		var payload protocol.ErrorPayload
		s.Require().NoError(json.Unmarshal(env.Payload, &payload))
		s.Equal(model.KindValidation, payload.Code, frame)
	}

	// The connection survives bad input
	s.joinAs(conn, "ABC123", "Alice")
}

func (s *HandlerSuite) TestDisconnectMarksPlayerInactive() {
	alice := s.dial()
	bob := s.dial()
	s.joinAs(alice, "ABC123", "Alice")
	s.joinAs(bob, "ABC123", "Bob")

	s.Require().NoError(alice.Close())

	snap := s.expectUpdate(bob, func(snap *model.Snapshot) bool {
		return len(snap.Players) == 2 && !snap.Players[0].Connected
	})
	s.True(snap.Players[1].Connected)
	a, _ := snap.Balance("Alice")
	s.Equal(int64(1500), a)
}

func (s *HandlerSuite) TestRejoinWithIssuedID() {
	first := s.dial()
	joined := s.joinAs(first, "ABC123", "Alice")
	s.Require().NoError(first.Close())

	second := s.dial()
	s.send(second, protocol.TypeJoinGame, "", protocol.JoinGamePayload{
		GameCode: "ABC123", PlayerName: "Alice", PlayerID: joined.PlayerID,
	})
	env := s.expect(second, protocol.TypeSuccess)
	var success protocol.SuccessPayload
	s.Require().NoError(json.Unmarshal(env.Payload, &success))

	s.Equal(joined.PlayerID, success.PlayerID)
}

func TestCheckOrigin(t *testing.T) {
	request := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	anyOrigin := checkOrigin(nil)
	assert.True(t, anyOrigin(request("https://evil.example")))

	wildcard := checkOrigin([]string{"*"})
	assert.True(t, wildcard(request("https://evil.example")))

	restricted := checkOrigin([]string{"http://localhost:3000"})
	assert.True(t, restricted(request("http://localhost:3000")))
	assert.True(t, restricted(request("")))
	assert.False(t, restricted(request("https://evil.example")))
}

func TestOriginRejectedBeforeUpgrade(t *testing.T) {
	logger := testutil.NopLogger()
	h := NewHandler(nil, []string{"http://localhost:3000"}, random.New(), logger)
	server := httptest.NewServer(h)
	defer server.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

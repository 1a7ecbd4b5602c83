package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/boardbank/internal/api"
	"github.com/mcoot/boardbank/internal/api/apierr"
	"github.com/mcoot/boardbank/internal/api/response"
	"github.com/mcoot/boardbank/internal/factory"
	"github.com/mcoot/boardbank/internal/protocol"
	"github.com/mcoot/boardbank/internal/testutil"
)

// testServer wraps the API router around a test app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger: testutil.NopLogger(),
		Bank:   app.Controller,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = &bytes.Buffer{}
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createGame creates a game with code ABC123 hosted by Alice and joins Bob
func (ts *testServer) createGame(t *testing.T) {
	t.Helper()
	ts.app.MockRandom.QueueCode("ABC123")

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]string{"player_name": "Alice"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, "/api/v1/games/ABC123/join", map[string]string{"player_name": "Bob"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func requireAPIError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	errResp := decodeBody[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, errResp.Error.Code)
	assert.NotEmpty(t, errResp.Error.Message)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody[response.HealthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Sessions)

	ts.createGame(t)
	rr = ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, 1, decodeBody[response.HealthResponse](t, rr).Sessions)
}

func TestCreateGame(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueCode("ABC123")
	ts.app.MockRandom.QueueUUID("alice-id")

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]string{"player_name": "  Alice "})
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := decodeBody[response.JoinResponse](t, rr)
	assert.Equal(t, "alice-id", resp.PlayerID)
	assert.False(t, resp.Rejoined)
	assert.Equal(t, "ABC123", resp.Game.Code)
	require.Len(t, resp.Game.Players, 1)
	assert.Equal(t, "Alice", resp.Game.Players[0].Name)
	assert.Equal(t, int64(1500), resp.Game.Players[0].Balance)
	assert.Nil(t, resp.Game.LastTransfer)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t)

	// Codes are case-insensitive
	rr := ts.request(http.MethodGet, "/api/v1/games/abc123", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	game := decodeBody[response.Game](t, rr)
	assert.Equal(t, "ABC123", game.Code)
	require.Len(t, game.Players, 2)
	assert.Equal(t, "Alice", game.Players[0].Name)
	assert.Equal(t, "Bob", game.Players[1].Name)
	// HTTP joins carry no live connection
	assert.False(t, game.Players[0].Connected)
}

func TestGetUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/games/NOPE12", nil)
	requireAPIError(t, rr, http.StatusNotFound, apierr.CodeNotFound)
}

func TestJoinAndRejoin(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueUUID("carol-id")

	// Joining an unknown code creates the game
	rr := ts.request(http.MethodPost, "/api/v1/games/FRESH1/join", map[string]string{"player_name": "Carol"})
	require.Equal(t, http.StatusOK, rr.Code)
	first := decodeBody[response.JoinResponse](t, rr)
	assert.Equal(t, "carol-id", first.PlayerID)
	assert.Equal(t, "FRESH1", first.Game.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games/FRESH1/join", map[string]string{
		"player_name": "Carol",
		"player_id":   "carol-id",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	again := decodeBody[response.JoinResponse](t, rr)
	assert.True(t, again.Rejoined)
	assert.Equal(t, "carol-id", again.PlayerID)
	assert.Len(t, again.Game.Players, 1)
}

func TestJoinFullGame(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"A", "B", "C", "D"} {
		rr := ts.request(http.MethodPost, "/api/v1/games/FULL01/join", map[string]string{"player_name": name})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := ts.request(http.MethodPost, "/api/v1/games/FULL01/join", map[string]string{"player_name": "E"})
	requireAPIError(t, rr, http.StatusConflict, apierr.CodeCapacityExceeded)
}

func TestTransfer(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t)

	rr := ts.request(http.MethodPost, "/api/v1/games/ABC123/transfers", map[string]any{
		"from_player_name": "Alice",
		"to_player_name":   "Bob",
		"amount":           "500",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeBody[response.TransferResponse](t, rr)
	assert.Equal(t, protocol.MessageTransferred, resp.Message)
	assert.Equal(t, "peer", resp.Transfer.Kind)
	assert.Equal(t, int64(500), resp.Transfer.Amount)
	require.NotNil(t, resp.FromBalance)
	require.NotNil(t, resp.ToBalance)
	assert.Equal(t, int64(1000), *resp.FromBalance)
	assert.Equal(t, int64(2000), *resp.ToBalance)
	require.NotNil(t, resp.Game.LastTransfer)
	assert.Equal(t, uint64(1), resp.Game.LastTransfer.Seq)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueCode("ABC123")

	padding := strings.Repeat("x", protocol.MaxMessageSize)
	rr := ts.request(http.MethodPost, "/api/v1/games", `{"player_name":"Alice","padding":"`+padding+`"}`)

	requireAPIError(t, rr, http.StatusBadRequest, apierr.CodeValidation)
	assert.Equal(t, 0, ts.app.Controller.SessionCount())
}

func TestTransferErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "insufficient funds",
			body:   map[string]any{"from_player_name": "Alice", "to_player_name": "Bob", "amount": 5000},
			status: http.StatusUnprocessableEntity,
			code:   apierr.CodeInsufficientFunds,
		},
		{
			name:   "same party",
			body:   map[string]any{"from_player_name": "Alice", "to_player_name": "Alice", "amount": 10},
			status: http.StatusBadRequest,
			code:   apierr.CodeSameParty,
		},
		{
			name:   "unknown player",
			body:   map[string]any{"from_player_name": "Alice", "to_player_name": "Zed", "amount": 10},
			status: http.StatusNotFound,
			code:   apierr.CodeNotFound,
		},
		{
			name:   "zero amount",
			body:   map[string]any{"from_player_name": "Alice", "to_player_name": "Bob", "amount": 0},
			status: http.StatusBadRequest,
			code:   apierr.CodeValidation,
		},
		{
			name:   "non-numeric amount",
			body:   map[string]any{"from_player_name": "Alice", "to_player_name": "Bob", "amount": "lots"},
			status: http.StatusBadRequest,
			code:   apierr.CodeValidation,
		},
		{
			name:   "malformed body",
			body:   `{"from_player_name":`,
			status: http.StatusBadRequest,
			code:   apierr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/games/ABC123/transfers", tt.body)
			requireAPIError(t, rr, tt.status, tt.code)
		})
	}

	// Nothing was committed
	rr := ts.request(http.MethodGet, "/api/v1/games/ABC123", nil)
	game := decodeBody[response.Game](t, rr)
	assert.Nil(t, game.LastTransfer)
	assert.Equal(t, int64(1500), game.Players[0].Balance)
}

func TestBankTransfer(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t)

	rr := ts.request(http.MethodPost, "/api/v1/games/ABC123/bank", map[string]any{
		"player_name": "Bob",
		"amount":      300,
		"flag":        "take",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	take := decodeBody[response.TransferResponse](t, rr)
	assert.Equal(t, protocol.MessageBankTransferred, take.Message)
	assert.Equal(t, "bank_take", take.Transfer.Kind)
	assert.Nil(t, take.FromBalance)
	require.NotNil(t, take.ToBalance)
	assert.Equal(t, int64(1800), *take.ToBalance)

	rr = ts.request(http.MethodPost, "/api/v1/games/ABC123/bank", map[string]any{
		"player_name": "Bob",
		"amount":      "1800",
		"flag":        "pay",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	pay := decodeBody[response.TransferResponse](t, rr)
	assert.Equal(t, "bank_repay", pay.Transfer.Kind)
	require.NotNil(t, pay.FromBalance)
	assert.Equal(t, int64(0), *pay.FromBalance)
	assert.Nil(t, pay.ToBalance)

	rr = ts.request(http.MethodPost, "/api/v1/games/ABC123/bank", map[string]any{
		"player_name": "Bob",
		"amount":      1,
		"flag":        "pay",
	})
	requireAPIError(t, rr, http.StatusUnprocessableEntity, apierr.CodeInsufficientFunds)

	rr = ts.request(http.MethodPost, "/api/v1/games/ABC123/bank", map[string]any{
		"player_name": "Bob",
		"amount":      1,
		"flag":        "borrow",
	})
	requireAPIError(t, rr, http.StatusBadRequest, apierr.CodeValidation)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.createGame(t)

	for _, amount := range []int{10, 20, 30} {
		rr := ts.request(http.MethodPost, "/api/v1/games/ABC123/transfers", map[string]any{
			"from_player_name": "Alice",
			"to_player_name":   "Bob",
			"amount":           amount,
		})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	ts.app.Flush()

	rr := ts.request(http.MethodGet, "/api/v1/games/abc123/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decodeBody[response.HistoryResponse](t, rr)
	assert.Equal(t, "ABC123", all.Code)
	require.Len(t, all.Transfers, 3)
	assert.Equal(t, int64(10), all.Transfers[0].Amount)
	assert.False(t, all.Transfers[0].At.IsZero())

	rr = ts.request(http.MethodGet, "/api/v1/games/ABC123/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recent := decodeBody[response.HistoryResponse](t, rr)
	require.Len(t, recent.Transfers, 2)
	assert.Equal(t, uint64(2), recent.Transfers[0].Seq)
	assert.Equal(t, uint64(3), recent.Transfers[1].Seq)
}

func TestHistoryErrors(t *testing.T) {
	ts := newTestServer(t)

	for _, limit := range []string{"0", "501", "ten"} {
		t.Run("limit "+limit, func(t *testing.T) {
			rr := ts.request(http.MethodGet, "/api/v1/games/ABC123/history?limit="+limit, nil)
			requireAPIError(t, rr, http.StatusBadRequest, apierr.CodeValidation)
		})
	}

	rr := ts.request(http.MethodGet, "/api/v1/games/NOPE12/history", nil)
	requireAPIError(t, rr, http.StatusNotFound, apierr.CodeNotFound)
}

func TestInvalidCodeAndName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/games/not-a-code/join", map[string]string{"player_name": "Alice"})
	requireAPIError(t, rr, http.StatusBadRequest, apierr.CodeValidation)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]string{"player_name": strings.Repeat(" ", 4)})
	requireAPIError(t, rr, http.StatusBadRequest, apierr.CodeValidation)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodDelete, "/api/v1/games/ABC123", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

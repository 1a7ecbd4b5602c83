package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/boardbank/internal/api/apierr"
	"github.com/mcoot/boardbank/internal/api/request"
	"github.com/mcoot/boardbank/internal/api/response"
	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/protocol"
	"github.com/mcoot/boardbank/internal/services/bank"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Bank is the part of the bank controller the HTTP API drives
type Bank interface {
	CreateGame(ctx context.Context, req bank.CreateGameRequest) (*bank.JoinResult, error)
	Join(ctx context.Context, req bank.JoinRequest) (*bank.JoinResult, error)
	Transfer(ctx context.Context, req bank.TransferRequest) (*bank.TransferResult, error)
	BankTransfer(ctx context.Context, req bank.BankTransferRequest) (*bank.TransferResult, error)
	Snapshot(ctx context.Context, code string) (*model.Snapshot, error)
	History(ctx context.Context, code string, limit int) ([]model.Transfer, error)
	SessionCount() int
}

// GameHandler handles game endpoints
type GameHandler struct {
	bank Bank
}

// NewGameHandler creates a new game handler
func NewGameHandler(b Bank) *GameHandler {
	return &GameHandler{bank: b}
}

// Health handles GET /api/v1/health
func (h *GameHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, response.HealthResponse{Status: "ok", Sessions: h.bank.SessionCount()})
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.bank.CreateGame(r.Context(), bank.CreateGameRequest{PlayerName: req.PlayerName})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, joinResponse(res))
}

// Get handles GET /api/v1/games/{code}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.bank.Snapshot(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.GameFromSnapshot(snap))
}

// Join handles POST /api/v1/games/{code}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinGameRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.bank.Join(r.Context(), bank.JoinRequest{
		Code:       mux.Vars(r)["code"],
		PlayerName: req.PlayerName,
		PlayerID:   req.PlayerID,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, joinResponse(res))
}

// Transfer handles POST /api/v1/games/{code}/transfers
func (h *GameHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req request.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := req.Amount.Value()
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	res, err := h.bank.Transfer(r.Context(), bank.TransferRequest{
		Code:           mux.Vars(r)["code"],
		FromPlayerName: req.FromPlayerName,
		ToPlayerName:   req.ToPlayerName,
		Amount:         amount,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, transferResponse(protocol.MessageTransferred, res))
}

// Bank handles POST /api/v1/games/{code}/bank
func (h *GameHandler) Bank(w http.ResponseWriter, r *http.Request) {
	var req request.BankTransferRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := req.Amount.Value()
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	res, err := h.bank.BankTransfer(r.Context(), bank.BankTransferRequest{
		Code:       mux.Vars(r)["code"],
		PlayerName: req.PlayerName,
		Amount:     amount,
		Flag:       req.Flag,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, transferResponse(protocol.MessageBankTransferred, res))
}

// History handles GET /api/v1/games/{code}/history?limit=N
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be between 1 and "+strconv.Itoa(maxHistoryLimit)))
			return
		}
		limit = n
	}

	code := mux.Vars(r)["code"]
	transfers, err := h.bank.History(r.Context(), code, limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	resp := response.HistoryResponse{Transfers: make([]response.Transfer, len(transfers))}
	if normalized, err := model.NormalizeSessionCode(code); err == nil {
		resp.Code = string(normalized)
	}
	for i, t := range transfers {
		resp.Transfers[i] = response.TransferFromModel(t)
	}
	response.OK(w, resp)
}

// decode reads a JSON body into v, writing a validation error on failure
// decode reads a JSON body no larger than a websocket frame
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, protocol.MaxMessageSize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierr.WriteError(w, apierr.NewInvalidRequestError("Request body too large"))
			return false
		}
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return false
	}
	return true
}

func joinResponse(res *bank.JoinResult) response.JoinResponse {
	return response.JoinResponse{
		PlayerID: string(res.Player.ID),
		Rejoined: res.Rejoined,
		Game:     response.GameFromSnapshot(res.Snapshot),
	}
}

func transferResponse(message string, res *bank.TransferResult) response.TransferResponse {
	return response.TransferResponse{
		Message:     message,
		Transfer:    response.TransferFromModel(res.Transfer),
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		Game:        response.GameFromSnapshot(res.Snapshot),
	}
}

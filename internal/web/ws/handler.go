// Package ws serves the real-time websocket channel.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/protocol"
	"github.com/mcoot/boardbank/internal/services/bank"
)

// Bank is the part of the bank controller the websocket channel drives
type Bank interface {
	Join(ctx context.Context, req bank.JoinRequest) (*bank.JoinResult, error)
	Transfer(ctx context.Context, req bank.TransferRequest) (*bank.TransferResult, error)
	BankTransfer(ctx context.Context, req bank.BankTransferRequest) (*bank.TransferResult, error)
	Disconnect(ctx context.Context, connID string)
}

// Handler upgrades requests to websockets and dispatches their messages
type Handler struct {
	bank     Bank
	random   random.Random
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new Handler. An empty allowedOrigins accepts any origin.
func NewHandler(b Bank, allowedOrigins []string, random random.Random, logger *slog.Logger) *Handler {
	return &Handler{
		bank:   b,
		random: random,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// checkOrigin builds the upgrader's origin policy. Requests without an
// Origin header come from non-browser clients and are always accepted.
func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		if len(set) == 0 || set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeHTTP handles one websocket connection for its whole lifetime
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(h.random.UUID(), conn)
	logger := h.logger.With(slog.String("conn_id", client.id))
	logger.Info("websocket connected", slog.String("remote_addr", r.RemoteAddr))
	connectedAt := time.Now()

	go client.writeLoop()

	ctx := context.WithoutCancel(r.Context())
	err = client.readLoop(func(data []byte) {
		h.dispatch(ctx, client, data)
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		logger.Warn("websocket closed unexpectedly", slog.Any("error", err))
	}

	h.bank.Disconnect(ctx, client.id)
	client.close()
	logger.Info("websocket disconnected", slog.Duration("connection_duration", time.Since(connectedAt)))
}

func (h *Handler) dispatch(ctx context.Context, client *Client, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		h.fail(client, "", err)
		return
	}

	switch env.Type {
	case protocol.TypeJoinGame:
		h.handleJoin(ctx, client, env)
	case protocol.TypeTransfer:
		h.handleTransfer(ctx, client, env)
	case protocol.TypeBankTransfer:
		h.handleBankTransfer(ctx, client, env)
	default:
		h.fail(client, env.ID, fmt.Errorf("%w: unknown message type %q", model.ErrMalformedMessage, env.Type))
	}
}

func (h *Handler) handleJoin(ctx context.Context, client *Client, env *protocol.Envelope) {
	var p protocol.JoinGamePayload
	if err := env.DecodePayload(&p); err != nil {
		h.fail(client, env.ID, err)
		return
	}

	res, err := h.bank.Join(ctx, bank.JoinRequest{
		Code:       p.GameCode,
		PlayerName: p.PlayerName,
		PlayerID:   p.PlayerID,
		Conn:       client,
	})
	if err != nil {
		h.reply(client, protocol.TypeAck, env.ID, protocol.Nack(err))
		return
	}

	h.reply(client, protocol.TypeSuccess, "", protocol.SuccessPayload{
		Message:  protocol.MessageJoined,
		PlayerID: string(res.Player.ID),
		GameCode: string(res.Code),
	})
	if env.ID != "" {
		h.reply(client, protocol.TypeAck, env.ID, protocol.Ack(protocol.MessageJoined))
	}
}

func (h *Handler) handleTransfer(ctx context.Context, client *Client, env *protocol.Envelope) {
	var p protocol.TransferPayload
	if err := env.DecodePayload(&p); err != nil {
		h.fail(client, env.ID, err)
		return
	}
	amount, err := p.Amount.Value()
	if err != nil {
		h.reply(client, protocol.TypeAck, env.ID, protocol.Nack(err))
		return
	}

	res, err := h.bank.Transfer(ctx, bank.TransferRequest{
		Code:           p.GameCode,
		FromPlayerName: p.FromPlayerName,
		ToPlayerName:   p.ToPlayerName,
		Amount:         amount,
	})
	h.replyTransfer(client, env.ID, protocol.MessageTransferred, res, err)
}

func (h *Handler) handleBankTransfer(ctx context.Context, client *Client, env *protocol.Envelope) {
	var p protocol.BankTransferPayload
	if err := env.DecodePayload(&p); err != nil {
		h.fail(client, env.ID, err)
		return
	}
	amount, err := p.Amount.Value()
	if err != nil {
		h.reply(client, protocol.TypeAck, env.ID, protocol.Nack(err))
		return
	}

	res, err := h.bank.BankTransfer(ctx, bank.BankTransferRequest{
		Code:       p.GameCode,
		PlayerName: p.FromPlayerName,
		Amount:     amount,
		Flag:       p.Flag,
	})
	h.replyTransfer(client, env.ID, protocol.MessageBankTransferred, res, err)
}

func (h *Handler) replyTransfer(client *Client, id, message string, res *bank.TransferResult, err error) {
	if err != nil {
		h.reply(client, protocol.TypeAck, id, protocol.Nack(err))
		return
	}
	ack := protocol.Ack(message)
	ack.FromBalance = res.FromBalance
	ack.ToBalance = res.ToBalance
	h.reply(client, protocol.TypeAck, id, ack)
}

// fail reports a frame that could not be handled
func (h *Handler) fail(client *Client, id string, err error) {
	h.reply(client, protocol.TypeError, id, protocol.ErrorPayload{
		Code:    model.KindOf(err),
		Message: protocol.PublicMessage(err),
	})
}

func (h *Handler) reply(client *Client, msgType, id string, payload any) {
	msg, err := protocol.Encode(msgType, id, payload)
	if err != nil {
		h.logger.Error("failed to encode reply",
			slog.String("conn_id", client.id),
			slog.String("type", msgType),
			slog.Any("error", err))
		return
	}
	if !client.Deliver(msg) {
		h.logger.Warn("reply dropped - client buffer full",
			slog.String("conn_id", client.id),
			slog.String("type", msgType))
	}
}

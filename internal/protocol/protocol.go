// Package protocol defines the real-time message contract shared by the
// websocket and SSE transports.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/boardbank/internal/model"
)

// Message types
const (
	// Client to server
	TypeJoinGame     = "joinGame"
	TypeTransfer     = "transfer"
	TypeBankTransfer = "bankTransfer"

	// Server to client
	TypeGameUpdate = "gameUpdate"
	TypeSuccess    = "success"
	TypeAck        = "ack"
	TypeError      = "error"
)

// Canned acknowledgment messages
const (
	MessageJoined          = "Joined game successfully!"
	MessageTransferred     = "Money transfer successful!"
	MessageBankTransferred = "Bank transfer successful"
)

// MaxMessageSize bounds a single inbound frame
const MaxMessageSize = 64 * 1024

// Envelope wraps every message in both directions.
// ID, when set on a request, is echoed on its acknowledgment.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// JoinGamePayload asks to join or rejoin a game
type JoinGamePayload struct {
	GameCode   string `json:"gameCode"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId,omitempty"`
}

// TransferPayload asks to move money between two players
type TransferPayload struct {
	GameCode       string `json:"gameCode"`
	FromPlayerName string `json:"fromPlayerName"`
	ToPlayerName   string `json:"toPlayerName"`
	Amount         Amount `json:"amount"`
}

// BankTransferPayload asks to move money between a player and the bank.
// Flag is "take" or "pay".
type BankTransferPayload struct {
	GameCode       string `json:"gameCode"`
	FromPlayerName string `json:"fromPlayerName"`
	Amount         Amount `json:"amount"`
	Flag           string `json:"flag"`
}

// SuccessPayload confirms a join to the joining connection
type SuccessPayload struct {
	Message  string `json:"message"`
	PlayerID string `json:"playerId"`
	GameCode string `json:"gameCode"`
}

// AckPayload answers a request on the initiating connection
type AckPayload struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Code        model.ErrorKind `json:"code,omitempty"`
	FromBalance *int64          `json:"fromBalance,omitempty"`
	ToBalance   *int64          `json:"toBalance,omitempty"`
}

// ErrorPayload reports a frame that could not be handled at all
type ErrorPayload struct {
	Code    model.ErrorKind `json:"code"`
	Message string          `json:"message"`
}

// Encode builds an envelope around payload and marshals it
func Encode(msgType, id string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, ID: id, Payload: raw})
}

// EncodeGameUpdate marshals a snapshot as a gameUpdate message
func EncodeGameUpdate(snap *model.Snapshot) ([]byte, error) {
	return Encode(TypeGameUpdate, "", snap)
}

// Decode parses an inbound frame into its envelope
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing message type", model.ErrMalformedMessage)
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into v
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", model.ErrMalformedMessage)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", model.ErrMalformedMessage, e.Type, err)
	}
	return nil
}

// Ack builds a successful acknowledgment
func Ack(message string) AckPayload {
	return AckPayload{Success: true, Message: message}
}

// Nack builds a failed acknowledgment from err
func Nack(err error) AckPayload {
	return AckPayload{Success: false, Message: PublicMessage(err), Code: model.KindOf(err)}
}

// PublicMessage returns the text of err that is safe to show a client.
// Internal faults are not described.
func PublicMessage(err error) string {
	if model.KindOf(err) == model.KindInternal {
		return model.ErrInternal.Error()
	}
	return err.Error()
}

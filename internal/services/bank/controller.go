// Package bank routes player actions to the ledger and fans the results out.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/boardbank/internal/broadcast"
	"github.com/mcoot/boardbank/internal/dependencies/clock"
	"github.com/mcoot/boardbank/internal/dependencies/random"
	"github.com/mcoot/boardbank/internal/ledger"
	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/services/membership"
	"github.com/mcoot/boardbank/internal/services/session"
	"github.com/mcoot/boardbank/internal/storage"
)

const (
	// CodeLength is the length of generated game codes
	CodeLength = 6
	// CodeAlphabet is the characters used in game codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 20
	// an operation that races with eviction is retried against a fresh lookup
	maxClosedRetries = 3
)

// Config holds the rules applied to new sessions and players
type Config struct {
	StartingBalance int64
	Capacity        int
	IdleTTL         time.Duration
}

// DefaultConfig returns the standard board-game bank rules
func DefaultConfig() Config {
	return Config{
		StartingBalance: 1500,
		Capacity:        model.DefaultCapacity,
		IdleTTL:         30 * time.Minute,
	}
}

// Journal receives committed changes for durable storage.
// Implementations must not block.
type Journal interface {
	SessionCreated(code model.SessionCode, initial model.Player)
	PlayerAdmitted(code model.SessionCode, player model.Player)
	TransferApplied(code model.SessionCode, transfer model.Transfer)
	SessionEvicted(code model.SessionCode)
}

// Controller applies joins, transfers and disconnects to live sessions
type Controller struct {
	cfg      Config
	registry *session.Registry
	members  *membership.Tracker
	gateway  *broadcast.Gateway
	journal  Journal
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// NewController creates a new Controller
func NewController(
	cfg Config,
	registry *session.Registry,
	members *membership.Tracker,
	gateway *broadcast.Gateway,
	journal Journal,
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: registry,
		members:  members,
		gateway:  gateway,
		journal:  journal,
		storage:  storage,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "bank")),
	}
}

// CreateGameRequest starts a new game under a generated code
type CreateGameRequest struct {
	PlayerName string
	Conn       broadcast.Subscriber // optional
}

// JoinRequest joins or rejoins a game
type JoinRequest struct {
	Code       string
	PlayerName string
	PlayerID   string               // optional, previously issued id
	Conn       broadcast.Subscriber // optional live connection
}

// JoinResult describes the admitted player
type JoinResult struct {
	Code     model.SessionCode
	Player   model.Player
	Rejoined bool
	Snapshot *model.Snapshot
}

// TransferRequest moves money between two players
type TransferRequest struct {
	Code           string
	FromPlayerName string
	ToPlayerName   string
	Amount         int64
}

// BankTransferRequest moves money between a player and the bank.
// Flag is "take" or "pay".
type BankTransferRequest struct {
	Code       string
	PlayerName string
	Amount     int64
	Flag       string
}

// TransferResult reports a committed transfer and the resulting balances.
// The bank side of a bank transfer has no balance.
type TransferResult struct {
	Transfer    model.Transfer
	FromBalance *int64
	ToBalance   *int64
	Snapshot    *model.Snapshot
}

// CreateGame generates an unused code and joins the creator to it
func (c *Controller) CreateGame(ctx context.Context, req CreateGameRequest) (*JoinResult, error) {
	name, err := model.NormalizePlayerName(req.PlayerName)
	if err != nil {
		return nil, err
	}

	var code model.SessionCode
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("%w: could not generate an unused game code", model.ErrInternal)
		}
		code = model.SessionCode(c.random.Code(CodeLength, CodeAlphabet))
		if code == "" {
			continue
		}
		if _, created := c.registry.GetOrCreate(code); created {
			break
		}
	}

	return c.Join(ctx, JoinRequest{Code: string(code), PlayerName: name, Conn: req.Conn})
}

// Join admits a player to a game, creating the game if the code is new.
//
// With a connection, the connection is subscribed to the game before the
// admission commits, so it receives the resulting update.
func (c *Controller) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	code, err := model.NormalizeSessionCode(req.Code)
	if err != nil {
		return nil, err
	}
	name, err := model.NormalizePlayerName(req.PlayerName)
	if err != nil {
		return nil, err
	}

	// A connection acts for one player at a time. Switching player within
	// the same game happens in the same commit as the admission; moving to
	// another game releases the old player once the admission has committed.
	var (
		connID   string
		previous membership.Binding
		sameGame bool
		moving   bool
	)
	if req.Conn != nil {
		connID = req.Conn.ID()
		if b, ok := c.members.Lookup(connID); ok {
			previous = b
			sameGame = b.Code == code
			moving = !sameGame
		}
		c.gateway.Subscribe(code, req.Conn)
	}

	var result JoinResult
	err = c.withSession(code, true, func(sess *session.Session) error {
		_, err := sess.Apply(c.clock.Now(), func(next *model.Session) (bool, error) {
			res, err := ledger.Admit(next, ledger.AdmitRequest{
				Name:            name,
				PlayerID:        model.PlayerID(req.PlayerID),
				ConnectionID:    connID,
				StartingBalance: c.cfg.StartingBalance,
				NewID:           func() model.PlayerID { return model.PlayerID(c.random.UUID()) },
				Now:             c.clock.Now(),
			})
			if err != nil {
				return false, err
			}
			if sameGame && previous.PlayerID != res.Player.ID {
				ledger.Disconnect(next, previous.PlayerID, connID, c.clock.Now())
			}
			result.Player = res.Player
			result.Rejoined = res.Rejoined
			return true, nil
		}, func(next *model.Session) error {
			snap, err := c.publish(next)
			if err != nil {
				return err
			}
			result.Snapshot = snap
			if !result.Rejoined {
				if len(next.Players) == 1 {
					c.journal.SessionCreated(code, result.Player)
				} else {
					c.journal.PlayerAdmitted(code, result.Player)
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		if req.Conn != nil && !sameGame {
			c.gateway.Unsubscribe(code, connID)
		}
		c.logFailure("join failed", code, err)
		return nil, err
	}

	if req.Conn != nil {
		c.members.Bind(connID, membership.Binding{Code: code, PlayerID: result.Player.ID})
		if moving {
			c.detach(connID, previous)
		}
	}
	result.Code = code

	c.logger.Info("player joined",
		slog.String("code", string(code)),
		slog.String("player_id", string(result.Player.ID)),
		slog.String("player_name", result.Player.Name),
		slog.Bool("rejoined", result.Rejoined))
	return &result, nil
}

// Transfer moves money from one player to another
func (c *Controller) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	code, err := model.NormalizeSessionCode(req.Code)
	if err != nil {
		return nil, err
	}
	from, err := model.NormalizePlayerName(req.FromPlayerName)
	if err != nil {
		return nil, err
	}
	to, err := model.NormalizePlayerName(req.ToPlayerName)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	result, err := c.applyTransfer(code, func(next *model.Session, now time.Time) (*model.Transfer, error) {
		return ledger.PeerTransfer(next, from, to, req.Amount, now)
	})
	if err != nil {
		c.logFailure("transfer failed", code, err)
		return nil, err
	}

	c.logger.Info("transfer applied",
		slog.String("code", string(code)),
		slog.String("from", from),
		slog.String("to", to),
		slog.Int64("amount", req.Amount))
	return result, nil
}

// BankTransfer moves money between a player and the bank
func (c *Controller) BankTransfer(ctx context.Context, req BankTransferRequest) (*TransferResult, error) {
	code, err := model.NormalizeSessionCode(req.Code)
	if err != nil {
		return nil, err
	}
	name, err := model.NormalizePlayerName(req.PlayerName)
	if err != nil {
		return nil, err
	}
	direction, err := model.ParseBankDirection(req.Flag)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	result, err := c.applyTransfer(code, func(next *model.Session, now time.Time) (*model.Transfer, error) {
		return ledger.BankTransfer(next, name, req.Amount, direction, now)
	})
	if err != nil {
		c.logFailure("bank transfer failed", code, err)
		return nil, err
	}

	c.logger.Info("bank transfer applied",
		slog.String("code", string(code)),
		slog.String("player_name", name),
		slog.String("direction", string(direction)),
		slog.Int64("amount", req.Amount))
	return result, nil
}

// Disconnect handles a connection going away. The bound player stays on the
// roster with its balance and is shown as disconnected, unless another
// connection has since taken it over.
func (c *Controller) Disconnect(ctx context.Context, connID string) {
	binding, ok := c.members.Release(connID)
	if !ok {
		return
	}
	c.detach(connID, binding)
}

// detach clears a connection's claim on its player and unsubscribes it
func (c *Controller) detach(connID string, binding membership.Binding) {
	defer c.gateway.Unsubscribe(binding.Code, connID)

	err := c.withSession(binding.Code, false, func(sess *session.Session) error {
		_, err := sess.Apply(c.clock.Now(), func(next *model.Session) (bool, error) {
			return ledger.Disconnect(next, binding.PlayerID, connID, c.clock.Now()), nil
		}, func(next *model.Session) error {
			_, err := c.publish(next)
			return err
		})
		return err
	})
	if err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		c.logFailure("disconnect failed", binding.Code, err)
		return
	}

	c.logger.Info("player disconnected",
		slog.String("code", string(binding.Code)),
		slog.String("player_id", string(binding.PlayerID)))
}

// Snapshot returns the current state of a game
func (c *Controller) Snapshot(ctx context.Context, rawCode string) (*model.Snapshot, error) {
	code, err := model.NormalizeSessionCode(rawCode)
	if err != nil {
		return nil, err
	}
	sess, err := c.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Watch subscribes a read-only viewer to a game and delivers the current
// state to it before any later update
func (c *Controller) Watch(ctx context.Context, rawCode string, sub broadcast.Subscriber) (model.SessionCode, error) {
	code, err := model.NormalizeSessionCode(rawCode)
	if err != nil {
		return "", err
	}
	if _, err := c.registry.Get(code); err != nil {
		return "", err
	}

	c.gateway.Subscribe(code, sub)

	var encodeErr error
	err = c.withSession(code, false, func(sess *session.Session) error {
		sess.View(func(state *model.Session) {
			var msg []byte
			if msg, encodeErr = c.gateway.Encode(state.Snapshot()); encodeErr == nil {
				sub.Deliver(msg)
			}
		})
		if sess.Closed() {
			return session.ErrSessionClosed
		}
		return nil
	})
	if err == nil && encodeErr != nil {
		err = fmt.Errorf("%w: %v", model.ErrInternal, encodeErr)
	}
	if err != nil {
		c.gateway.Unsubscribe(code, sub.ID())
		return "", err
	}
	return code, nil
}

// Unwatch removes a viewer added by Watch
func (c *Controller) Unwatch(code model.SessionCode, subscriberID string) {
	c.gateway.Unsubscribe(code, subscriberID)
}

// History returns the last limit persisted transfers of a game, oldest first
func (c *Controller) History(ctx context.Context, rawCode string, limit int) ([]model.Transfer, error) {
	code, err := model.NormalizeSessionCode(rawCode)
	if err != nil {
		return nil, err
	}
	rec, err := c.storage.FindGameByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.storage.ListTransfers(ctx, rec.ID, limit)
}

// Sweep evicts idle sessions nobody is connected to or watching
func (c *Controller) Sweep(ctx context.Context) []model.SessionCode {
	evicted := c.registry.Sweep(c.clock.Now(), c.cfg.IdleTTL, c.gateway.HasSubscribers)
	c.retire(evicted)
	return evicted
}

// retire records evicted sessions. An evicted session had no subscribers
// and no connected players, so any hub or binding now present for its code
// belongs to a session created since and is left alone.
func (c *Controller) retire(evicted []model.SessionCode) {
	for _, code := range evicted {
		c.journal.SessionEvicted(code)
		c.logger.Info("session evicted", slog.String("code", string(code)))
	}
	c.gateway.CleanupEmptyHubs()
}

// RunSweeper calls Sweep every interval until ctx is done
func (c *Controller) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.Sweep(ctx)
		}
	}
}

// SessionCount returns the number of live sessions
func (c *Controller) SessionCount() int {
	return c.registry.Len()
}

type transferFunc func(next *model.Session, now time.Time) (*model.Transfer, error)

func (c *Controller) applyTransfer(code model.SessionCode, apply transferFunc) (*TransferResult, error) {
	var result TransferResult
	err := c.withSession(code, false, func(sess *session.Session) error {
		now := c.clock.Now()
		_, err := sess.Apply(now, func(next *model.Session) (bool, error) {
			t, err := apply(next, now)
			if err != nil {
				return false, err
			}
			result.Transfer = *t
			result.FromBalance = balanceOf(next, t.FromID)
			result.ToBalance = balanceOf(next, t.ToID)
			return true, nil
		}, func(next *model.Session) error {
			snap, err := c.publish(next)
			if err != nil {
				return err
			}
			result.Snapshot = snap
			c.journal.TransferApplied(code, result.Transfer)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// withSession runs fn against the live session for code, retrying if the
// session is evicted underneath it
func (c *Controller) withSession(code model.SessionCode, create bool, fn func(*session.Session) error) error {
	for attempt := 0; ; attempt++ {
		var sess *session.Session
		if create {
			sess, _ = c.registry.GetOrCreate(code)
		} else {
			var err error
			if sess, err = c.registry.Get(code); err != nil {
				return err
			}
		}

		err := fn(sess)
		if !errors.Is(err, session.ErrSessionClosed) {
			return err
		}
		if attempt == maxClosedRetries {
			return fmt.Errorf("%w: session %s kept closing", model.ErrInternal, code)
		}
	}
}

// publish sends the snapshot of next to every subscriber. Called while the
// session lock is held, so subscribers see updates in commit order.
func (c *Controller) publish(next *model.Session) (*model.Snapshot, error) {
	snap := next.Snapshot()
	msg, err := c.gateway.Encode(snap)
	if err != nil {
		return nil, err
	}
	c.gateway.Publish(next.Code, msg)
	return snap, nil
}

func (c *Controller) logFailure(msg string, code model.SessionCode, err error) {
	kind := model.KindOf(err)
	attrs := []any{
		slog.String("code", string(code)),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	}
	if kind == model.KindInternal {
		c.logger.Error(msg, attrs...)
		return
	}
	c.logger.Info(msg, attrs...)
}

func balanceOf(s *model.Session, id model.PlayerID) *int64 {
	p := s.GetPlayer(id)
	if p == nil {
		return nil
	}
	b := p.Balance
	return &b
}

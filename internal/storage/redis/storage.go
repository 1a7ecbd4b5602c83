package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

type gameDoc struct {
	ID        model.GameID      `json:"id"`
	Code      model.SessionCode `json:"code"`
	CreatedAt time.Time         `json:"created_at"`
}

type playerDoc struct {
	ID       model.PlayerID `json:"id"`
	Name     string         `json:"name"`
	JoinedAt time.Time      `json:"joined_at"`
}

type transferDoc struct {
	ID     string             `json:"id"`
	Seq    uint64             `json:"seq"`
	Kind   model.TransferKind `json:"kind"`
	From   string             `json:"from"`
	To     string             `json:"to"`
	FromID model.PlayerID     `json:"from_id,omitempty"`
	ToID   model.PlayerID     `json:"to_id,omitempty"`
	Amount int64              `json:"amount"`
	At     time.Time          `json:"at"`
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateGame(ctx context.Context, code model.SessionCode, initial model.Player) (model.GameID, error) {
	id := model.GameID(uuid.NewString())

	header, err := json.Marshal(gameDoc{ID: id, Code: code, CreatedAt: initial.JoinedAt})
	if err != nil {
		return "", err
	}
	player, err := json.Marshal(toPlayerDoc(initial))
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(id), header, s.cfg.GameTTL)
		pipe.RPush(ctx, playersKey(id), player)
		pipe.HSet(ctx, balancesKey(id), string(initial.ID), initial.Balance)
		pipe.Set(ctx, codeIndexKey(code), string(id), s.cfg.GameTTL)
		s.expire(ctx, pipe, playersKey(id), balancesKey(id))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create game %s: %w", code, err)
	}
	return id, nil
}

func (s *Storage) FindGameByCode(ctx context.Context, code model.SessionCode) (*model.GameRecord, error) {
	id, err := s.client.Get(ctx, codeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameRecordNotFound
		}
		return nil, err
	}
	gameID := model.GameID(id)

	data, err := s.client.Get(ctx, gameKey(gameID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameRecordNotFound
		}
		return nil, err
	}
	var header gameDoc
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	rawPlayers, err := s.client.LRange(ctx, playersKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	balances, err := s.client.HGetAll(ctx, balancesKey(gameID)).Result()
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(rawPlayers))
	for _, raw := range rawPlayers {
		var doc playerDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		balance, err := strconv.ParseInt(balances[string(doc.ID)], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad balance for player %s: %w", doc.ID, err)
		}
		players = append(players, model.Player{
			ID:       doc.ID,
			Name:     doc.Name,
			Balance:  balance,
			JoinedAt: doc.JoinedAt,
		})
	}

	return &model.GameRecord{
		ID:        header.ID,
		Code:      header.Code,
		Players:   players,
		CreatedAt: header.CreatedAt,
	}, nil
}

func (s *Storage) CreatePlayer(ctx context.Context, gameID model.GameID, player model.Player) error {
	if err := s.requireGame(ctx, gameID); err != nil {
		return err
	}

	data, err := json.Marshal(toPlayerDoc(player))
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, playersKey(gameID), data)
		pipe.HSet(ctx, balancesKey(gameID), string(player.ID), player.Balance)
		s.expire(ctx, pipe, gameKey(gameID), playersKey(gameID), balancesKey(gameID))
		return nil
	})
	return err
}

func (s *Storage) CreateTransfer(ctx context.Context, gameID model.GameID, transfer model.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	data, err := json.Marshal(toTransferDoc(transfer))
	if err != nil {
		return err
	}
	deltas := storage.Deltas(transfer)

	// The existence checks and the adjustment commit together under WATCH
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, gameKey(gameID)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrGameRecordNotFound
		}
		for _, d := range deltas {
			ok, err := tx.HExists(ctx, balancesKey(gameID), string(d.PlayerID)).Result()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", model.ErrPlayerNotFound, d.PlayerID)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, transfersKey(gameID), data)
			for _, d := range deltas {
				pipe.HIncrBy(ctx, balancesKey(gameID), string(d.PlayerID), d.Amount)
			}
			s.expire(ctx, pipe, gameKey(gameID), playersKey(gameID), balancesKey(gameID), transfersKey(gameID))
			return nil
		})
		return err
	}, balancesKey(gameID))
}

func (s *Storage) ListTransfers(ctx context.Context, gameID model.GameID, limit int) ([]model.Transfer, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raws, err := s.client.LRange(ctx, transfersKey(gameID), start, -1).Result()
	if err != nil {
		return nil, err
	}

	transfers := make([]model.Transfer, 0, len(raws))
	for _, raw := range raws {
		var doc transferDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		transfers = append(transfers, fromTransferDoc(doc))
	}
	return transfers, nil
}

func (s *Storage) requireGame(ctx context.Context, gameID model.GameID) error {
	exists, err := s.client.Exists(ctx, gameKey(gameID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrGameRecordNotFound
	}
	return nil
}

// expire refreshes the TTL on keys. A zero TTL leaves them without expiry.
func (s *Storage) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if s.cfg.GameTTL <= 0 {
		return
	}
	for _, key := range keys {
		pipe.Expire(ctx, key, s.cfg.GameTTL)
	}
}

func toPlayerDoc(p model.Player) playerDoc {
	return playerDoc{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt}
}

func toTransferDoc(t model.Transfer) transferDoc {
	return transferDoc{
		ID:     t.ID,
		Seq:    t.Seq,
		Kind:   t.Kind,
		From:   t.From,
		To:     t.To,
		FromID: t.FromID,
		ToID:   t.ToID,
		Amount: t.Amount,
		At:     t.At,
	}
}

func fromTransferDoc(d transferDoc) model.Transfer {
	return model.Transfer{
		ID:     d.ID,
		Seq:    d.Seq,
		Kind:   d.Kind,
		From:   d.From,
		To:     d.To,
		FromID: d.FromID,
		ToID:   d.ToID,
		Amount: d.Amount,
		At:     d.At,
	}
}

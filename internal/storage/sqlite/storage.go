package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const timeFormat = time.RFC3339Nano

const schemaSQL = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_code ON games(code);

CREATE TABLE IF NOT EXISTS players (
	game_id TEXT NOT NULL REFERENCES games(id),
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	balance INTEGER NOT NULL,
	joined_at TEXT NOT NULL,
	PRIMARY KEY (game_id, id)
);

CREATE TABLE IF NOT EXISTS transfers (
	id TEXT PRIMARY KEY,
	game_id TEXT NOT NULL REFERENCES games(id),
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	from_name TEXT NOT NULL,
	to_name TEXT NOT NULL,
	from_id TEXT NOT NULL DEFAULT '',
	to_id TEXT NOT NULL DEFAULT '',
	amount INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfers_game_seq ON transfers(game_id, seq);
`

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New opens (creating if needed) the database at path and applies the schema
func New(path string) (*Storage, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite has a single writer, and each :memory: connection is its own database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) CreateGame(ctx context.Context, code model.SessionCode, initial model.Player) (model.GameID, error) {
	id := model.GameID(uuid.NewString())

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (id, code, created_at) VALUES (?, ?, ?)`,
			string(id), string(code), initial.JoinedAt.UTC().Format(timeFormat),
		); err != nil {
			return fmt.Errorf("error inserting game: %w", err)
		}
		return insertPlayer(ctx, tx, id, 0, initial)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Storage) FindGameByCode(ctx context.Context, code model.SessionCode) (*model.GameRecord, error) {
	var (
		rec       model.GameRecord
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, created_at FROM games WHERE code = ? ORDER BY rowid DESC LIMIT 1`,
		string(code),
	).Scan(&rec.ID, &rec.Code, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrGameRecordNotFound
		}
		return nil, fmt.Errorf("error getting game: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("error parsing timestamp '%s': %w", createdAt, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, balance, joined_at FROM players WHERE game_id = ? ORDER BY position`,
		string(rec.ID),
	)
	if err != nil {
		return nil, fmt.Errorf("error querying players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        model.Player
			joinedAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance, &joinedAt); err != nil {
			return nil, fmt.Errorf("error scanning player row: %w", err)
		}
		if p.JoinedAt, err = time.Parse(timeFormat, joinedAt); err != nil {
			return nil, fmt.Errorf("error parsing timestamp '%s': %w", joinedAt, err)
		}
		rec.Players = append(rec.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}

	return &rec, nil
}

func (s *Storage) CreatePlayer(ctx context.Context, gameID model.GameID, player model.Player) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireGame(ctx, tx, gameID); err != nil {
			return err
		}
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM players WHERE game_id = ?`,
			string(gameID),
		).Scan(&position)
		if err != nil {
			return fmt.Errorf("error reading player position: %w", err)
		}
		return insertPlayer(ctx, tx, gameID, position, player)
	})
}

func (s *Storage) CreateTransfer(ctx context.Context, gameID model.GameID, transfer model.Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireGame(ctx, tx, gameID); err != nil {
			return err
		}

		for _, d := range storage.Deltas(transfer) {
			result, err := tx.ExecContext(ctx,
				`UPDATE players SET balance = balance + ? WHERE game_id = ? AND id = ?`,
				d.Amount, string(gameID), string(d.PlayerID),
			)
			if err != nil {
				return fmt.Errorf("error updating balance: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("error getting rows affected: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("%w: %s", model.ErrPlayerNotFound, d.PlayerID)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfers (id, game_id, seq, kind, from_name, to_name, from_id, to_id, amount, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			transfer.ID, string(gameID), int64(transfer.Seq), string(transfer.Kind),
			transfer.From, transfer.To, string(transfer.FromID), string(transfer.ToID),
			transfer.Amount, transfer.At.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("error adding transfer: %w", err)
		}
		return nil
	})
}

func (s *Storage) ListTransfers(ctx context.Context, gameID model.GameID, limit int) ([]model.Transfer, error) {
	if err := requireGame(ctx, s.db, gameID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, from_name, to_name, from_id, to_id, amount, created_at FROM (
			SELECT * FROM transfers WHERE game_id = ? ORDER BY seq DESC, rowid DESC LIMIT ?
		) ORDER BY seq ASC, rowid ASC`,
		string(gameID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying transfers: %w", err)
	}
	defer rows.Close()

	transfers := []model.Transfer{}
	for rows.Next() {
		var (
			t         model.Transfer
			seq       int64
			createdAt string
		)
		if err := rows.Scan(&t.ID, &seq, &t.Kind, &t.From, &t.To, &t.FromID, &t.ToID, &t.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning transfer row: %w", err)
		}
		t.Seq = uint64(seq)
		if t.At, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("error parsing timestamp '%s': %w", createdAt, err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}

	return transfers, nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireGame(ctx context.Context, q queryer, gameID model.GameID) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, string(gameID)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrGameRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("error getting game: %w", err)
	}
	return nil
}

func insertPlayer(ctx context.Context, tx *sql.Tx, gameID model.GameID, position int, p model.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (game_id, id, position, name, balance, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(gameID), string(p.ID), position, p.Name, p.Balance, p.JoinedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("error inserting player: %w", err)
	}
	return nil
}

// Package journal writes ledger changes to durable storage in the background.
//
// The in-memory ledger is authoritative. The journal only mirrors it, so a
// full queue or a storage failure loses history but never blocks or undoes
// a committed change.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// DefaultBufferSize is the default queue length
const DefaultBufferSize = 1024

// writeTimeout bounds each storage call made by the worker
const writeTimeout = 5 * time.Second

// EventKind identifies what an event records
type EventKind int

const (
	EventSessionCreated EventKind = iota
	EventPlayerAdmitted
	EventTransferApplied
	EventSessionEvicted
)

func (k EventKind) String() string {
	switch k {
	case EventSessionCreated:
		return "session_created"
	case EventPlayerAdmitted:
		return "player_admitted"
	case EventTransferApplied:
		return "transfer_applied"
	case EventSessionEvicted:
		return "session_evicted"
	default:
		return "unknown"
	}
}

// Event is one change to write
type Event struct {
	Kind     EventKind
	Code     model.SessionCode
	Player   model.Player   // created and admitted events
	Transfer model.Transfer // transfer events
}

// Journal queues events and writes them with a single worker, in order
type Journal struct {
	store  storage.Storage
	logger *slog.Logger

	mu     sync.RWMutex
	queue  chan Event
	closed bool

	started atomic.Bool
	done    chan struct{}

	// owned by the worker
	games map[model.SessionCode]model.GameID

	dropped atomic.Int64
}

// New creates a journal writing to store. Call Start or Run to begin writing.
func New(store storage.Storage, bufferSize int, logger *slog.Logger) *Journal {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Journal{
		store:  store,
		logger: logger.With(slog.String("component", "journal")),
		queue:  make(chan Event, bufferSize),
		done:   make(chan struct{}),
		games:  make(map[model.SessionCode]model.GameID),
	}
}

// SessionCreated records a new game with its first player
func (j *Journal) SessionCreated(code model.SessionCode, initial model.Player) {
	j.Enqueue(Event{Kind: EventSessionCreated, Code: code, Player: initial})
}

// PlayerAdmitted records a player joining an existing game
func (j *Journal) PlayerAdmitted(code model.SessionCode, player model.Player) {
	j.Enqueue(Event{Kind: EventPlayerAdmitted, Code: code, Player: player})
}

// TransferApplied records a committed transfer
func (j *Journal) TransferApplied(code model.SessionCode, transfer model.Transfer) {
	j.Enqueue(Event{Kind: EventTransferApplied, Code: code, Transfer: transfer})
}

// SessionEvicted forgets the game a code was mapped to
func (j *Journal) SessionEvicted(code model.SessionCode) {
	j.Enqueue(Event{Kind: EventSessionEvicted, Code: code})
}

// Enqueue adds an event without blocking.
// Returns false if the queue is full or the journal is closed.
func (j *Journal) Enqueue(ev Event) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return false
	}
	select {
	case j.queue <- ev:
		return true
	default:
		j.dropped.Add(1)
		j.logger.Warn("journal event dropped - queue full",
			slog.String("kind", ev.Kind.String()),
			slog.String("code", string(ev.Code)))
		return false
	}
}

// Dropped returns how many events were dropped because the queue was full
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Start runs the worker in a new goroutine
func (j *Journal) Start(ctx context.Context) {
	if j.started.CompareAndSwap(false, true) {
		go j.loop(ctx)
	}
}

// Run writes queued events until the journal is closed and drained, or ctx is done
func (j *Journal) Run(ctx context.Context) {
	if j.started.CompareAndSwap(false, true) {
		j.loop(ctx)
	}
}

func (j *Journal) loop(ctx context.Context) {
	defer close(j.done)

	j.logger.Info("journal started")
	for {
		select {
		case ev, ok := <-j.queue:
			if !ok {
				j.logger.Info("journal drained")
				return
			}
			j.write(ctx, ev)
		case <-ctx.Done():
			j.logger.Warn("journal stopped before drain", slog.Int("pending", len(j.queue)))
			return
		}
	}
}

// Close stops accepting events and waits for a running worker to finish writing the queue
func (j *Journal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	if j.started.Load() {
		<-j.done
	}
}

func (j *Journal) write(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := j.apply(ctx, ev); err != nil {
		j.logger.Error("journal write failed",
			slog.String("kind", ev.Kind.String()),
			slog.String("code", string(ev.Code)),
			slog.Any("error", err))
	}
}

func (j *Journal) apply(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventSessionCreated:
		id, err := j.store.CreateGame(ctx, ev.Code, ev.Player)
		if err != nil {
			return err
		}
		j.games[ev.Code] = id
		return nil

	case EventPlayerAdmitted:
		id, err := j.gameID(ctx, ev.Code)
		if err != nil {
			return err
		}
		return j.store.CreatePlayer(ctx, id, ev.Player)

	case EventTransferApplied:
		id, err := j.gameID(ctx, ev.Code)
		if err != nil {
			return err
		}
		return j.store.CreateTransfer(ctx, id, ev.Transfer)

	case EventSessionEvicted:
		delete(j.games, ev.Code)
		return nil

	default:
		return fmt.Errorf("unknown journal event kind %d", ev.Kind)
	}
}

// gameID resolves the store id for code, falling back to the store if the
// create event was never written by this worker
func (j *Journal) gameID(ctx context.Context, code model.SessionCode) (model.GameID, error) {
	if id, ok := j.games[code]; ok {
		return id, nil
	}
	rec, err := j.store.FindGameByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrGameRecordNotFound) {
			return "", fmt.Errorf("no stored game for %s: %w", code, err)
		}
		return "", err
	}
	j.games[code] = rec.ID
	return rec.ID, nil
}

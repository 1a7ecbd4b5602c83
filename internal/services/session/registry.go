package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/boardbank/internal/dependencies/clock"
	"github.com/mcoot/boardbank/internal/model"
)

// Registry maps session codes to live sessions.
// Its lock covers lookup and insertion only; operations on a session take
// that session's own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.SessionCode]*Session
	capacity int
	clock    clock.Clock
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. New sessions get the given capacity.
func NewRegistry(capacity int, clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[model.SessionCode]*Session),
		capacity: capacity,
		clock:    clk,
		logger:   logger.With(slog.String("component", "session_registry")),
	}
}

// Get returns the live session for code
func (r *Registry) Get(code model.SessionCode) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// GetOrCreate returns the session for code, creating an empty one if needed.
// Concurrent callers for the same unknown code all receive the same session,
// and exactly one of them sees created == true.
func (r *Registry) GetOrCreate(code model.SessionCode) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[code]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[code]; ok {
		return s, false
	}

	now := r.clock.Now()
	s = newSession(model.NewSession(code, r.capacity, now), now)
	r.sessions[code] = s

	r.logger.Info("session created", slog.String("code", string(code)))
	return s, true
}

// Remove drops the session for code and marks it closed.
// Returns false if no such session exists.
func (r *Registry) Remove(code model.SessionCode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return false
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	delete(r.sessions, code)

	r.logger.Info("session removed", slog.String("code", string(code)))
	return true
}

// Sweep evicts sessions with no connected players that have been idle for at
// least idleTTL, plus any session with an empty roster. Sessions for which
// busy returns true are kept. busy may be nil.
//
// Candidates are found without the registry write lock. Each one is checked
// again and removed under a write lock held for that session alone.
//
// Returns the evicted codes.
func (r *Registry) Sweep(now time.Time, idleTTL time.Duration, busy func(model.SessionCode) bool) []model.SessionCode {
	evictable := func(code model.SessionCode, s *Session) bool {
		return s.idleLocked(now, idleTTL) && (busy == nil || !busy(code))
	}

	r.mu.RLock()
	live := make(map[model.SessionCode]*Session, len(r.sessions))
	for code, s := range r.sessions {
		live[code] = s
	}
	r.mu.RUnlock()

	var candidates []model.SessionCode
	for code, s := range live {
		s.mu.Lock()
		if evictable(code, s) {
			candidates = append(candidates, code)
		}
		s.mu.Unlock()
	}

	var evicted []model.SessionCode
	for _, code := range candidates {
		if r.evict(code, live[code], evictable) {
			evicted = append(evicted, code)
		}
	}

	if len(evicted) > 0 {
		sort.Slice(evicted, func(i, j int) bool { return evicted[i] < evicted[j] })
		r.logger.Info("evicted idle sessions", slog.Int("count", len(evicted)))
	}
	return evicted
}

// evict removes s if it is still the live session for code and still
// satisfies evictable
func (r *Registry) evict(code model.SessionCode, s *Session, evictable func(model.SessionCode, *Session) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[code] != s {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !evictable(code, s) {
		return false
	}
	s.closed = true
	delete(r.sessions, code)
	return true
}

// Codes returns the codes of all live sessions, sorted
func (r *Registry) Codes() []model.SessionCode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]model.SessionCode, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

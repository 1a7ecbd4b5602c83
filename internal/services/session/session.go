// Package session owns the live sessions and serializes every change to them.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/boardbank/internal/model"
)

// ErrSessionClosed is returned by a session that has been removed from its registry.
// Callers should look the code up again.
var ErrSessionClosed = errors.New("session closed")

// Mutation changes a session in place. It reports whether anything changed.
type Mutation func(next *model.Session) (changed bool, err error)

// CommitFunc runs after a successful mutation, before the change becomes visible.
// Returning an error discards the change.
type CommitFunc func(next *model.Session) error

// Session guards one game's state. All changes go through Apply.
type Session struct {
	code model.SessionCode

	mu         sync.Mutex
	state      *model.Session
	closed     bool
	lastActive time.Time
}

func newSession(state *model.Session, now time.Time) *Session {
	return &Session{code: state.Code, state: state, lastActive: now}
}

// Code returns the session code
func (s *Session) Code() model.SessionCode {
	return s.code
}

// Apply runs mutate against a copy of the state and, if it succeeds, runs
// commit and then makes the copy current. The whole sequence holds the
// session lock, so commits observe changes in the order they are applied.
//
// Returns false with a nil error if mutate made no change.
func (s *Session) Apply(now time.Time, mutate Mutation, commit CommitFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	s.lastActive = now

	next := s.state.Clone()
	changed, err := mutate(next)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	next.Version++
	if commit != nil {
		if err := commit(next); err != nil {
			return false, fmt.Errorf("%w: %v", model.ErrInternal, err)
		}
	}

	s.state = next
	return true, nil
}

// Snapshot returns the subscriber view of the current state
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// View calls fn with the current state under the session lock.
// fn must not retain or modify the state.
func (s *Session) View(fn func(state *model.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Closed reports whether the session has been removed from its registry
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// idleLocked reports whether the session can be evicted. Caller holds s.mu.
func (s *Session) idleLocked(now time.Time, idleTTL time.Duration) bool {
	if len(s.state.Players) == 0 {
		return true
	}
	return s.state.ConnectedCount() == 0 && now.Sub(s.lastActive) >= idleTTL
}

package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/boardbank/internal/dependencies/mocks"
	"github.com/mcoot/boardbank/internal/ledger"
	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry(4, s.clock, testutil.NopLogger())
}

func (s *RegistrySuite) admit(sess *Session, name, conn string) (bool, error) {
	return sess.Apply(s.clock.Now(), func(next *model.Session) (bool, error) {
		_, err := ledger.Admit(next, ledger.AdmitRequest{
			Name:            name,
			ConnectionID:    conn,
			StartingBalance: 1500,
			NewID:           func() model.PlayerID { return model.PlayerID("id-" + name) },
			Now:             s.clock.Now(),
		})
		return err == nil, err
	}, nil)
}

func (s *RegistrySuite) TestGetUnknownReturnsNotFound() {
	_, err := s.registry.Get("NOPE")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *RegistrySuite) TestGetOrCreateCreatesOnce() {
	first, created := s.registry.GetOrCreate("ABC123")
	s.True(created)

	second, created := s.registry.GetOrCreate("ABC123")
	s.False(created)
	s.Same(first, second)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestGetOrCreateConcurrentCreatesExactlyOnce() {
	var wg sync.WaitGroup
	var createdCount atomic.Int32
	results := make([]*Session, 50)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, created := s.registry.GetOrCreate("RACE")
			if created {
				createdCount.Add(1)
			}
			results[i] = sess
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), createdCount.Load())
	for _, sess := range results {
		s.Same(results[0], sess)
	}
}

func (s *RegistrySuite) TestConcurrentJoinsRespectCapacity() {
	sess, _ := s.registry.GetOrCreate("FULL")

	var wg sync.WaitGroup
	var admitted, rejected atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.admit(sess, fmt.Sprintf("P%d", i), "")
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, model.ErrSessionFull):
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(4), admitted.Load())
	s.Equal(int32(16), rejected.Load())
	s.Len(sess.Snapshot().Players, 4)
}

func (s *RegistrySuite) TestApplyIncrementsVersion() {
	sess, _ := s.registry.GetOrCreate("ABC")

	changed, err := s.admit(sess, "Alice", "")
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(uint64(1), sess.Snapshot().Version)
}

func (s *RegistrySuite) TestApplyUnchangedSkipsCommit() {
	sess, _ := s.registry.GetOrCreate("ABC")
	committed := false

	changed, err := sess.Apply(s.clock.Now(),
		func(*model.Session) (bool, error) { return false, nil },
		func(*model.Session) error { committed = true; return nil },
	)

	s.NoError(err)
	s.False(changed)
	s.False(committed)
	s.Equal(uint64(0), sess.Snapshot().Version)
}

func (s *RegistrySuite) TestApplyMutationErrorDiscardsChange() {
	sess, _ := s.registry.GetOrCreate("ABC")
	_, err := s.admit(sess, "Alice", "")
	s.Require().NoError(err)

	_, err = sess.Apply(s.clock.Now(), func(next *model.Session) (bool, error) {
		next.Players[0].Balance = 0
		return true, model.ErrInsufficientFunds
	}, nil)

	s.ErrorIs(err, model.ErrInsufficientFunds)
	bal, _ := sess.Snapshot().Balance("Alice")
	s.Equal(int64(1500), bal)
}

func (s *RegistrySuite) TestApplyCommitErrorDiscardsChange() {
	sess, _ := s.registry.GetOrCreate("ABC")

	_, err := sess.Apply(s.clock.Now(), func(next *model.Session) (bool, error) {
		next.Players = append(next.Players, model.Player{ID: "p1", Name: "Alice"})
		return true, nil
	}, func(*model.Session) error {
		return errors.New("encode failed")
	})

	s.ErrorIs(err, model.ErrInternal)
	s.Empty(sess.Snapshot().Players)
	s.Equal(uint64(0), sess.Snapshot().Version)
}

func (s *RegistrySuite) TestCommitSeesNewVersion() {
	sess, _ := s.registry.GetOrCreate("ABC")
	var seen uint64

	_, err := sess.Apply(s.clock.Now(), func(next *model.Session) (bool, error) {
		return true, nil
	}, func(next *model.Session) error {
		seen = next.Version
		return nil
	})

	s.Require().NoError(err)
	s.Equal(uint64(1), seen)
}

func (s *RegistrySuite) TestRemovedSessionIsClosed() {
	sess, _ := s.registry.GetOrCreate("ABC")

	s.True(s.registry.Remove("ABC"))
	s.False(s.registry.Remove("ABC"))

	s.True(sess.Closed())
	_, err := s.admit(sess, "Alice", "")
	s.ErrorIs(err, ErrSessionClosed)

	_, err = s.registry.Get("ABC")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *RegistrySuite) TestSweepEvictsEmptySessions() {
	s.registry.GetOrCreate("EMPTY")

	evicted := s.registry.Sweep(s.clock.Now(), time.Hour, nil)

	s.Equal([]model.SessionCode{"EMPTY"}, evicted)
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestSweepKeepsConnectedSessions() {
	sess, _ := s.registry.GetOrCreate("LIVE")
	_, err := s.admit(sess, "Alice", "conn-1")
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)
	evicted := s.registry.Sweep(s.clock.Now(), time.Hour, nil)

	s.Empty(evicted)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestSweepEvictsIdleDisconnectedSessions() {
	sess, _ := s.registry.GetOrCreate("IDLE")
	_, err := s.admit(sess, "Alice", "")
	s.Require().NoError(err)

	s.clock.Advance(30 * time.Minute)
	s.Empty(s.registry.Sweep(s.clock.Now(), time.Hour, nil))

	s.clock.Advance(30 * time.Minute)
	s.Equal([]model.SessionCode{"IDLE"}, s.registry.Sweep(s.clock.Now(), time.Hour, nil))
	s.True(sess.Closed())
}

func (s *RegistrySuite) TestSweepRespectsBusy() {
	s.registry.GetOrCreate("WATCHED")

	evicted := s.registry.Sweep(s.clock.Now(), time.Hour, func(code model.SessionCode) bool {
		return code == "WATCHED"
	})

	s.Empty(evicted)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestSweepRechecksBeforeEvicting() {
	s.registry.GetOrCreate("ABC")

	calls := 0
	evicted := s.registry.Sweep(s.clock.Now(), time.Hour, func(model.SessionCode) bool {
		calls++
		return calls > 1
	})

	s.Empty(evicted)
	s.Equal(2, calls)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestSweepDoesNotBlockLookups() {
	s.registry.GetOrCreate("IDLE")
	s.registry.GetOrCreate("OTHER")

	lookupBlocked := false
	checked := false
	evicted := s.registry.Sweep(s.clock.Now(), time.Hour, func(code model.SessionCode) bool {
		if code != "IDLE" || checked {
			return code == "OTHER"
		}
		checked = true
		done := make(chan error, 1)
		go func() {
			_, err := s.registry.Get("OTHER")
			done <- err
		}()
		select {
		case err := <-done:
			s.NoError(err)
		case <-time.After(time.Second):
			lookupBlocked = true
		}
		return false
	})

	s.False(lookupBlocked, "lookup waited on the sweep")
	s.Equal([]model.SessionCode{"IDLE"}, evicted)
}

func (s *RegistrySuite) TestCodesSorted() {
	s.registry.GetOrCreate("BBB")
	s.registry.GetOrCreate("AAA")

	s.Equal([]model.SessionCode{"AAA", "BBB"}, s.registry.Codes())
}

package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/boardbank/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Tickers it creates fire only when the clock is moved past their next tick.
// Safe to use from concurrent goroutines.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	tickers     []*mockTicker
}

var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// NewTicker creates a ticker driven by Advance and Set
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTicker{
		owner:  c,
		period: d,
		next:   c.currentTime.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// TickerCount returns how many tickers are running
func (c *MockClock) TickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
	c.fireLocked()
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
	c.fireLocked()
}

// fireLocked sends at most one pending tick per ticker, like time.Ticker
// drops ticks for slow receivers
func (c *MockClock) fireLocked() {
	for _, t := range c.tickers {
		if c.currentTime.Before(t.next) {
			continue
		}
		for !c.currentTime.Before(t.next) {
			t.next = t.next.Add(t.period)
		}
		select {
		case t.ch <- c.currentTime:
		default:
		}
	}
}

type mockTicker struct {
	owner  *MockClock
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	c := t.owner
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.tickers {
		if other == t {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

// Package clock abstracts wall time and periodic ticks.
package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// NewTicker returns a system ticker with period d
func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/boardbank/internal/dependencies/random"
)

// MockRandom replays queued codes and ids
type MockRandom struct {
	mu sync.Mutex

	codes  []string
	uuids  []string
	minted int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Code pops the next queued code, or returns "" when none remain
func (r *MockRandom) Code(int, string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return ""
	}
	next := r.codes[0]
	r.codes = r.codes[1:]
	return next
}

// UUID pops the next queued id. Once the queue is empty it mints
// deterministic ids of the form "id-N".
func (r *MockRandom) UUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.uuids) > 0 {
		next := r.uuids[0]
		r.uuids = r.uuids[1:]
		return next
	}
	r.minted++
	return fmt.Sprintf("id-%d", r.minted)
}

// QueueCode appends codes for Code to return
func (r *MockRandom) QueueCode(codes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, codes...)
}

// QueueUUID appends ids for UUID to return
func (r *MockRandom) QueueUUID(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uuids = append(r.uuids, ids...)
}

// Reset clears all queued values
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes, r.uuids, r.minted = nil, nil, 0
}

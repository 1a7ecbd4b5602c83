package factory

import (
	"context"
	"time"

	"github.com/mcoot/boardbank/internal/dependencies/mocks"
	"github.com/mcoot/boardbank/internal/services/bank"
	"github.com/mcoot/boardbank/internal/storage/memory"
	"github.com/mcoot/boardbank/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates a started App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, bank.DefaultConfig(), 64, testutil.NopLogger())
	app.Start(context.Background())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}

// Flush waits for every queued persistence event to be written.
// The app cannot persist further events afterwards.
func (t *TestApp) Flush() {
	t.Journal.Close()
}

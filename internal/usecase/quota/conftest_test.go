package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

type key struct {
	user string
	day  domusage.Day
}

// mockStore is a map-backed Store with injectable faults.
type mockStore struct {
	mu      sync.Mutex
	records map[key]domusage.Record

	getErr   error
	incrErr  error
	panicMsg string

	increments int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[key]domusage.Record)}
}

func (m *mockStore) GetOrCreate(_ context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.getErr != nil {
		return domusage.Record{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key{userID, day}]
	if !ok {
		rec = domusage.NewRecord(userID, day)
		m.records[key{userID, day}] = rec
	}
	return rec, nil
}

func (m *mockStore) Increment(
	_ context.Context, userID string, day domusage.Day, kind domusage.Kind, c cost.Micros,
) (domusage.Record, error) {
	if m.incrErr != nil {
		return domusage.Record{}, m.incrErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{userID, day}
	rec, ok := m.records[k]
	if !ok {
		rec = domusage.NewRecord(userID, day)
	}
	rec.Add(kind, c)
	m.records[k] = rec
	m.increments++
	return rec, nil
}

func (m *mockStore) get(userID string, day domusage.Day) domusage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key{userID, day}]
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestGate(s Store) (*Gate, *fakeClock) {
	clk := &fakeClock{now: noon}
	g := New(s, tier.DefaultPolicy(), cost.DefaultTable(), zap.NewNop()).WithClock(clk.Now)
	return g, clk
}

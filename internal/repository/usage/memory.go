// Package usage stores per-user, per-day usage records.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

type recordKey struct {
	userID string
	day    domusage.Day
}

// Memory is a process-lifetime usage store. Safe for concurrent use.
// Records live until Prune drops them.
type Memory struct {
	mu      sync.Mutex
	records map[recordKey]domusage.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[recordKey]domusage.Record)}
}

// GetOrCreate returns the record for (userID, day), creating a zeroed one on first access.
func (m *Memory) GetOrCreate(_ context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	if err := validateKey(userID, day); err != nil {
		return domusage.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{userID: userID, day: day}
	rec, ok := m.records[k]
	if !ok {
		rec = domusage.NewRecord(userID, day)
		m.records[k] = rec
	}
	return rec, nil
}

// Get returns the record for (userID, day), or a zeroed record without storing it.
func (m *Memory) Get(_ context.Context, userID string, day domusage.Day) (domusage.Record, error) {
	if err := validateKey(userID, day); err != nil {
		return domusage.Record{}, err
	}

	m.mu.Lock()
	rec, ok := m.records[recordKey{userID: userID, day: day}]
	m.mu.Unlock()
	if !ok {
		return domusage.NewRecord(userID, day), nil
	}
	return rec, nil
}

// Save replaces the stored record for rec's key.
func (m *Memory) Save(_ context.Context, rec domusage.Record) error {
	if err := validateKey(rec.UserID, rec.Date); err != nil {
		return err
	}

	m.mu.Lock()
	m.records[recordKey{userID: rec.UserID, day: rec.Date}] = rec
	m.mu.Unlock()
	return nil
}

// Increment adds one unit of kind and c to the record under a single lock.
func (m *Memory) Increment(
	_ context.Context, userID string, day domusage.Day, kind domusage.Kind, c cost.Micros,
) (domusage.Record, error) {
	if err := validateKey(userID, day); err != nil {
		return domusage.Record{}, err
	}
	if !kind.Valid() {
		return domusage.Record{}, fmt.Errorf("increment kind %q: %w", kind, domain.ErrUsageTracking)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{userID: userID, day: day}
	rec, ok := m.records[k]
	if !ok {
		rec = domusage.NewRecord(userID, day)
	}
	rec.Add(kind, c)
	m.records[k] = rec
	return rec, nil
}

// Prune drops every record dated before the given day and returns how many were removed.
func (m *Memory) Prune(before domusage.Day) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k := range m.records {
		if k.day < before {
			delete(m.records, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Ping always succeeds; it lets Memory stand in for a database in health checks.
func (m *Memory) Ping(_ context.Context) error { return nil }

// RunJanitor prunes records older than retention every interval until ctx is done.
func (m *Memory) RunJanitor(
	ctx context.Context, interval, retention time.Duration, now func() time.Time, logger *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := domusage.DayOf(now().Add(-retention))
			if n := m.Prune(cutoff); n > 0 {
				logger.Debug("Pruned usage records",
					zap.Int("removed", n),
					zap.String("before", string(cutoff)),
				)
			}
		}
	}
}

func validateKey(userID string, day domusage.Day) error {
	if userID == "" {
		return fmt.Errorf("empty user id: %w", domain.ErrUsageTracking)
	}
	if day == "" {
		return fmt.Errorf("empty day: %w", domain.ErrUsageTracking)
	}
	return nil
}

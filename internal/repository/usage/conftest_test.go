package usage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/silverline/internal/db"
)

// mockHashStore is an in-memory hashStore with injectable failures.
type mockHashStore struct {
	mu        sync.Mutex
	data      map[string]map[string]string
	ttls      map[string]time.Duration
	getErr    error
	setErr    error
	incrErr   error
	expireErr error
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{
		data: make(map[string]map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	h := m.hash(key)
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]string, len(m.data[key]))
	for k, v := range m.data[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockHashStore) HIncrBy(
	_ context.Context, key string, incrs []db.FieldIncr, ttl time.Duration,
) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return nil, m.incrErr
	}
	h := m.hash(key)
	for _, in := range incrs {
		cur, _ := strconv.ParseInt(h[in.Field], 10, 64)
		h[in.Field] = strconv.FormatInt(cur+in.By, 10)
	}
	if _, ok := m.ttls[key]; !ok && ttl > 0 {
		m.ttls[key] = ttl
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (m *mockHashStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expireErr != nil {
		return m.expireErr
	}
	if _, ok := m.ttls[key]; ok && nx {
		return nil
	}
	m.ttls[key] = ttl
	return nil
}

func (m *mockHashStore) hash(key string) map[string]string {
	h, ok := m.data[key]
	if !ok {
		h = make(map[string]string)
		m.data[key] = h
	}
	return h
}

package silverline

import (
	"context"
	"sync"
	"testing"
	"time"
)

// --- LLM mock ---

type mockLLM struct {
	mu         sync.Mutex
	completeFn func(ctx context.Context, req CompletionRequest) (Completion, error)
	transcript Transcript
	requests   []CompletionRequest
	healthErr  error
}

func (m *mockLLM) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return Completion{Text: "Here is how.", Model: req.Model}, nil
}

func (m *mockLLM) Transcribe(_ context.Context, _ Audio) (Transcript, error) {
	return m.transcript, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLM) last() CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// checkingLLM also reports provider health.
type checkingLLM struct {
	mockLLM
}

func (m *checkingLLM) HealthCheck(_ context.Context) error { return m.healthErr }

// --- helpers ---

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func withClock(now func() time.Time) Option {
	return optionFunc(func(c *clientConfig) { c.now = now })
}

func newTestClient(t *testing.T, llm LLM, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLLM(llm), withClock(func() time.Time { return noon })}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

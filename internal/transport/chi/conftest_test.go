package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
	repousage "github.com/kailas-cloud/silverline/internal/repository/usage"
	assistantuc "github.com/kailas-cloud/silverline/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/silverline/internal/usecase/health"
	quotauc "github.com/kailas-cloud/silverline/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/silverline/internal/usecase/usage"
)

// Minimal payloads that pass content sniffing.
var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)
)

// --- Mocks ---

type mockAssistant struct {
	err error

	calls      int
	lastCaller domain.Caller
	lastText   string
	lastImage  *domain.Image
	lastAudio  domain.Audio
	history    []domain.Message
}

func (m *mockAssistant) Chat(
	_ context.Context, caller domain.Caller, message string, history []domain.Message,
) (assistantuc.ChatResult, error) {
	m.calls++
	m.lastCaller, m.lastText, m.history = caller, message, history
	if m.err != nil {
		return assistantuc.ChatResult{}, m.err
	}
	return assistantuc.ChatResult{Reply: "echo: " + message, Model: "basic"}, nil
}

func (m *mockAssistant) Voice(
	_ context.Context, caller domain.Caller, audio domain.Audio, history []domain.Message,
) (assistantuc.VoiceResult, error) {
	m.calls++
	m.lastCaller, m.lastAudio, m.history = caller, audio, history
	if m.err != nil {
		return assistantuc.VoiceResult{}, m.err
	}
	return assistantuc.VoiceResult{
		Transcript: domain.Transcript{Text: "hello"},
		ChatResult: assistantuc.ChatResult{Reply: "hi", Model: "basic"},
	}, nil
}

func (m *mockAssistant) AnalyzeScreenshot(
	_ context.Context, caller domain.Caller, img domain.Image, question string,
) (assistantuc.ScreenshotResult, error) {
	m.calls++
	m.lastCaller, m.lastImage, m.lastText = caller, &img, question
	if m.err != nil {
		return assistantuc.ScreenshotResult{}, m.err
	}
	return assistantuc.ScreenshotResult{Analysis: "a settings screen", Model: "vision"}, nil
}

func (m *mockAssistant) CheckScam(
	_ context.Context, caller domain.Caller, text string, img *domain.Image,
) (assistantuc.ScamResult, error) {
	m.calls++
	m.lastCaller, m.lastText, m.lastImage = caller, text, img
	if m.err != nil {
		return assistantuc.ScamResult{}, m.err
	}
	return assistantuc.ScamResult{
		Verdict: assistantuc.ScamVerdict{RiskLevel: assistantuc.RiskHigh, IsLikelyScam: true, Reasons: []string{"urgency"}},
		Model:   "advanced",
	}, nil
}

// stubLLM answers every completion with a fixed reply.
type stubLLM struct {
	calls int
}

func (s *stubLLM) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	s.calls++
	return domain.Completion{Text: "Here is how.", Model: req.Model}, nil
}

func (s *stubLLM) Transcribe(_ context.Context, _ domain.Audio) (domain.Transcript, error) {
	return domain.Transcript{Text: "hello"}, nil
}

type mockHealth struct {
	status healthuc.Status
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return healthuc.Report{Status: m.status, Checks: map[string]healthuc.CheckResult{"usage_store": healthuc.CheckOK}}
}

// --- Harness ---

type testEnv struct {
	router    http.Handler
	assistant *mockAssistant
	store     *repousage.Memory
	health    *mockHealth
}

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	asst := &mockAssistant{}
	env := newTestEnvWith(t, asst)
	env.assistant = asst
	return env
}

// newTestEnvWith wires the router around any Assistant, such as the real use case.
func newTestEnvWith(t *testing.T, asst Assistant) *testEnv {
	t.Helper()

	clock := func() time.Time { return noon }
	policy := tier.DefaultPolicy()
	store := repousage.NewMemory()
	gate := quotauc.New(store, policy, cost.DefaultTable(), zap.NewNop()).WithClock(clock)
	usage := usageuc.New(store, policy, zap.NewNop()).WithClock(clock)
	health := &mockHealth{status: healthuc.Healthy}

	srv := NewServer(asst, gate, usage, health, policy, Config{MaxUploadBytes: 1 << 20})
	r := chi.NewRouter()
	srv.Register(r)

	return &testEnv{router: r, store: store, health: health}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, path, userID string, t2 tier.Tier, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	setIdentity(req, userID, t2)
	return req
}

type formFile struct {
	field, filename string
	data            []byte
}

func multipartRequest(
	t *testing.T, path, userID string, t2 tier.Tier, fields map[string]string, files ...formFile,
) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setIdentity(req, userID, t2)
	return req
}

func setIdentity(req *http.Request, userID string, t tier.Tier) {
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if t != "" {
		req.Header.Set(HeaderTier, string(t))
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (raw %q)", err, rr.Body.String())
	}
	return out
}

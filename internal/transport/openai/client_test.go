package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGatewayMetrics()
	os.Exit(m.Run())
}

func newTestClient(url string) *Client {
	return NewClient(&Config{
		APIKey:  "test-key",
		BaseURL: url,
		Logger:  zap.NewNop(),
	})
}

func chatResponse(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	})
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Model != "basic-model" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[1].Content != "Hello" {
			t.Errorf("messages = %+v", body.Messages)
		}
		if body.ResponseFormat != nil {
			t.Error("response_format should be omitted for plain chat")
		}
		chatResponse(w, "Hi there")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.Complete(context.Background(), domain.CompletionRequest{
		Model: "basic-model",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Be kind"},
			{Role: domain.RoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Text != "Hi there" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Model != "test-model" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.PromptTokens != 12 || got.CompletionTokens != 8 {
		t.Errorf("tokens = %d/%d", got.PromptTokens, got.CompletionTokens)
	}
}

func TestClient_Complete_ImageAndJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		s := string(raw)
		if !strings.Contains(s, `"response_format":{"type":"json_object"}`) {
			t.Errorf("expected json_object response format, body: %s", s)
		}
		if !strings.Contains(s, "data:image/jpeg;base64,AQID") {
			t.Errorf("expected image data URL, body: %s", s)
		}
		if !strings.Contains(s, `"image_url"`) {
			t.Errorf("expected image_url part, body: %s", s)
		}
		chatResponse(w, `{"riskLevel":"low"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.Complete(context.Background(), domain.CompletionRequest{
		Model:    "vision-model",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "Is this a scam?"}},
		Image:    &domain.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"},
		JSON:     true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Text != `{"riskLevel":"low"}` {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestClient_Complete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrLLMRateLimited) {
		t.Fatalf("expected ErrLLMRateLimited, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "boom", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), domain.CompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if errors.Is(err, domain.ErrLLMRateLimited) {
		t.Error("500 must not be reported as rate limiting")
	}
}

func TestClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "note.m4a" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "audio-bytes" {
			t.Errorf("file content = %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"task": "transcribe", "language": "english", "duration": 2.5, "text": "Call my daughter",
		})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Transcribe(context.Background(), domain.Audio{
		Data: []byte("audio-bytes"), Filename: "note.m4a", MIMEType: "audio/mp4",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got.Text != "Call my daughter" || got.Language != "english" || got.Duration != 2.5 {
		t.Errorf("transcript = %+v", got)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestParseAPIError_Detail(t *testing.T) {
	err := parseAPIError(&goopenai.RequestError{
		HTTPStatusCode: http.StatusBadRequest,
		Body:           []byte(`{"detail":"model not found"}`),
		Err:            errors.New("bad request"),
	})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("detail missing from %q", err.Error())
	}
}

func TestParseAPIError_Timeout(t *testing.T) {
	err := parseAPIError(context.DeadlineExceeded)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

// Package openai talks to an OpenAI-compatible model provider.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/metrics"
)

const (
	opChat       = "chat"
	opTranscribe = "transcribe"

	defaultTimeout = 60 * time.Second
)

// Client is a domain.LLM backed by the OpenAI-compatible API.
type Client struct {
	client             *openai.Client
	transcriptionModel string
	timeout            time.Duration
	logger             *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	Timeout            time.Duration
	Logger             *zap.Logger
}

// NewClient creates an OpenAI-compatible client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		client:             openai.NewClientWithConfig(clientCfg),
		transcriptionModel: model,
		timeout:            timeout,
		logger:             cfg.Logger,
	}
}

// Complete implements domain.LLM.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	creq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  toChatMessages(req.Messages, req.Image),
		MaxTokens: req.MaxTokens,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	duration := time.Since(start)

	if err != nil {
		c.recordError(opChat, req.Model, "api_error")
		return domain.Completion{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		c.recordError(opChat, req.Model, "empty_response")
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(opChat, req.Model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(opChat, req.Model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(req.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(req.Model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Transcribe implements domain.LLM.
func (c *Client) Transcribe(ctx context.Context, audio domain.Audio) (domain.Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	filename := audio.Filename
	if filename == "" {
		filename = "voice.webm"
	}

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	duration := time.Since(start)

	if err != nil {
		c.recordError(opTranscribe, c.transcriptionModel, "api_error")
		return domain.Transcript{}, parseAPIError(err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(opTranscribe, c.transcriptionModel, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(opTranscribe, c.transcriptionModel).Observe(duration.Seconds())

	return domain.Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Client) recordError(op, model, errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(op, model, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(op, model, errType).Inc()
	c.logger.Warn("Model provider request failed",
		zap.String("operation", op),
		zap.String("model", model),
		zap.String("error_type", errType),
	)
}

// toChatMessages converts domain turns. The image, if any, rides on the last user turn.
func toChatMessages(msgs []domain.Message, img *domain.Image) []openai.ChatCompletionMessage {
	lastUser := -1
	if img != nil {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == domain.RoleUser {
				lastUser = i
				break
			}
		}
	}

	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for i, m := range msgs {
		if i != lastUser {
			out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role: string(m.Role),
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(img),
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		})
	}
	return out
}

func dataURL(img *domain.Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// parseAPIError maps provider failures to domain errors.
// 429 becomes domain.ErrLLMRateLimited, everything else domain.ErrLLMProviderError (502).
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrap := sentinelFor(reqErr.HTTPStatusCode)
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("model API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("model API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("model API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, sentinelFor(apiErr.HTTPStatusCode))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("model request timed out: %w", domain.ErrLLMProviderError)
	}
	return fmt.Errorf("model request failed: %w", domain.ErrLLMProviderError)
}

func sentinelFor(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrLLMRateLimited
	}
	return domain.ErrLLMProviderError
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

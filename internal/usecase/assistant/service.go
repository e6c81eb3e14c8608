// Package assistant turns user requests into model calls and shapes the replies.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
)

// Risk levels of a scam verdict.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

const (
	defaultMaxHistory      = 10
	defaultMaxTokens       = 500
	defaultEmergencyNumber = "911"
)

// Config selects models and reply limits.
type Config struct {
	BasicModel      string
	AdvancedModel   string
	VisionModel     string
	MaxHistory      int
	MaxTokens       int
	EmergencyNumber string
}

// ChatResult is the assistant's reply to a text or voice message.
type ChatResult struct {
	Reply        string        `json:"reply"`
	Model        string        `json:"model"`
	Emergency    *Emergency    `json:"emergency,omitempty"`
	QuickActions []QuickAction `json:"quickActions,omitempty"`
}

// VoiceResult is a chat reply plus what was heard.
type VoiceResult struct {
	Transcript domain.Transcript `json:"transcript"`
	ChatResult
}

// ScreenshotResult explains a screenshot.
type ScreenshotResult struct {
	Analysis     string        `json:"analysis"`
	Model        string        `json:"model"`
	QuickActions []QuickAction `json:"quickActions,omitempty"`
}

// ScamVerdict is the structured scam assessment.
type ScamVerdict struct {
	RiskLevel    string   `json:"riskLevel"`
	IsLikelyScam bool     `json:"isLikelyScam"`
	Reasons      []string `json:"reasons"`
	Advice       string   `json:"advice"`
}

// ScamResult wraps a verdict with the model that produced it.
type ScamResult struct {
	Verdict      ScamVerdict   `json:"verdict"`
	Model        string        `json:"model"`
	QuickActions []QuickAction `json:"quickActions,omitempty"`
}

// Service is the assistant use case.
type Service struct {
	llm    LLM
	policy tier.Policy
	cfg    Config
	logger *zap.Logger
}

// New creates a Service. Zero config values fall back to defaults.
func New(llm LLM, policy tier.Policy, cfg Config, logger *zap.Logger) *Service {
	if cfg.AdvancedModel == "" {
		cfg.AdvancedModel = cfg.BasicModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.AdvancedModel
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.EmergencyNumber == "" {
		cfg.EmergencyNumber = defaultEmergencyNumber
	}
	return &Service{llm: llm, policy: policy, cfg: cfg, logger: logger}
}

// Chat answers a text message in the context of prior turns.
func (s *Service) Chat(
	ctx context.Context, caller domain.Caller, message string, history []domain.Message,
) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, fmt.Errorf("message is required: %w", domain.ErrInvalidRequest)
	}

	features := s.policy.Features(caller.Tier)
	msgs := make([]domain.Message, 0, s.cfg.MaxHistory+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, s.trimHistory(history)...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: message})

	resp, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model:     s.chatModel(features),
		Messages:  msgs,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("chat: %w", err)
	}

	res := ChatResult{Reply: strings.TrimSpace(resp.Text), Model: resp.Model}
	emergency := features.EmergencyFeatures && detectEmergency(message)
	if emergency {
		res.Emergency = newEmergency(s.cfg.EmergencyNumber)
		s.logger.Info("Emergency keywords detected",
			zap.String("user_id", caller.UserID),
		)
	}
	if features.QuickActions {
		res.QuickActions = chatActions(emergency)
	}
	return res, nil
}

// Voice transcribes audio and answers what was said.
func (s *Service) Voice(
	ctx context.Context, caller domain.Caller, audio domain.Audio, history []domain.Message,
) (VoiceResult, error) {
	if len(audio.Data) == 0 {
		return VoiceResult{}, fmt.Errorf("audio is required: %w", domain.ErrInvalidRequest)
	}

	transcript, err := s.llm.Transcribe(ctx, audio)
	if err != nil {
		return VoiceResult{}, fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return VoiceResult{}, fmt.Errorf("no speech recognized: %w", domain.ErrInvalidRequest)
	}

	chat, err := s.Chat(ctx, caller, transcript.Text, history)
	if err != nil {
		return VoiceResult{}, err
	}
	return VoiceResult{Transcript: transcript, ChatResult: chat}, nil
}

// AnalyzeScreenshot explains an image of the user's screen.
func (s *Service) AnalyzeScreenshot(
	ctx context.Context, caller domain.Caller, img domain.Image, question string,
) (ScreenshotResult, error) {
	if len(img.Data) == 0 {
		return ScreenshotResult{}, fmt.Errorf("image is required: %w", domain.ErrInvalidRequest)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		question = defaultScreenshotQuestion
	}

	resp, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model: s.cfg.VisionModel,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt + "\n\n" + screenshotPrompt},
			{Role: domain.RoleUser, Content: question},
		},
		Image:     &img,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return ScreenshotResult{}, fmt.Errorf("analyze screenshot: %w", err)
	}

	res := ScreenshotResult{Analysis: strings.TrimSpace(resp.Text), Model: resp.Model}
	if s.policy.Features(caller.Tier).QuickActions {
		res.QuickActions = []QuickAction{actionReadAloud, actionSimpler}
	}
	return res, nil
}

// CheckScam assesses text, an image, or both for scam signals.
func (s *Service) CheckScam(
	ctx context.Context, caller domain.Caller, text string, img *domain.Image,
) (ScamResult, error) {
	text = strings.TrimSpace(text)
	if img != nil && len(img.Data) == 0 {
		img = nil
	}
	if text == "" && img == nil {
		return ScamResult{}, fmt.Errorf("text or image is required: %w", domain.ErrInvalidRequest)
	}

	prompt := "Please check this for me."
	if text != "" {
		prompt = "Please check this message:\n\n" + text
	}

	model := s.cfg.AdvancedModel
	if img != nil {
		model = s.cfg.VisionModel
	}

	resp, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model: model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: scamPrompt},
			{Role: domain.RoleUser, Content: prompt},
		},
		Image:     img,
		JSON:      true,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return ScamResult{}, fmt.Errorf("check scam: %w", err)
	}

	verdict, ok := parseVerdict(resp.Text)
	if !ok {
		s.logger.Warn("Unparseable scam verdict, returning raw advice",
			zap.String("user_id", caller.UserID),
			zap.String("model", resp.Model),
		)
	}

	res := ScamResult{Verdict: verdict, Model: resp.Model}
	if s.policy.Features(caller.Tier).QuickActions {
		res.QuickActions = scamActions(verdict.IsLikelyScam)
	}
	return res, nil
}

func (s *Service) chatModel(f tier.Features) string {
	if f.AdvancedModel {
		return s.cfg.AdvancedModel
	}
	return s.cfg.BasicModel
}

// trimHistory keeps the most recent user and assistant turns.
func (s *Service) trimHistory(history []domain.Message) []domain.Message {
	kept := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) > s.cfg.MaxHistory {
		kept = kept[len(kept)-s.cfg.MaxHistory:]
	}
	return kept
}

// parseVerdict decodes the model's JSON. Anything unusable degrades to RiskUnknown
// with the raw text as advice.
func parseVerdict(raw string) (ScamVerdict, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var v ScamVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return unknownVerdict(raw), false
	}

	v.RiskLevel = strings.ToLower(strings.TrimSpace(v.RiskLevel))
	switch v.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		v.RiskLevel = RiskUnknown
	}
	if v.Reasons == nil {
		v.Reasons = []string{}
	}
	return v, true
}

func unknownVerdict(raw string) ScamVerdict {
	return ScamVerdict{
		RiskLevel: RiskUnknown,
		Reasons:   []string{},
		Advice:    raw,
	}
}

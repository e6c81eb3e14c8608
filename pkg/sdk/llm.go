package silverline

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/silverline/internal/domain"
)

// LLM is a chat and transcription model provider.
// Return ErrLLMRateLimited or ErrLLMProviderError (wrapped) to get the
// matching behavior from the client.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)
}

// CompletionRequest asks the model for the next assistant turn.
// When Image is set it belongs to the last user message.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	Image     *Image
	JSON      bool
	MaxTokens int
}

// Completion is a model reply.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// llmAdapter wraps a public LLM to satisfy the internal domain.LLM.
type llmAdapter struct {
	inner LLM
}

func (a *llmAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	msgs := make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = Message{Role: Role(m.Role), Content: m.Content}
	}
	var img *Image
	if req.Image != nil {
		img = &Image{Data: req.Image.Data, MIMEType: req.Image.MIMEType}
	}

	c, err := a.inner.Complete(ctx, CompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		Image:     img,
		JSON:      req.JSON,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Completion{
		Text:             c.Text,
		Model:            c.Model,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
	}, nil
}

func (a *llmAdapter) Transcribe(ctx context.Context, audio domain.Audio) (domain.Transcript, error) {
	t, err := a.inner.Transcribe(ctx, Audio{Data: audio.Data, Filename: audio.Filename, MIMEType: audio.MIMEType})
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}
	return domain.Transcript{Text: t.Text, Language: t.Language, Duration: t.Duration}, nil
}

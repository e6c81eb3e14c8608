package assistant

import (
	"context"

	"github.com/kailas-cloud/silverline/internal/domain"
)

// LLM is the model provider the assistant talks to.
type LLM interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
	Transcribe(ctx context.Context, audio domain.Audio) (domain.Transcript, error)
}

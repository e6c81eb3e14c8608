package domain

import "context"

// Role is the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Image is an uploaded picture passed to a vision model.
type Image struct {
	Data     []byte
	MIMEType string
}

// Audio is an uploaded voice recording.
type Audio struct {
	Data     []byte
	Filename string
	MIMEType string
}

// CompletionRequest asks a model for the next assistant turn.
// Image is optional; when set it is attached to the last user message.
type CompletionRequest struct {
	Model     string
	Messages  []Message
	Image     *Image
	JSON      bool
	MaxTokens int
}

// Completion is a model reply with token accounting.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Transcript is the text recognized from an audio clip.
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// LLM is the shared contract with the model provider.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

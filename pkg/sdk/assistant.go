package silverline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	assistantuc "github.com/kailas-cloud/silverline/internal/usecase/assistant"
)

// Chat answers a text message. history holds prior turns, oldest first.
func (c *Client) Chat(ctx context.Context, user User, message string, history []Message) (reply ChatReply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat", start, err) }()

	if strings.TrimSpace(message) == "" {
		return ChatReply{}, fmt.Errorf("message is required: %w", ErrInvalidRequest)
	}
	caller := toCaller(user)
	if err = c.admit(ctx, caller, domusage.KindText); err != nil {
		return ChatReply{}, err
	}

	res, err := c.assistant.Chat(ctx, caller, message, toDomainHistory(history))
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat: %w", err)
	}
	reply = toChatReply(res)
	reply.Usage = c.snapshot(ctx, caller)
	return reply, nil
}

// Voice transcribes a recording and answers it like a chat message.
func (c *Client) Voice(ctx context.Context, user User, audio Audio, history []Message) (reply VoiceReply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("voice", start, err) }()

	if len(audio.Data) == 0 {
		return VoiceReply{}, fmt.Errorf("audio is required: %w", ErrInvalidRequest)
	}
	caller := toCaller(user)
	if err = c.admit(ctx, caller, domusage.KindVoice); err != nil {
		return VoiceReply{}, err
	}

	res, err := c.assistant.Voice(ctx, caller, domain.Audio{
		Data:     audio.Data,
		Filename: audio.Filename,
		MIMEType: audio.MIMEType,
	}, toDomainHistory(history))
	if err != nil {
		return VoiceReply{}, fmt.Errorf("voice: %w", err)
	}

	reply = VoiceReply{
		Transcript: Transcript{
			Text:     res.Transcript.Text,
			Language: res.Transcript.Language,
			Duration: res.Transcript.Duration,
		},
		ChatReply: toChatReply(res.ChatResult),
	}
	reply.Usage = c.snapshot(ctx, caller)
	return reply, nil
}

// AnalyzeScreenshot explains what is on a screenshot. An empty question asks for a general walkthrough.
func (c *Client) AnalyzeScreenshot(
	ctx context.Context, user User, img Image, question string,
) (reply ScreenshotReply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("screenshot", start, err) }()

	if len(img.Data) == 0 {
		return ScreenshotReply{}, fmt.Errorf("image is required: %w", ErrInvalidRequest)
	}
	caller := toCaller(user)
	if err = c.admit(ctx, caller, domusage.KindScreenshot); err != nil {
		return ScreenshotReply{}, err
	}

	res, err := c.assistant.AnalyzeScreenshot(ctx, caller, toDomainImage(img), question)
	if err != nil {
		return ScreenshotReply{}, fmt.Errorf("screenshot: %w", err)
	}
	return ScreenshotReply{
		Analysis:     res.Analysis,
		Model:        res.Model,
		QuickActions: toQuickActions(res.QuickActions),
		Usage:        c.snapshot(ctx, caller),
	}, nil
}

// CheckScam rates a suspicious message. Pass text, an image of the message, or both.
func (c *Client) CheckScam(ctx context.Context, user User, text string, img *Image) (reply ScamReply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("scam_check", start, err) }()

	var domImg *domain.Image
	if img != nil && len(img.Data) > 0 {
		di := toDomainImage(*img)
		domImg = &di
	}
	if strings.TrimSpace(text) == "" && domImg == nil {
		return ScamReply{}, fmt.Errorf("text or image is required: %w", ErrInvalidRequest)
	}
	caller := toCaller(user)
	if err = c.admit(ctx, caller, domusage.KindScam); err != nil {
		return ScamReply{}, err
	}

	res, err := c.assistant.CheckScam(ctx, caller, text, domImg)
	if err != nil {
		return ScamReply{}, fmt.Errorf("scam check: %w", err)
	}
	return ScamReply{
		RiskLevel:    res.Verdict.RiskLevel,
		IsLikelyScam: res.Verdict.IsLikelyScam,
		Reasons:      res.Verdict.Reasons,
		Advice:       res.Verdict.Advice,
		Model:        res.Model,
		QuickActions: toQuickActions(res.QuickActions),
		Usage:        c.snapshot(ctx, caller),
	}, nil
}

func (c *Client) admit(ctx context.Context, caller domain.Caller, kind domusage.Kind) error {
	dec, err := c.gate.Admit(ctx, caller.UserID, caller.Tier, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	if dec.FailOpen && c.obs != nil && c.obs.logger != nil {
		c.obs.logger.Warn("request admitted without usage tracking", "kind", string(kind))
	}
	return nil
}

// snapshot returns nil when usage cannot be read; the reply is still delivered.
func (c *Client) snapshot(ctx context.Context, caller domain.Caller) *Usage {
	snap, err := c.usageSvc.Snapshot(ctx, caller.UserID, caller.Tier)
	if err != nil {
		if c.obs != nil && c.obs.logger != nil {
			c.obs.logger.Warn("usage snapshot unavailable", "error", err)
		}
		return nil
	}
	return &Usage{
		Messages:  snap.Today.Messages,
		Limit:     limitInt(snap.Today.Limit),
		Remaining: limitInt(snap.Today.Remaining),
		Cost:      snap.Cost,
	}
}

func toCaller(u User) domain.Caller {
	id := strings.TrimSpace(u.ID)
	if id == "" {
		id = domain.AnonymousUser
	}
	return domain.Caller{UserID: id, Tier: tier.Parse(string(u.Tier))}
}

func toDomainHistory(history []Message) []domain.Message {
	if len(history) == 0 {
		return nil
	}
	out := make([]domain.Message, len(history))
	for i, m := range history {
		out[i] = domain.Message{Role: domain.Role(m.Role), Content: m.Content}
	}
	return out
}

// toDomainImage fills in a missing MIME type by sniffing the bytes.
func toDomainImage(img Image) domain.Image {
	mt := img.MIMEType
	if mt == "" {
		mt = mimetype.Detect(img.Data).String()
	}
	return domain.Image{Data: img.Data, MIMEType: mt}
}

func toChatReply(res assistantuc.ChatResult) ChatReply {
	reply := ChatReply{
		Reply:        res.Reply,
		Model:        res.Model,
		QuickActions: toQuickActions(res.QuickActions),
	}
	if res.Emergency != nil && res.Emergency.Detected {
		reply.Emergency = &Emergency{Number: res.Emergency.Number, Message: res.Emergency.Message}
	}
	return reply
}

func toQuickActions(actions []assistantuc.QuickAction) []QuickAction {
	if len(actions) == 0 {
		return nil
	}
	out := make([]QuickAction, len(actions))
	for i, a := range actions {
		out[i] = QuickAction{ID: a.ID, Label: a.Label}
	}
	return out
}

func limitInt(l tier.Limit) int {
	if n, ok := l.Value(); ok {
		return n
	}
	return Unlimited
}

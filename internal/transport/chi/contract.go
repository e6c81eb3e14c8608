package chi

import (
	"context"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	assistantuc "github.com/kailas-cloud/silverline/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/silverline/internal/usecase/health"
	quotauc "github.com/kailas-cloud/silverline/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/silverline/internal/usecase/usage"
)

// Assistant answers user requests.
type Assistant interface {
	Chat(ctx context.Context, caller domain.Caller, message string, history []domain.Message) (assistantuc.ChatResult, error)
	Voice(ctx context.Context, caller domain.Caller, audio domain.Audio, history []domain.Message) (assistantuc.VoiceResult, error)
	AnalyzeScreenshot(
		ctx context.Context, caller domain.Caller, img domain.Image, question string,
	) (assistantuc.ScreenshotResult, error)
	CheckScam(ctx context.Context, caller domain.Caller, text string, img *domain.Image) (assistantuc.ScamResult, error)
}

// QuotaGate admits requests against daily caps.
type QuotaGate interface {
	Admit(ctx context.Context, userID string, t tier.Tier, kind domusage.Kind) (quotauc.Decision, error)
}

// UsageReporter builds usage views.
type UsageReporter interface {
	Decorate(ctx context.Context, payload map[string]any, userID string, t tier.Tier) map[string]any
	Report(ctx context.Context, userID string, t tier.Tier, day domusage.Day) (usageuc.Report, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

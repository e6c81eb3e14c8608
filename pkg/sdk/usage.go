package silverline

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
)

// Usage returns the usage report of user for the UTC day containing date.
// A zero date means today.
func (c *Client) Usage(ctx context.Context, user User, date time.Time) (report UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	var day domusage.Day
	if !date.IsZero() {
		day = domusage.DayOf(date)
	}

	caller := toCaller(user)
	r, err := c.usageSvc.Report(ctx, caller.UserID, caller.Tier, day)
	if err != nil {
		return UsageReport{}, fmt.Errorf("usage: %w", err)
	}

	return UsageReport{
		Date:               string(r.Date),
		Tier:               Tier(r.Tier),
		Messages:           r.Today.Messages,
		MessageLimit:       limitInt(r.Today.Limit),
		MessagesRemaining:  limitInt(r.Today.Remaining),
		ImageAnalyses:      r.Images.Used,
		ImageLimit:         limitInt(r.Images.Limit),
		ImagesRemaining:    limitInt(r.Images.Remaining),
		TextMessages:       r.Counters.Text,
		VoiceMessages:      r.Counters.Voice,
		ScreenshotAnalyses: r.Counters.Screenshot,
		ScamDetections:     r.Counters.Scam,
		Cost:               r.Cost,
	}, nil
}

// Features returns the capability set of t. Unknown tiers resolve to TierFree.
func (c *Client) Features(t Tier) Features {
	f := c.policy.Features(tier.Parse(string(t)))
	l := c.policy.Limits(tier.Parse(string(t)))
	return Features{
		AdvancedModel:          f.AdvancedModel,
		ScreenshotAnalysis:     f.ScreenshotAnalysis,
		ScamDetection:          f.ScamDetection,
		EmergencyFeatures:      f.EmergencyFeatures,
		QuickActions:           f.QuickActions,
		FamilyPortal:           f.FamilyPortal,
		MaxMessagesPerDay:      limitInt(l.MaxMessagesPerDay),
		MaxImageAnalysisPerDay: limitInt(l.MaxImageAnalysisPerDay),
	}
}

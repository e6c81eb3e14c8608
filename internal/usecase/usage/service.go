// Package usage builds the usage views returned to clients.
package usage

import (
	"context"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
)

// PayloadKey is the response field that carries the usage snapshot.
const PayloadKey = "usage"

// Counters are the raw per-kind counts for a day.
type Counters struct {
	Text       int `json:"text"`
	Voice      int `json:"voice"`
	Screenshot int `json:"screenshot"`
	Scam       int `json:"scam"`
}

// ImageUsage is the image-analysis cap view of a record.
type ImageUsage struct {
	Used      int        `json:"used"`
	Limit     tier.Limit `json:"limit"`
	Remaining tier.Limit `json:"remaining"`
}

// Report is the full usage view for one day.
type Report struct {
	Date     domusage.Day   `json:"date"`
	Tier     tier.Tier      `json:"tier"`
	Today    domusage.Today `json:"today"`
	Images   ImageUsage     `json:"imageAnalyses"`
	Counters Counters       `json:"counters"`
	Cost     string         `json:"cost"`
}

// Service builds snapshots and reports from the usage store.
type Service struct {
	store  RecordReader
	policy tier.Policy
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Service.
func New(store RecordReader, policy tier.Policy, logger *zap.Logger) *Service {
	return &Service{store: store, policy: policy, now: time.Now, logger: logger}
}

// WithClock overrides the time source used to pick "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Snapshot returns today's usage for userID under tier t.
func (s *Service) Snapshot(ctx context.Context, userID string, t tier.Tier) (domusage.Snapshot, error) {
	rec, err := s.store.Get(ctx, userID, domusage.DayOf(s.now()))
	if err != nil {
		return domusage.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return domusage.NewSnapshot(rec, s.policy.Limits(t).MaxMessagesPerDay), nil
}

// Decorate returns a copy of payload with the usage snapshot under PayloadKey.
// payload is not modified. If the snapshot cannot be read, the copy is returned
// without usage.
func (s *Service) Decorate(ctx context.Context, payload map[string]any, userID string, t tier.Tier) map[string]any {
	out := make(map[string]any, len(payload)+1)
	maps.Copy(out, payload)

	snap, err := s.Snapshot(ctx, userID, t)
	if err != nil {
		s.logger.Warn("Usage snapshot unavailable, response sent undecorated",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return out
	}
	out[PayloadKey] = snap
	return out
}

// Report returns the usage view for userID on day. A zero day means today.
func (s *Service) Report(ctx context.Context, userID string, t tier.Tier, day domusage.Day) (Report, error) {
	if day == "" {
		day = domusage.DayOf(s.now())
	}
	rec, err := s.store.Get(ctx, userID, day)
	if err != nil {
		return Report{}, fmt.Errorf("usage report: %w", err)
	}

	limits := s.policy.Limits(t)
	snap := domusage.NewSnapshot(rec, limits.MaxMessagesPerDay)
	images := rec.ImageAnalyses()

	return Report{
		Date:  day,
		Tier:  t,
		Today: snap.Today,
		Images: ImageUsage{
			Used:      images,
			Limit:     limits.MaxImageAnalysisPerDay,
			Remaining: limits.MaxImageAnalysisPerDay.Remaining(images),
		},
		Counters: Counters{
			Text:       rec.TextMessages,
			Voice:      rec.VoiceMessages,
			Screenshot: rec.ScreenshotAnalyses,
			Scam:       rec.ScamDetections,
		},
		Cost: snap.Cost,
	}, nil
}

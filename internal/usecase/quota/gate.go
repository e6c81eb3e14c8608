// Package quota admits or rejects requests against per-tier daily caps.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
	"github.com/kailas-cloud/silverline/internal/metrics"
)

const lockStripes = 64

// Decision is the outcome of an admitted request.
type Decision struct {
	// Record is the user's record after the increment. Zero when FailOpen.
	Record domusage.Record
	// Cost is the estimate added for this request.
	Cost cost.Micros
	// FailOpen is set when tracking failed and the request was let through untracked.
	FailOpen bool
}

// Gate checks tier caps and records consumption.
// Check and increment for one user are serialized within the process.
type Gate struct {
	store  Store
	policy tier.Policy
	costs  cost.Table
	now    func() time.Time
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

// New creates a Gate.
func New(store Store, policy tier.Policy, costs cost.Table, logger *zap.Logger) *Gate {
	return &Gate{
		store:  store,
		policy: policy,
		costs:  costs,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source used to pick "today".
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Admit decides whether userID on tier t may make a request of kind.
//
// It returns domain.ErrQuotaExceeded (as *domain.QuotaError) or
// domain.ErrFeatureNotAvailable for denials. Any other fault, including a
// panic in the store, is logged and the request is admitted untracked.
func (g *Gate) Admit(ctx context.Context, userID string, t tier.Tier, kind domusage.Kind) (dec Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			dec, err = g.failOpen(t, kind, fmt.Errorf("panic: %v: %w", r, domain.ErrUsageTracking))
		}
	}()

	if !kind.Valid() {
		return g.failOpen(t, kind, fmt.Errorf("unknown request kind %q: %w", kind, domain.ErrUsageTracking))
	}

	mu := g.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	day := domusage.DayOf(g.now())
	rec, err := g.store.GetOrCreate(ctx, userID, day)
	if err != nil {
		return g.failOpen(t, kind, err)
	}

	if err := g.check(rec, g.policy.Limits(t), kind); err != nil {
		g.reject(userID, t, kind, err)
		return Decision{Record: rec}, err
	}

	c := domusage.EstimateCost(g.costs, kind, g.policy.Features(t).AdvancedModel)
	updated, err := g.store.Increment(ctx, userID, day, kind, c)
	if err != nil {
		return g.failOpen(t, kind, err)
	}

	metrics.QuotaDecisionsTotal.WithLabelValues(string(t), string(kind), metrics.DecisionAllowed).Inc()
	metrics.EstimatedCostTotal.WithLabelValues(string(t), string(kind)).Add(c.Units())

	return Decision{Record: updated, Cost: c}, nil
}

func (g *Gate) check(rec domusage.Record, limits tier.Limits, kind domusage.Kind) error {
	switch {
	case kind.IsMessage():
		used := rec.Messages()
		if !limits.MaxMessagesPerDay.Allows(used) {
			n, _ := limits.MaxMessagesPerDay.Value()
			return domain.NewQuotaExceeded(n, used)
		}
	case kind.IsImage():
		l := limits.MaxImageAnalysisPerDay
		if l.Disabled() {
			return fmt.Errorf("%s: %w", kind, domain.ErrFeatureNotAvailable)
		}
		used := rec.ImageAnalyses()
		if !l.Allows(used) {
			n, _ := l.Value()
			return domain.NewQuotaExceeded(n, used)
		}
	}
	return nil
}

func (g *Gate) reject(userID string, t tier.Tier, kind domusage.Kind, err error) {
	decision := metrics.DecisionQuotaExceeded
	if errors.Is(err, domain.ErrFeatureNotAvailable) {
		decision = metrics.DecisionFeatureDisabled
	}
	metrics.QuotaDecisionsTotal.WithLabelValues(string(t), string(kind), decision).Inc()

	g.logger.Info("Request rejected by quota gate",
		zap.String("user_id", userID),
		zap.String("tier", string(t)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}

func (g *Gate) failOpen(t tier.Tier, kind domusage.Kind, err error) (Decision, error) {
	metrics.UsageTrackingErrorsTotal.Inc()
	metrics.QuotaDecisionsTotal.WithLabelValues(string(t), string(kind), metrics.DecisionFailOpen).Inc()

	g.logger.Warn("Usage tracking failed, admitting request",
		zap.String("tier", string(t)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return Decision{FailOpen: true}, nil
}

func (g *Gate) lockFor(userID string) *sync.Mutex {
	return &g.locks[xxhash.Sum64String(userID)%lockStripes]
}

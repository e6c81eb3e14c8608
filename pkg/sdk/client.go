package silverline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/silverline/internal/db/redis"
	"github.com/kailas-cloud/silverline/internal/domain"
	"github.com/kailas-cloud/silverline/internal/domain/tier"
	domusage "github.com/kailas-cloud/silverline/internal/domain/usage"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
	repousage "github.com/kailas-cloud/silverline/internal/repository/usage"
	openaiTransport "github.com/kailas-cloud/silverline/internal/transport/openai"
	assistantuc "github.com/kailas-cloud/silverline/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/silverline/internal/usecase/health"
	quotauc "github.com/kailas-cloud/silverline/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/silverline/internal/usecase/usage"
)

const (
	driverMemory = "memory"
	driverValkey = "valkey"
	driverRedis  = "redis"

	defaultReadinessTimeout = 10 * time.Second
	defaultRetention        = 48 * time.Hour
	defaultKeyPrefix        = "silverline:"
	defaultBasicModel       = "gpt-4o-mini"
	defaultAdvancedModel    = "gpt-4o"
	janitorInterval         = time.Hour
)

// Internal interfaces, replaced in tests.
type gateUseCase interface {
	Admit(ctx context.Context, userID string, t tier.Tier, kind domusage.Kind) (quotauc.Decision, error)
}

type assistantUseCase interface {
	Chat(ctx context.Context, caller domain.Caller, message string, history []domain.Message) (assistantuc.ChatResult, error)
	Voice(ctx context.Context, caller domain.Caller, audio domain.Audio, history []domain.Message) (assistantuc.VoiceResult, error)
	AnalyzeScreenshot(
		ctx context.Context, caller domain.Caller, img domain.Image, question string,
	) (assistantuc.ScreenshotResult, error)
	CheckScam(ctx context.Context, caller domain.Caller, text string, img *domain.Image) (assistantuc.ScamResult, error)
}

type usageUseCase interface {
	Snapshot(ctx context.Context, userID string, t tier.Tier) (domusage.Snapshot, error)
	Report(ctx context.Context, userID string, t tier.Tier, day domusage.Day) (usageuc.Report, error)
}

// usageStore is what the gate, the usage service and Ping need from a store.
type usageStore interface {
	quotauc.Store
	usageuc.RecordReader
	Ping(ctx context.Context) error
}

// Client is the silverline SDK entry point.
type Client struct {
	store     usageStore
	gate      gateUseCase
	assistant assistantUseCase
	usageSvc  usageUseCase
	healthSvc healthUseCase
	policy    tier.Policy
	obs       *observer
	closers   []func()
}

// New creates a Client. With WithValkey or WithRedis it connects to the
// database, using ctx for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:    driverMemory,
		keyPrefix: defaultKeyPrefix,
		retention: defaultRetention,
		now:       time.Now,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	llm, err := createLLM(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, closers, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return wireClient(store, llm, cfg, obs, closers), nil
}

func createLLM(cfg *clientConfig) (domain.LLM, error) {
	if cfg.llm != nil {
		return &llmAdapter{inner: cfg.llm}, nil
	}
	if cfg.apiKey == "" {
		return nil, errors.New("silverline: model provider required (use WithOpenAI or WithLLM)")
	}
	return openaiTransport.NewClient(&openaiTransport.Config{
		APIKey:  cfg.apiKey,
		BaseURL: cfg.baseURL,
		Logger:  zap.NewNop(),
	}), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (usageStore, []func(), error) {
	switch cfg.driver {
	case driverMemory:
		mem := repousage.NewMemory()
		janitorCtx, cancel := context.WithCancel(context.Background())
		go mem.RunJanitor(janitorCtx, janitorInterval, cfg.retention, cfg.now, zap.NewNop())
		return mem, []func(){cancel}, nil

	case driverValkey, driverRedis:
		if len(cfg.addrs) == 0 {
			return nil, nil, fmt.Errorf("silverline: %s address required", cfg.driver)
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("silverline: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("silverline: database not ready: %w", err)
		}
		return &redisUsageStore{
			Redis:  repousage.NewRedis(s, cfg.keyPrefix, cfg.retention),
			pinger: s,
		}, []func(){s.Close}, nil

	default:
		return nil, nil, fmt.Errorf("silverline: unknown driver %q", cfg.driver)
	}
}

func wireClient(store usageStore, llm domain.LLM, cfg *clientConfig, obs *observer, closers []func()) *Client {
	policy := buildPolicy(cfg.limits)

	basic := cfg.basicModel
	if basic == "" {
		basic = defaultBasicModel
	}
	advanced := cfg.advancedModel
	if advanced == "" {
		advanced = defaultAdvancedModel
	}

	nop := zap.NewNop()
	assistantSvc := assistantuc.New(llm, policy, assistantuc.Config{
		BasicModel:      basic,
		AdvancedModel:   advanced,
		VisionModel:     cfg.visionModel,
		EmergencyNumber: cfg.emergency,
	}, nop)
	gate := quotauc.New(store, policy, cost.DefaultTable(), nop).WithClock(cfg.now)
	usageSvc := usageuc.New(store, policy, nop).WithClock(cfg.now)

	// Pass a nil interface, not a typed nil, when the provider has no health check.
	var checker healthuc.LLMChecker
	if hc, ok := llm.(domain.HealthChecker); ok {
		checker = hc
	} else if hc, ok := cfg.llm.(domain.HealthChecker); ok {
		checker = hc
	}

	return &Client{
		store:     store,
		gate:      gate,
		assistant: assistantSvc,
		usageSvc:  usageSvc,
		healthSvc: healthuc.New(store, checker),
		policy:    policy,
		obs:       obs,
		closers:   closers,
	}
}

func buildPolicy(overrides map[Tier]tierLimits) tier.Policy {
	p := tier.DefaultPolicy()
	for t, l := range overrides {
		if !tier.Known(tier.Tier(t)) {
			continue
		}
		p = p.WithLimits(tier.Tier(t), tier.Limits{
			MaxMessagesPerDay:      tier.LimitFromInt(l.messages),
			MaxImageAnalysisPerDay: tier.LimitFromInt(l.images),
		})
	}
	return p
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Ping checks usage store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// redisUsageStore pairs the hash-backed usage store with its connection.
type redisUsageStore struct {
	*repousage.Redis
	pinger interface{ Ping(ctx context.Context) error }
}

func (s *redisUsageStore) Ping(ctx context.Context) error { return s.pinger.Ping(ctx) }

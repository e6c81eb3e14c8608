package silverline

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type tierLimits struct {
	messages int
	images   int
}

type clientConfig struct {
	driver    string // "memory", "valkey" or "redis"
	addrs     []string
	password  string
	keyPrefix string
	retention time.Duration

	llm           LLM
	apiKey        string
	baseURL       string
	basicModel    string
	advancedModel string
	visionModel   string
	emergency     string

	limits map[Tier]tierLimits

	logger     *slog.Logger
	metricsReg prometheus.Registerer
	now        func() time.Time
}

// WithValkey stores usage counters in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores usage counters in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix for Valkey/Redis usage hashes.
// Default: "silverline:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithRetention sets how long usage records are kept. Default: 48h.
func WithRetention(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retention = d
	})
}

// WithOpenAI uses an OpenAI-compatible API as the model provider.
// An empty baseURL means the public OpenAI endpoint.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithLLM sets a custom model provider. It takes precedence over WithOpenAI.
func WithLLM(l LLM) Option {
	return optionFunc(func(c *clientConfig) {
		c.llm = l
	})
}

// WithModels sets the model names. Empty values keep the defaults.
func WithModels(basic, advanced, vision string) Option {
	return optionFunc(func(c *clientConfig) {
		c.basicModel = basic
		c.advancedModel = advanced
		c.visionModel = vision
	})
}

// WithEmergencyNumber sets the number suggested when an emergency is detected.
// Default: 911.
func WithEmergencyNumber(number string) Option {
	return optionFunc(func(c *clientConfig) {
		c.emergency = number
	})
}

// WithTierLimits overrides a tier's daily caps. -1 means unlimited.
func WithTierLimits(t Tier, messagesPerDay, imageAnalysesPerDay int) Option {
	return optionFunc(func(c *clientConfig) {
		if c.limits == nil {
			c.limits = make(map[Tier]tierLimits)
		}
		c.limits[t] = tierLimits{messages: messagesPerDay, images: imageAnalysesPerDay}
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

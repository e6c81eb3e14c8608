package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

// Usage store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config holds the silverline gateway configuration.
type Config struct {
	HTTP    HTTPConfig                  `yaml:"http"`
	Auth    AuthConfig                  `yaml:"auth"`
	Logging LoggingConfig               `yaml:"logging"`
	LLM     LLMConfig                   `yaml:"llm"`
	Usage   UsageConfig                 `yaml:"usage"`
	Tiers   map[string]TierLimitsConfig `yaml:"tiers"`
	Costs   CostsConfig                 `yaml:"costs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty APIKeys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int64 `yaml:"max_upload_mb"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	BasicModel         string `yaml:"basic_model"`
	AdvancedModel      string `yaml:"advanced_model"`
	VisionModel        string `yaml:"vision_model"`
	TranscriptionModel string `yaml:"transcription_model"`
	TimeoutSec         int    `yaml:"timeout_sec"`
	MaxHistory         int    `yaml:"max_history"`
	MaxTokens          int    `yaml:"max_tokens"`
	EmergencyNumber    string `yaml:"emergency_number"`
}

// UsageConfig holds usage store settings.
type UsageConfig struct {
	Driver             string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs              []string `yaml:"addrs"`
	Password           string   `yaml:"password"`
	KeyPrefix          string   `yaml:"key_prefix"`
	RetentionDays      int      `yaml:"retention_days"`
	JanitorIntervalSec int      `yaml:"janitor_interval_sec"`
	ReadinessTimeout   int      `yaml:"readiness_timeout_sec"`
}

// TierLimitsConfig overrides a tier's daily caps. -1 means unlimited, nil keeps the default.
type TierLimitsConfig struct {
	MaxMessagesPerDay      *int `yaml:"max_messages_per_day"`
	MaxImageAnalysisPerDay *int `yaml:"max_image_analysis_per_day"`
}

// CostsConfig overrides per-request cost estimates, in currency units. 0 keeps the default.
type CostsConfig struct {
	TextBasic    float64 `yaml:"text_basic"`
	TextAdvanced float64 `yaml:"text_advanced"`
	Voice        float64 `yaml:"voice"`
	Image        float64 `yaml:"image"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads variables from filename. A missing file is not an error.
func loadDotEnv(filename string) error {
	err := godotenv.Load(filename)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", filename, err)
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 10
	}
	if c.LLM.BasicModel == "" {
		c.LLM.BasicModel = "gpt-4o-mini"
	}
	if c.LLM.AdvancedModel == "" {
		c.LLM.AdvancedModel = "gpt-4o"
	}
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = c.LLM.AdvancedModel
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.LLM.MaxHistory <= 0 {
		c.LLM.MaxHistory = 10
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 500
	}
	if c.Usage.Driver == "" {
		c.Usage.Driver = DriverMemory
	}
	if c.Usage.KeyPrefix == "" {
		c.Usage.KeyPrefix = "silverline:"
	}
	if c.Usage.RetentionDays <= 0 {
		c.Usage.RetentionDays = 2
	}
	if c.Usage.JanitorIntervalSec <= 0 {
		c.Usage.JanitorIntervalSec = 3600
	}
	if c.Usage.ReadinessTimeout <= 0 {
		c.Usage.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Usage.Driver {
	case DriverMemory:
	case DriverRedis, DriverValkey:
		if len(c.Usage.Addrs) == 0 {
			return fmt.Errorf("usage.addrs is required for driver %q", c.Usage.Driver)
		}
	default:
		return fmt.Errorf("usage.driver must be one of memory, redis, valkey, got %q", c.Usage.Driver)
	}

	for name, l := range c.Tiers {
		if !tier.Known(tier.Tier(name)) {
			return fmt.Errorf("tiers.%s: unknown tier", name)
		}
		if l.MaxMessagesPerDay != nil && *l.MaxMessagesPerDay < -1 {
			return fmt.Errorf("tiers.%s.max_messages_per_day must be -1 or greater, got %d",
				name, *l.MaxMessagesPerDay)
		}
		if l.MaxImageAnalysisPerDay != nil && *l.MaxImageAnalysisPerDay < -1 {
			return fmt.Errorf("tiers.%s.max_image_analysis_per_day must be -1 or greater, got %d",
				name, *l.MaxImageAnalysisPerDay)
		}
	}

	costs := map[string]float64{
		"text_basic":    c.Costs.TextBasic,
		"text_advanced": c.Costs.TextAdvanced,
		"voice":         c.Costs.Voice,
		"image":         c.Costs.Image,
	}
	for name, v := range costs {
		if v < 0 {
			return fmt.Errorf("costs.%s must not be negative, got %v", name, v)
		}
	}
	return nil
}

// Policy returns the default tier policy with configured overrides applied.
func (c *Config) Policy() tier.Policy {
	p := tier.DefaultPolicy()
	for name, override := range c.Tiers {
		t := tier.Tier(name)
		limits := p.Limits(t)
		if override.MaxMessagesPerDay != nil {
			limits.MaxMessagesPerDay = tier.LimitFromInt(*override.MaxMessagesPerDay)
		}
		if override.MaxImageAnalysisPerDay != nil {
			limits.MaxImageAnalysisPerDay = tier.LimitFromInt(*override.MaxImageAnalysisPerDay)
		}
		p = p.WithLimits(t, limits)
	}
	return p
}

// CostTable returns the default cost table with configured overrides applied.
func (c *Config) CostTable() cost.Table {
	t := cost.DefaultTable()
	if c.Costs.TextBasic > 0 {
		t.TextBasic = cost.FromUnits(c.Costs.TextBasic)
	}
	if c.Costs.TextAdvanced > 0 {
		t.TextAdvanced = cost.FromUnits(c.Costs.TextAdvanced)
	}
	if c.Costs.Voice > 0 {
		t.Voice = cost.FromUnits(c.Costs.Voice)
	}
	if c.Costs.Image > 0 {
		t.Image = cost.FromUnits(c.Costs.Image)
	}
	return t
}

// Retention is how long usage records are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Usage.RetentionDays) * 24 * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

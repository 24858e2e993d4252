// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all runtime configuration for the recommendation service.
type Config struct {
	Port        string `env:"PORT, default=8083" validate:"required"`
	GRPCPort    string `env:"GRPC_PORT, default=9093" validate:"required"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required"`
	RedisURL    string `env:"REDIS_URL" validate:"required_if=CacheBackend redis"`

	CacheBackend       string `env:"CACHE_BACKEND, default=redis" validate:"oneof=redis memory"`
	CacheDurationHours int    `env:"CACHE_DURATION_HOURS, default=72" validate:"min=1"`
	BatchChunkSize     int    `env:"BATCH_CHUNK_SIZE, default=25" validate:"min=1,max=500"`
	SweepIntervalHours int    `env:"SWEEP_INTERVAL_HOURS, default=6" validate:"min=1"`
	OverflowTTLHours   int    `env:"OVERFLOW_TTL_HOURS, default=48" validate:"min=1"`

	// Live fetch
	ScraperBaseURL         string `env:"SCRAPER_BASE_URL, default=https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search" validate:"url"`
	MaxRetries             int    `env:"MAX_RETRIES, default=3" validate:"min=0,max=10"`
	RequestTimeoutSeconds  int    `env:"REQUEST_TIMEOUT_SECONDS, default=15" validate:"min=1"`
	MinResultsBeforeScrape int    `env:"MIN_RESULTS_BEFORE_SCRAPE, default=20" validate:"min=0"`
	ItemDelayMS            int    `env:"ITEM_DELAY_MS, default=500" validate:"min=0"`
	PageDelayMS            int    `env:"PAGE_DELAY_MS, default=2000" validate:"min=0"`

	// RecommendTimeoutSeconds bounds one recommendation request. It must stay
	// under the 60s HTTP write timeout.
	RecommendTimeoutSeconds int `env:"RECOMMEND_TIMEOUT_SECONDS, default=45" validate:"min=1,max=55"`

	// Ranking
	ScoreWeightContent  float64 `env:"SCORE_WEIGHT_CONTENT, default=0.4" validate:"min=0"`
	ScoreWeightSkill    float64 `env:"SCORE_WEIGHT_SKILL, default=0.3" validate:"min=0"`
	ScoreWeightHistory  float64 `env:"SCORE_WEIGHT_HISTORY, default=0.3" validate:"min=0"`
	ScoreWeightPriority float64 `env:"SCORE_WEIGHT_PRIORITY, default=0.2" validate:"min=0"`

	LogLevel     string `env:"LOG_LEVEL, default=info"`
	KeywordsFile string `env:"KEYWORDS_FILE"`
}

// Override adjusts a Config after the environment is read and before it
// is validated. Command-line flags use it.
type Override func(*Config)

// Load reads environment variables, applies overrides in order and returns a
// validated Config.
func Load(ctx context.Context, overrides ...Override) (*Config, error) {
	return load(ctx, envconfig.OsLookuper(), overrides...)
}

func load(ctx context.Context, lookuper envconfig.Lookuper, overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports the offending env fields.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
}

func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheDurationHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

func (c *Config) OverflowTTL() time.Duration {
	return time.Duration(c.OverflowTTLHours) * time.Hour
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) RecommendTimeout() time.Duration {
	return time.Duration(c.RecommendTimeoutSeconds) * time.Second
}

func (c *Config) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMS) * time.Millisecond
}

func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

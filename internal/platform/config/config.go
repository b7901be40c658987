package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"clipay/contexts/finance-core/payout-engine/domain/services"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"clipay"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	SQLitePath   string   `env:"SQLITE_PATH"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	PayoutAnchorWeekday   string        `env:"PAYOUT_ANCHOR_WEEKDAY" envDefault:"monday"`
	PayoutTimeZone        string        `env:"PAYOUT_TIMEZONE" envDefault:"UTC"`
	PayoutRatePolicy      string        `env:"PAYOUT_RATE_POLICY" envDefault:"original_span"`
	PayoutCommitTimeout   time.Duration `env:"PAYOUT_COMMIT_TIMEOUT" envDefault:"10s"`
	PayoutBulkConcurrency int           `env:"PAYOUT_BULK_CONCURRENCY" envDefault:"4"`

	ScraperBaseURL     string        `env:"SCRAPER_BASE_URL"`
	ScraperTimeout     time.Duration `env:"SCRAPER_TIMEOUT" envDefault:"30s"`
	ViewRefreshRate    float64       `env:"VIEW_REFRESH_RATE" envDefault:"0.5"`
	ViewRefreshBatch   int           `env:"VIEW_REFRESH_BATCH" envDefault:"5"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"30s"`

	EnableScheduledPayouts bool `env:"ENABLE_SCHEDULED_PAYOUTS" envDefault:"true"`
	EnableLifecycleSweep   bool `env:"ENABLE_LIFECYCLE_SWEEP" envDefault:"true"`
	EnableViewRefresh      bool `env:"ENABLE_VIEW_REFRESH" envDefault:"false"`
}

var ErrInvalidConfig = errors.New("invalid config")

func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses an explicit environment instead of the process one.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := services.ParseWeekday(c.PayoutAnchorWeekday); !ok {
		return fmt.Errorf("%w: PAYOUT_ANCHOR_WEEKDAY %q", ErrInvalidConfig, c.PayoutAnchorWeekday)
	}
	if _, err := time.LoadLocation(c.PayoutTimeZone); err != nil {
		return fmt.Errorf("%w: PAYOUT_TIMEZONE %q: %w", ErrInvalidConfig, c.PayoutTimeZone, err)
	}
	if !services.IsKnownRatePolicy(services.RatePolicy(c.PayoutRatePolicy)) {
		return fmt.Errorf("%w: PAYOUT_RATE_POLICY %q", ErrInvalidConfig, c.PayoutRatePolicy)
	}
	if c.PayoutCommitTimeout <= 0 {
		return fmt.Errorf("%w: PAYOUT_COMMIT_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.PayoutBulkConcurrency <= 0 {
		return fmt.Errorf("%w: PAYOUT_BULK_CONCURRENCY must be positive", ErrInvalidConfig)
	}
	if c.ViewRefreshRate <= 0 {
		return fmt.Errorf("%w: VIEW_REFRESH_RATE must be positive", ErrInvalidConfig)
	}
	if c.WorkerPollInterval <= 0 {
		return fmt.Errorf("%w: WORKER_POLL_INTERVAL must be positive", ErrInvalidConfig)
	}
	if c.EnableViewRefresh && strings.TrimSpace(c.ScraperBaseURL) == "" {
		return fmt.Errorf("%w: SCRAPER_BASE_URL is required when ENABLE_VIEW_REFRESH is set", ErrInvalidConfig)
	}
	return nil
}

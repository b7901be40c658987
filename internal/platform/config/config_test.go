package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "clipay", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "monday", cfg.PayoutAnchorWeekday)
	assert.Equal(t, "original_span", cfg.PayoutRatePolicy)
	assert.Equal(t, 10*time.Second, cfg.PayoutCommitTimeout)
	assert.Equal(t, 5, cfg.ViewRefreshBatch)
	assert.True(t, cfg.EnableScheduledPayouts)
	assert.False(t, cfg.EnableViewRefresh)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"KAFKA_BROKERS":           "a:9092, b:9092",
		"PAYOUT_ANCHOR_WEEKDAY":   "Friday",
		"PAYOUT_TIMEZONE":         "America/Sao_Paulo",
		"PAYOUT_RATE_POLICY":      "remaining_days",
		"PAYOUT_COMMIT_TIMEOUT":   "2s",
		"ENABLE_VIEW_REFRESH":     "false",
		"PAYOUT_BULK_CONCURRENCY": "8",
	})
	require.NoError(t, err)

	assert.Len(t, cfg.KafkaBrokers, 2)
	assert.Equal(t, "Friday", cfg.PayoutAnchorWeekday)
	assert.Equal(t, "remaining_days", cfg.PayoutRatePolicy)
	assert.Equal(t, 2*time.Second, cfg.PayoutCommitTimeout)
	assert.Equal(t, 8, cfg.PayoutBulkConcurrency)
	assert.False(t, cfg.EnableViewRefresh)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"weekday":  {"PAYOUT_ANCHOR_WEEKDAY": "someday"},
		"zone":     {"PAYOUT_TIMEZONE": "Mars/Olympus"},
		"policy":   {"PAYOUT_RATE_POLICY": "linear"},
		"timeout":  {"PAYOUT_COMMIT_TIMEOUT": "0s"},
		"parallel": {"PAYOUT_BULK_CONCURRENCY": "0"},
		"scraper":  {"ENABLE_VIEW_REFRESH": "true"},
	}
	for name, environment := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environment)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoadFromViewRefreshWithScraper(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ENABLE_VIEW_REFRESH": "true",
		"SCRAPER_BASE_URL":    "http://scraper:5000",
	})
	require.NoError(t, err)
	assert.True(t, cfg.EnableViewRefresh)
	assert.Equal(t, "http://scraper:5000", cfg.ScraperBaseURL)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFallbackRates(t *testing.T) {
	rates, err := parseFallbackRates("EURUSD=1.08, gbpusd=1.27 ,CHFUSD=1.13")
	require.NoError(t, err)
	assert.Equal(t, 1.08, rates["EURUSD"])
	assert.Equal(t, 1.27, rates["GBPUSD"])
	assert.Equal(t, 1.13, rates["CHFUSD"])
}

func TestParseFallbackRatesEmpty(t *testing.T) {
	rates, err := parseFallbackRates("  ")
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestParseFallbackRatesRejectsMalformedEntries(t *testing.T) {
	cases := []string{
		"EURUSD",          // no rate
		"EUR=1.08",        // not a 6-letter pair
		"EURUSD=abc",      // non-numeric rate
		"EURUSD=0",        // non-positive rate
		"EURUSD=-1.08",    // negative rate
	}
	for _, raw := range cases {
		_, err := parseFallbackRates(raw)
		assert.Error(t, err, "input %q should be rejected", raw)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Greater(t, cfg.RateCacheTTL.Seconds(), 0.0)
	assert.Greater(t, cfg.PriceCacheTTL.Seconds(), 0.0)
	assert.Greater(t, cfg.MonitorInterval.Seconds(), 0.0)
	assert.Greater(t, cfg.WorkerPoolSize, 0)
	assert.NotEmpty(t, cfg.PrimaryRatesURL)
	assert.NotEmpty(t, cfg.SecondaryRatesURL)
	assert.NotEmpty(t, cfg.FallbackRates)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL_SECONDS", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("MONITOR_INTERVAL_SECONDS", "not-a-number")
	_, err = LoadConfig()
	require.Error(t, err)
}

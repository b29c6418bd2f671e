package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
market_data:
  finnhub:
    api_key: test-key
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, ProviderFinnhub, c.MarketData.Provider)
	assert.Equal(t, "https://finnhub.io/api/v1", c.MarketData.Finnhub.BaseURL)
	assert.Equal(t, "AAPL", c.Analysis.DefaultSymbol)
	assert.Equal(t, "2y", c.Analysis.DefaultPeriod)
	assert.Equal(t, 3, c.Analysis.DefaultRegimes)
	assert.Equal(t, 1000, c.Analysis.MaxIter)
	assert.Equal(t, 0.01, c.Analysis.Tolerance)
	assert.Equal(t, int64(42), c.Analysis.Seed)
	assert.Equal(t, EstimatorLocal, c.Analysis.Estimator)
	assert.Equal(t, 15*time.Minute, c.Cache.TTL)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.False(t, c.Kafka.Enabled)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, 5*time.Minute, c.Cache.MemoryCleanup)
	assert.Empty(t, c.Server.WSAllowedOrigins)
}

func TestShippedConfig_OptionalBackendsOff(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	c, err := Parse(data)
	require.NoError(t, err)
	assert.False(t, c.Cache.Enabled, "price cache must be opt-in")
	assert.False(t, c.ClickHouse.Enabled)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, 5*time.Minute, c.Cache.MemoryCleanup)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
metrics:
  enabled: false
market_data:
  provider: eodhd
  eodhd:
    api_key: eod-key
analysis:
  default_regimes: 4
  tol: 0.001
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, ProviderEODHD, c.MarketData.Provider)
	assert.Equal(t, 4, c.Analysis.DefaultRegimes)
	assert.Equal(t, 0.001, c.Analysis.Tolerance)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing api key": `
market_data:
  provider: finnhub
`,
		"regimes out of range": `
market_data:
  finnhub: {api_key: k}
analysis:
  default_regimes: 7
`,
		"unknown provider": `
market_data:
  provider: yahoo
`,
		"remote without url": `
market_data:
  finnhub: {api_key: k}
analysis:
  estimator: remote
`,
		"collector without kafka": `
market_data:
  finnhub: {api_key: k}
logging:
  collect_topic: logs
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	path := writeConfig(t, `
market_data:
  provider: finnhub
`)
	t.Setenv("FINNHUB_API_KEY", "from-env")
	t.Setenv("PORT", "7070")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.MarketData.Finnhub.APIKey)
	assert.Equal(t, 7070, c.Server.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

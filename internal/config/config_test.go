package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "10", cfg.TaxRatePercent.String())
	assert.Equal(t, 30*time.Second, cfg.CacheRefreshInterval)
	assert.Equal(t, ShiftPolicyWarn, cfg.ShiftPolicy)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30, cfg.LoginRatePerMinute)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("TAX_RATE_PERCENT", "8.5")
	t.Setenv("SHIFT_POLICY", "require")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EVENT_BROKER", "kafka")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8.5", cfg.TaxRatePercent.String())
	assert.Equal(t, ShiftPolicyRequire, cfg.ShiftPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.EventBroker)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"TAX_RATE_PERCENT":       "120",
		"SHIFT_POLICY":           "sometimes",
		"SEQUENCE_BACKEND":       "etcd",
		"EVENT_BROKER":           "nats",
		"CACHE_REFRESH_INTERVAL": "soon",
		"DATABASE_DRIVER":        "oracle",
		"LOGIN_RATE_PER_MINUTE":  "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIV1Str)
	assert.Equal(t, 10*time.Second, cfg.EMRTimeout)
	assert.Equal(t, 15*time.Second, cfg.EMRAITimeout)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "N-Alert", cfg.TermiiSenderID)
	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.IsDev())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "development")
	t.Setenv("API_V1_STR", "api/v2/")
	t.Setenv("EMR_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "rp-1:9092, rp-2:9092,")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "/api/v2", cfg.APIV1Str)
	assert.Equal(t, 3*time.Second, cfg.EMRTimeout)
	assert.Equal(t, []string{"rp-1:9092", "rp-2:9092"}, cfg.Brokers())
	assert.True(t, cfg.TracingEnabled)
}

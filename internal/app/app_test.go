package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamasafe/go-mamasafe/internal/audit"
	"github.com/mamasafe/go-mamasafe/internal/config"
	"github.com/mamasafe/go-mamasafe/internal/risk"
	"github.com/mamasafe/go-mamasafe/internal/safety"
)

func TestNew_OfflineDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.DatabaseURL = ""
	cfg.RedisURL = ""
	cfg.GeminiAPIKey = ""
	cfg.DorraAPIURL = "http://127.0.0.1:1"

	a, err := New(context.Background(), cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pool)
	assert.Nil(t, a.Generator)
	assert.IsType(t, &audit.MemoryStore{}, a.Audit)

	names := []string{}
	for _, s := range a.Breakers.GetHealthStatus() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{BreakerEMR, BreakerGemini, BreakerTermii}, names)

	result := a.Safety.CheckMedication(context.Background(), safety.CheckInput{DrugName: "ibuprofen", GestationalWeek: 30})
	assert.Equal(t, risk.Contraindicated, result.Category)
}

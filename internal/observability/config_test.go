package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/realtyledger/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadConfig(config.Config{Environment: "production"})
	assert.Equal(t, "realtyledger", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigDebugInDevelopment(t *testing.T) {
	t.Setenv("DEPLOYMENT_ENV", "")
	cfg := LoadConfig(config.Config{AppName: "ledger", Environment: "development", OTLPEndpoint: "collector:4317"})
	assert.Equal(t, "ledger", cfg.ServiceName)
	assert.True(t, cfg.OtelEnabled)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigRequestLogSettings(t *testing.T) {
	t.Setenv("LOG_QUIET_ROUTES", " /metrics , ,/admin/reconciliation")
	t.Setenv("LOG_SLOW_REQUEST_MS", "250")
	t.Setenv("LOG_SAMPLING_INITIAL", "-3")

	cfg := LoadConfig(config.Config{})
	assert.Equal(t, []string{"/metrics", "/admin/reconciliation"}, cfg.QuietRoutes)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowRequest)
	assert.Equal(t, 100, cfg.LogSamplingInitial)
}

func TestLoadConfigQuietRoutesDefault(t *testing.T) {
	t.Setenv("LOG_QUIET_ROUTES", "")
	t.Setenv("LOG_SLOW_REQUEST_MS", "")

	cfg := LoadConfig(config.Config{})
	assert.Equal(t, []string{"/metrics", "/health"}, cfg.QuietRoutes)
	assert.Equal(t, time.Second, cfg.SlowRequest)
}

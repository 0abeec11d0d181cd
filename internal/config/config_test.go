package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 7, cfg.Daily.RepeatAvoidDays)
	assert.Equal(t, 60, cfg.Daily.KnownExclusionDays)
	assert.Equal(t, 50, cfg.Daily.CandidatePoolSize)
	assert.Equal(t, 24*time.Hour, cfg.Daily.HintTTL)
	assert.True(t, cfg.OpenTelemetry.EnableTracing)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/dailyquiz_test")
	t.Setenv("DAILY_REPEAT_AVOID_DAYS", "14")
	t.Setenv("OTEL_ENABLE_TRACING", "false")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/dailyquiz_test", cfg.Database.URL)
	assert.Equal(t, 14, cfg.Daily.RepeatAvoidDays)
	assert.False(t, cfg.OpenTelemetry.EnableTracing)
}

func TestNewConfig_IgnoresMalformedEnvValues(t *testing.T) {
	t.Setenv("DAILY_REPEAT_AVOID_DAYS", "not-a-number")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Daily.RepeatAvoidDays)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/fatigue"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shiftsync", cfg.App.Name)
	assert.Equal(t, 7012, cfg.App.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Redis.RunTTL)
	assert.Equal(t, "artifacts/attrition_model.json", cfg.Model.ArtifactPath)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, fatigue.DefaultWeights(), cfg.Fatigue.Weights())
	assert.Equal(t, 75.0, cfg.Fatigue.CriticalThreshold)

	p, err := cfg.Optimizer.ToPolicy()
	require.NoError(t, err)
	assert.Equal(t, optimizer.StandardPolicy(), p)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_RUN_TTL", "2h")
	t.Setenv("ENGINE_WORKERS", "16")
	t.Setenv("FATIGUE_NIGHT_WEIGHT", "30")
	t.Setenv("OPTIMIZER_POLICY", "advanced")
	t.Setenv("OPTIMIZER_PROBABILITY_THRESHOLD", "0.45")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.App.Port)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Contains(t, cfg.Database.DSN(), "host=pg.internal")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 2*time.Hour, cfg.Redis.RunTTL)
	assert.Equal(t, 16, cfg.Engine.Workers)
	assert.Equal(t, 30.0, cfg.Fatigue.Weights().NightWeight)

	p, err := cfg.Optimizer.ToPolicy()
	require.NoError(t, err)
	assert.Equal(t, optimizer.PolicyAdvanced, p.Kind)
	assert.Equal(t, 0.45, p.ProbabilityThreshold)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		code  errors.Code
	}{
		{"端口无法解析", "APP_PORT", "http", errors.CodeInvalidInput},
		{"端口越界", "APP_PORT", "70000", errors.CodeValidationFail},
		{"工作协程为零", "ENGINE_WORKERS", "0", errors.CodeValidationFail},
		{"未知策略", "OPTIMIZER_POLICY", "greedy", errors.CodeValidationFail},
		{"阈值越界", "OPTIMIZER_PROBABILITY_THRESHOLD", "1.5", errors.CodeValidationFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "stdout", lc.Output)
}

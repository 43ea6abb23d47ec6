package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 4, cfg.Report.Concurrency)
	assert.False(t, cfg.Redis.Enabled)

	policy, err := cfg.Rounding.Policy()
	require.NoError(t, err)
	assert.True(t, policy.Precision.Equal(decimal.New(1, -3)))
	assert.Equal(t, entities.HalfUp, policy.Method)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	content := `
environment: production
company: ACME
database:
  driver: sqlite
  dsn: file::memory:
rounding:
  precision: "0.01"
  method: half-even
scheduler:
  interval: 1m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fuelrecon.yaml"), []byte(content), 0o644))
	t.Setenv("FUELRECON_COMPANY", "OTHER")
	t.Setenv("FUELRECON_REDIS_PORT", "6380")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "OTHER", cfg.Company)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)

	rc := cfg.RunContext()
	assert.Equal(t, "OTHER", rc.Company)
	assert.Equal(t, entities.HalfEven, rc.Rounding.Method)
	assert.True(t, rc.Rounding.Precision.Equal(decimal.New(1, -2)))
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"driver", "database:\n  driver: mysql\n", "database.driver must be sqlite or postgres"},
		{"precision", "rounding:\n  precision: abc\n", "invalid rounding.precision"},
		{"method", "rounding:\n  method: ceiling\n", "unknown rounding method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "fuelrecon.yaml"), []byte(tt.content), 0o644))
			_, err := LoadConfig(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

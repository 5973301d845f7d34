package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendPostgres, cfg.Backend.Kind)
	assert.Equal(t, "sensor_logs", cfg.Backend.ReadingsTable)
	assert.Equal(t, 15*time.Second, cfg.Redis.AveragesTTL)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 24, cfg.Dashboard.WindowHours)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AIRFLOW_BACKEND__KIND", BackendPostgREST)
	t.Setenv("AIRFLOW_POSTGREST__URL", "https://example.supabase.co")
	t.Setenv("AIRFLOW_POSTGREST__API_KEY", "anon")
	t.Setenv("AIRFLOW_DASHBOARD__WINDOW_HOURS", "6")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, BackendPostgREST, cfg.Backend.Kind)
	assert.Equal(t, "https://example.supabase.co", cfg.PostgREST.URL)
	assert.Equal(t, 6, cfg.Dashboard.WindowHours)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend.Kind = "mysql" },
			wantErr: "unknown backend",
		},
		{
			name: "postgrest without url",
			mutate: func(c *Config) {
				c.Backend.Kind = BackendPostgREST
				c.PostgREST.APIKey = "anon"
			},
			wantErr: "postgrest url is required",
		},
		{
			name:    "postgres without host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database host is required",
		},
		{
			name:    "negative window",
			mutate:  func(c *Config) { c.Dashboard.WindowHours = -1 },
			wantErr: "window hours",
		},
		{
			name:    "window too long",
			mutate:  func(c *Config) { c.Dashboard.WindowHours = 3000000 },
			wantErr: "window hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: PostgresConfig{Host: "localhost"},
				Backend:  BackendConfig{Kind: BackendPostgres, ReadingsTable: "sensor_logs"},
			}
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

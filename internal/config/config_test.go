package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty values are ignored by viper, so this masks any ambient settings.
	for _, key := range []string{"PORT", "LOG_LEVEL", "SCORE_BATCH_WINDOW", "RECONCILE_SCHEDULE", "VOTE_RATE_LIMIT", "DB_MAX_CONNS", "AUTO_MIGRATE", "ENVIRONMENT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ScoreBatchWindow)
	assert.Equal(t, "@hourly", cfg.ReconcileSchedule)
	assert.Equal(t, 30, cfg.VoteRateLimit)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.True(t, cfg.AutoMigrate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("SCORE_BATCH_WINDOW", "250ms")
	t.Setenv("VOTE_RATE_LIMIT", "0")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DatabaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.ScoreBatchWindow)
	assert.Equal(t, 0, cfg.VoteRateLimit)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "8080",
			DatabaseURL:       "postgres://localhost/x",
			ScoreBatchWindow:  time.Second,
			ReconcileSchedule: "0 * * * *",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"descriptor schedule", func(c *Config) { c.ReconcileSchedule = "@every 30m" }, false},
		{"empty schedule disables reconcile", func(c *Config) { c.ReconcileSchedule = "" }, false},
		{"bad schedule", func(c *Config) { c.ReconcileSchedule = "every hour" }, true},
		{"zero batch window", func(c *Config) { c.ScoreBatchWindow = 0 }, true},
		{"negative rate limit", func(c *Config) { c.VoteRateLimit = -1 }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"production without secret", func(c *Config) { c.Environment = "production" }, true},
		{"production with secret", func(c *Config) {
			c.Environment = "production"
			c.AuthJWTSecret = "s3cret"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("LEDGER_SINK", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("MONGODB_DB_NAME", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dealroom", cfg.MongoDB.DBName)
	assert.Equal(t, LedgerSinkNone, cfg.Ledger.Sink)
	assert.Equal(t, "Transactions", cfg.Ledger.Table)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.ExpirySchedule)
	assert.Equal(t, "*/10 * * * *", cfg.Scheduler.FinalizeSchedule)
}

func TestLoadFromEnvFile(t *testing.T) {
	keys := []string{"APP_PORT", "LEDGER_SINK", "AIRTABLE_API_KEY", "AIRTABLE_BASE_ID", "REDIS_DB"}
	for _, key := range keys {
		// godotenv never overrides variables that are already set.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nLEDGER_SINK=airtable\nAIRTABLE_API_KEY=key\nAIRTABLE_BASE_ID=app123\nREDIS_DB=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, LedgerSinkAirtable, cfg.Ledger.Sink)
	assert.Equal(t, "app123", cfg.Airtable.BaseID)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "REDIS_DB")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			MongoDB:   MongoDBConfig{URI: "mongodb://localhost", DBName: "dealroom"},
			Redis:     RedisConfig{Addr: "localhost:6379"},
			Ledger:    LedgerConfig{Sink: LedgerSinkNone, Table: "Transactions"},
			Scheduler: SchedulerConfig{ExpirySchedule: "@every 5m", FinalizeSchedule: "@every 10m"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT must be provided"},
		{name: "missing mongo uri", mutate: func(c *Config) { c.MongoDB.URI = "" }, wantErr: "MONGODB_URI must be provided"},
		{name: "missing redis", mutate: func(c *Config) { c.Redis.Addr = "" }, wantErr: "REDIS_ADDR must be provided"},
		{name: "unknown sink", mutate: func(c *Config) { c.Ledger.Sink = "kafka" }, wantErr: "LEDGER_SINK must be one of"},
		{
			name:    "sheets without credentials",
			mutate:  func(c *Config) { c.Ledger.Sink = LedgerSinkSheets },
			wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH must be provided",
		},
		{
			name: "airtable without base",
			mutate: func(c *Config) {
				c.Ledger.Sink = LedgerSinkAirtable
				c.Airtable.APIKey = "key"
			},
			wantErr: "AIRTABLE_BASE_ID must be provided",
		},
		{name: "missing expiry schedule", mutate: func(c *Config) { c.Scheduler.ExpirySchedule = "" }, wantErr: "EXPIRY_SWEEP_SCHEDULE must be provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

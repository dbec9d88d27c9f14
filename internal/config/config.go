package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Ledger sinks understood by LedgerConfig.Sink.
const (
	LedgerSinkSheets   = "sheets"
	LedgerSinkAirtable = "airtable"
	LedgerSinkNone     = "none"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Ledger    LedgerConfig
	Sheets    SheetsConfig
	Airtable  AirtableConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig holds the connection used for deal-room event fan-out.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig selects where transaction summaries are mirrored.
type LedgerConfig struct {
	Sink  string
	Table string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// AirtableConfig contains credentials for the Airtable REST API.
type AirtableConfig struct {
	APIKey  string
	BaseID  string
	BaseURL string
}

// SchedulerConfig holds the cron specs of the background sweeps.
type SchedulerConfig struct {
	ExpirySchedule   string
	FinalizeSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	redisDB, err := strconv.Atoi(getenvWithDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "dealroom"),
		},
		Redis: RedisConfig{
			Addr:     getenvWithDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Ledger: LedgerConfig{
			Sink:  getenvWithDefault("LEDGER_SINK", LedgerSinkNone),
			Table: getenvWithDefault("LEDGER_TABLE", "Transactions"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Airtable: AirtableConfig{
			APIKey:  os.Getenv("AIRTABLE_API_KEY"),
			BaseID:  os.Getenv("AIRTABLE_BASE_ID"),
			BaseURL: getenvWithDefault("AIRTABLE_BASE_URL", "https://api.airtable.com"),
		},
		Scheduler: SchedulerConfig{
			ExpirySchedule:   getenvWithDefault("EXPIRY_SWEEP_SCHEDULE", "*/5 * * * *"),
			FinalizeSchedule: getenvWithDefault("FINALIZE_SWEEP_SCHEDULE", "*/10 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Redis.Addr == "" {
		return errors.New("REDIS_ADDR must be provided")
	}

	switch c.Ledger.Sink {
	case LedgerSinkNone:
	case LedgerSinkSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	case LedgerSinkAirtable:
		if c.Airtable.APIKey == "" {
			return errors.New("AIRTABLE_API_KEY must be provided")
		}
		if c.Airtable.BaseID == "" {
			return errors.New("AIRTABLE_BASE_ID must be provided")
		}
	default:
		return fmt.Errorf("LEDGER_SINK must be one of %s, %s or %s", LedgerSinkSheets, LedgerSinkAirtable, LedgerSinkNone)
	}

	if c.Ledger.Sink != LedgerSinkNone && c.Ledger.Table == "" {
		return errors.New("LEDGER_TABLE must be provided")
	}

	if c.Scheduler.ExpirySchedule == "" {
		return errors.New("EXPIRY_SWEEP_SCHEDULE must be provided")
	}

	if c.Scheduler.FinalizeSchedule == "" {
		return errors.New("FINALIZE_SWEEP_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

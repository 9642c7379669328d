package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Shipment sources accepted by SHIPMENT_SOURCE.
const (
	ShipmentSourceMongo  = "mongo"
	ShipmentSourceSheets = "sheets"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Ledger    LedgerConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// LedgerConfig tunes ledger behaviour.
type LedgerConfig struct {
	// Timezone is the station's local zone used to bucket shipment events into days.
	Timezone       string
	ShipmentSource string
	RevenueBasis   string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// Messaging is disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken     string
	PhoneNumberID   string
	VerifyToken     string
	BaseURL         string
	APIVersion      string
	ReportRecipient string
}

// Enabled reports whether WhatsApp credentials were supplied.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether a spreadsheet was configured.
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule   string
	RepairSchedule string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig enables the distributed pipeline lock when Address is set.
type RedisConfig struct {
	Address  string
	Password string
	// LockTTL bounds how long a crashed holder keeps a pipeline locked. Live
	// holders extend their lock every LockTTL/2.
	LockTTL time.Duration
}

// KafkaConfig enables change events when Brokers is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
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
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	lockTTL, err := time.ParseDuration(getenvWithDefault("REDIS_LOCK_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_LOCK_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Ledger: LedgerConfig{
			Timezone:       getenvWithDefault("TIMEZONE", "Asia/Shanghai"),
			ShipmentSource: strings.ToLower(getenvWithDefault("SHIPMENT_SOURCE", ShipmentSourceMongo)),
			RevenueBasis:   strings.ToLower(getenvWithDefault("REVENUE_BASIS", "produced")),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:     os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:   os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:     os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:         getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ReportRecipient: os.Getenv("WHATSAPP_REPORT_RECIPIENT"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule:   getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 0"),
			RepairSchedule: getenvWithDefault("REPAIR_CRON_SCHEDULE", "*/15 * * * *"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "foodstation"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			LockTTL:  lockTTL,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvWithDefault("KAFKA_TOPIC", "ledger.record_changed"),
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

	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Ledger.Timezone, err)
	}

	switch c.Ledger.ShipmentSource {
	case ShipmentSourceMongo:
	case ShipmentSourceSheets:
		if !c.Sheets.Enabled() {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided when SHIPMENT_SOURCE=sheets")
		}
	default:
		return fmt.Errorf("SHIPMENT_SOURCE must be %q or %q, got %q", ShipmentSourceMongo, ShipmentSourceSheets, c.Ledger.ShipmentSource)
	}

	switch c.Ledger.RevenueBasis {
	case "produced", "shipped":
	default:
		return fmt.Errorf("REVENUE_BASIS must be produced or shipped, got %q", c.Ledger.RevenueBasis)
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Redis.Address != "" && c.Redis.LockTTL <= 0 {
		return errors.New("REDIS_LOCK_TTL must be positive")
	}

	return nil
}

// Location returns the station's time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

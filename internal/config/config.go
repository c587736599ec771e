package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr      string
	WidgetBaseURL string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Bank     BankConfig
	Sync     SyncConfig
	Alert    AlertConfig
	Security SecurityConfig
	Redis    RedisConfig
}

// BankConfig configures the outbound bank gateway client.
type BankConfig struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Currency   string
}

// SyncConfig configures the bank sync orchestrator. Cron expressions
// carry a seconds field.
type SyncConfig struct {
	Cron      string
	PurgeCron string
}

// AlertConfig configures alert dispatch pacing.
type AlertConfig struct {
	Delay time.Duration
}

// SecurityConfig configures the alert-token security gate.
type SecurityConfig struct {
	SignatureWindow   time.Duration
	ReplayTTL         time.Duration
	RateLimitWindow   time.Duration
	RateLimitMax      int
	ViolationMaxAge   time.Duration
	SettingsSoftByte  int
	SettingsHardByte  int
	SettingsEntryByte int
}

// RedisConfig is optional; when Addr is empty the security caches stay
// in-process (single-instance only).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "tipcast"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		WidgetBaseURL: getenv("WIDGET_BASE_URL", "http://localhost:8080/widget"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tipcast"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Bank: BankConfig{
			Endpoint:   getenv("BANK_API_ENDPOINT", ""),
			Timeout:    getenvDuration("BANK_TIMEOUT_MS", 10*time.Second),
			MaxRetries: getenvInt("BANK_MAX_RETRIES", 3),
			RetryDelay: getenvDuration("BANK_RETRY_DELAY_MS", 2*time.Second),
			Currency:   getenv("BANK_CURRENCY", "VND"),
		},
		Sync: SyncConfig{
			Cron:      getenv("SYNC_CRON", "*/10 * * * * *"),
			PurgeCron: getenv("SECURITY_PURGE_CRON", "0 0 3 * * *"),
		},
		Alert: AlertConfig{
			Delay: getenvDuration("ALERT_DELAY_MS", 3*time.Second),
		},
		Security: SecurityConfig{
			SignatureWindow:   getenvDuration("SECURITY_SIGNATURE_WINDOW_MS", 5*time.Minute),
			ReplayTTL:         getenvDuration("SECURITY_REPLAY_TTL_MS", time.Hour),
			RateLimitWindow:   getenvDuration("SECURITY_RATE_WINDOW_MS", time.Minute),
			RateLimitMax:      getenvInt("SECURITY_RATE_MAX", 10),
			ViolationMaxAge:   getenvDuration("SECURITY_VIOLATION_MAX_AGE_MS", 30*24*time.Hour),
			SettingsSoftByte:  getenvInt("SECURITY_SETTINGS_SOFT_BYTES", 1<<20),
			SettingsHardByte:  getenvInt("SECURITY_SETTINGS_HARD_BYTES", 4<<20),
			SettingsEntryByte: getenvInt("SECURITY_SETTINGS_ENTRY_BYTES", 256<<10),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration reads a millisecond count.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return time.Duration(parsed) * time.Millisecond
}

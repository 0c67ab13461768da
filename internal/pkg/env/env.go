package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env found. Missing files are fine: the
// process environment is used instead.
func SetupEnvFile() {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/accessd to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		m, err := godotenv.Read(envFile)
		if err == nil {
			Env = m
			return
		}
	}
	Env = map[string]string{}
}

// Config is the validated process configuration.
type Config struct {
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`
	AppEnv  string `validate:"oneof=dev prod"`

	DBDriver   string `validate:"oneof=mysql memory"`
	DBHost     string `validate:"required_if=DBDriver mysql"`
	DBPort     string `validate:"omitempty,numeric"`
	DBUser     string `validate:"required_if=DBDriver mysql"`
	DBPassword string
	DBName     string `validate:"required_if=DBDriver mysql"`

	CacheDriver   string `validate:"oneof=redis memory"`
	CacheHost     string `validate:"required_if=CacheDriver redis"`
	CachePort     string `validate:"omitempty,numeric"`
	CachePassword string

	CatalogFile          string `validate:"omitempty,file"`
	OpenAPIFile          string
	AdminAPIKey          string `validate:"required,min=16"`
	PaymentWebhookSecret string
	StatsCacheTTL        time.Duration `validate:"gte=0"`
	RetryWorkers         int           `validate:"gte=1,lte=32"`
}

var validate = validator.New()

// Load reads configuration from the loaded .env map and the process
// environment, then validates it.
func Load() (Config, error) {
	ttl, err := time.ParseDuration(GetEnv("STATS_CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("STATS_CACHE_TTL: %w", err)
	}
	workers, err := strconv.Atoi(GetEnv("GRANT_RETRY_WORKERS", "2"))
	if err != nil {
		return Config{}, fmt.Errorf("GRANT_RETRY_WORKERS: %w", err)
	}

	cfg := Config{
		AppHost:              GetEnv("APP_HOST", "0.0.0.0"),
		AppPort:              GetEnv("APP_PORT", "8080"),
		AppEnv:               GetEnv("APP_ENV", "prod"),
		DBDriver:             GetEnv("DB_DRIVER", "mysql"),
		DBHost:               GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:               GetEnv("DB_PORT", "3306"),
		DBUser:               GetEnv("DB_USER", ""),
		DBPassword:           GetEnv("DB_PASSWORD", ""),
		DBName:               GetEnv("DB_NAME", ""),
		CacheDriver:          GetEnv("CACHE_DRIVER", "redis"),
		CacheHost:            GetEnv("CACHE_HOST", "localhost"),
		CachePort:            GetEnv("CACHE_PORT", "6379"),
		CachePassword:        GetEnv("CACHE_PASSWORD", ""),
		CatalogFile:          GetEnv("CATALOG_FILE", ""),
		OpenAPIFile:          GetEnv("OPENAPI_FILE", "docs/v1/openapi.yml"),
		AdminAPIKey:          GetEnv("ADMIN_API_KEY", ""),
		PaymentWebhookSecret: GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		StatsCacheTTL:        ttl,
		RetryWorkers:         workers,
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsDev enables debug logging and gorm AutoMigrate.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

// MySQLDSN builds the go-sql-driver DSN. Times are read and written in UTC.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

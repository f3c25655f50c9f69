package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DBDriverMySQL  = "mysql"
	DBDriverSQLite = "sqlite"

	IdempotencyStoreMemory = "memory"
	IdempotencyStoreRedis  = "redis"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	DB                DBConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Redis             RedisConfig
	Idempotency       IdempotencyConfig
	Credentials       CredentialsConfig
	Gateways          GatewaysConfig
	Payments          PaymentsConfig
	Jobs              JobsConfig
	Telemetry         TelemetryConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// InternalEndpointsConfig points at the auth service. An empty AuthGRPCAddr disables internal auth.
type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type IdempotencyConfig struct {
	Store         string
	LockTTL       time.Duration
	ResultTTL     time.Duration
	SweepInterval time.Duration
}

type CredentialsConfig struct {
	Key string
}

type GatewaysConfig struct {
	Default             string
	HTTPTimeout         time.Duration
	StripeBaseURL       string
	MercadoPagoBaseURL  string
	MockLatency         time.Duration
	MockRejectAmount    decimal.Decimal
	StripePaymentMethod string
}

type PaymentsConfig struct {
	AuditRetention time.Duration
}

type JobsConfig struct {
	AuditPruneInterval time.Duration
}

type TelemetryConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("MYSQL_DSN")
	}
	if dsn == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DBDriverMySQL))
	if driver != DBDriverMySQL && driver != DBDriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	store := strings.ToLower(getEnv("IDEMPOTENCY_STORE", IdempotencyStoreMemory))
	if store != IdempotencyStoreMemory && store != IdempotencyStoreRedis {
		return nil, fmt.Errorf("unsupported IDEMPOTENCY_STORE %q", store)
	}

	credentialsKey := os.Getenv("CREDENTIALS_KEY")
	if credentialsKey == "" {
		return nil, errors.New("CREDENTIALS_KEY environment variable is required")
	}

	rejectAmount, err := decimal.NewFromString(getEnv("MOCK_GATEWAY_REJECT_AMOUNT", "99.99"))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_GATEWAY_REJECT_AMOUNT: %w", err)
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-orchestrator"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		DB: DBConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("DB_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: os.Getenv("AUTH_SERVICE_GRPC_ADDR"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Idempotency: IdempotencyConfig{
			Store:         store,
			LockTTL:       getMinutesEnv("IDEMPOTENCY_LOCK_TTL_MINUTES", 24*time.Hour),
			ResultTTL:     getMinutesEnv("IDEMPOTENCY_RESULT_TTL_MINUTES", 24*time.Hour),
			SweepInterval: getSecondsEnv("IDEMPOTENCY_SWEEP_INTERVAL_SECONDS", time.Minute),
		},
		Credentials: CredentialsConfig{
			Key: credentialsKey,
		},
		Gateways: GatewaysConfig{
			Default:             strings.ToUpper(getEnv("GATEWAY_DEFAULT", "STRIPE")),
			HTTPTimeout:         getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			StripeBaseURL:       os.Getenv("STRIPE_API_BASE_URL"),
			MercadoPagoBaseURL:  os.Getenv("MERCADOPAGO_API_BASE_URL"),
			MockLatency:         getMillisecondsEnv("MOCK_GATEWAY_LATENCY_MS", 300*time.Millisecond),
			MockRejectAmount:    rejectAmount,
			StripePaymentMethod: os.Getenv("STRIPE_PAYMENT_METHOD"),
		},
		Payments: PaymentsConfig{
			AuditRetention: getDaysEnv("AUDIT_RETENTION_DAYS", 90*24*time.Hour),
		},
		Jobs: JobsConfig{
			AuditPruneInterval: getMinutesEnv("AUDIT_PRUNE_INTERVAL_MINUTES", time.Hour),
		},
		Telemetry: TelemetryConfig{
			Enabled: getBoolEnv("OTEL_ENABLED", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDaysEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if days, err := strconv.Atoi(value); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

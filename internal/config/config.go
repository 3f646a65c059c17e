package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig
	GRPC          GRPCConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Ledger        LedgerConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type GRPCConfig struct {
	Port    string
	Enabled bool
}

type DatabaseConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
	AutoMigrate    bool
}

type RedisConfig struct {
	Addr    string
	Enabled bool
	LockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	EventCreated     string
	EventUpdated     string
	EventDeleted     string
	CategoryCreated  string
	CategoryUpdated  string
	CategoryDeleted  string
	SeatsDebited     string
	BookingRequested string
	BookingProcessed string
}

// All returns every topic the service produces to or consumes from.
func (t TopicConfig) All() []string {
	return []string{
		t.EventCreated, t.EventUpdated, t.EventDeleted,
		t.CategoryCreated, t.CategoryUpdated, t.CategoryDeleted,
		t.SeatsDebited, t.BookingRequested, t.BookingProcessed,
	}
}

type AuthConfig struct {
	OIDCIssuer string
}

type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	OtelEndpoint   string
	OtelAuthHeader string
	TracesPath     string
}

type LedgerConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

type LogConfig struct {
	Dir string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", ":8080"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Port:    getEnv("GRPC_PORT", ":9090"),
			Enabled: getEnvBool("GRPC_ENABLED", true),
		},
		Database: DatabaseConfig{
			DSN:            getEnv("POSTGRES_DSN", ""),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", true),
			LockTTL: time.Duration(getEnvInt("CATEGORY_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "catalog-service-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				EventCreated:     getEnv("KAFKA_TOPIC_EVENT_CREATED", "catalog.event.created"),
				EventUpdated:     getEnv("KAFKA_TOPIC_EVENT_UPDATED", "catalog.event.updated"),
				EventDeleted:     getEnv("KAFKA_TOPIC_EVENT_DELETED", "catalog.event.deleted"),
				CategoryCreated:  getEnv("KAFKA_TOPIC_CATEGORY_CREATED", "catalog.category.created"),
				CategoryUpdated:  getEnv("KAFKA_TOPIC_CATEGORY_UPDATED", "catalog.category.updated"),
				CategoryDeleted:  getEnv("KAFKA_TOPIC_CATEGORY_DELETED", "catalog.category.deleted"),
				SeatsDebited:     getEnv("KAFKA_TOPIC_SEATS_DEBITED", "catalog.seats.debited"),
				BookingRequested: getEnv("KAFKA_TOPIC_BOOKING_REQUESTED", "catalog.booking.requested"),
				BookingProcessed: getEnv("KAFKA_TOPIC_BOOKING_PROCESSED", "catalog.booking.processed"),
			},
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
		Observability: ObservabilityConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "catalog-service"),
			ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
			OtelEndpoint:   getEnv("OTEL_ENDPOINT", ""),
			OtelAuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
			TracesPath:     getEnv("OTEL_TRACES_PATH", "/v1/traces"),
		},
		Ledger: LedgerConfig{
			MaxRetries:     getEnvInt("DEBIT_MAX_RETRIES", 3),
			InitialBackoff: time.Duration(getEnvInt("DEBIT_BACKOFF_MS", 20)) * time.Millisecond,
		},
		Log: LogConfig{
			Dir: getEnv("LOG_DIR", "logs"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

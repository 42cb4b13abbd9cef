// Package config reads the settings shared by the CSSD binaries from the
// environment, after loading an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/domain"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/kafka"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/mongodb"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/temporal"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/tracing"
)

// StorageBackend selects where the ledger lives
type StorageBackend string

const (
	StorageMongoDB  StorageBackend = "mongodb"
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// Config holds the configuration of one CSSD binary
type Config struct {
	ServerAddr  string
	Environment string
	// MetricsAddr is where the worker serves /metrics
	MetricsAddr string

	Storage     StorageBackend
	MongoDB     *mongodb.Config
	SQLiteDSN   string
	PostgresDSN string

	// Kafka is nil when KAFKA_BROKERS is unset; alerts then go to the log
	Kafka    *kafka.Config
	Temporal *temporal.Config
	Tracing  *tracing.Config

	CSSDUnitID string
	ShelfLife  time.Duration

	OverdueSweepCron string
	PackExpiryCron   string
}

// Load reads the configuration for serviceName. Variables already set in the
// environment win over the .env file.
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	}

	shelfLife, err := getEnvDuration("STERILE_SHELF_LIFE", 720*time.Hour)
	if err != nil {
		return nil, err
	}
	if shelfLife <= 0 {
		return nil, fmt.Errorf("STERILE_SHELF_LIFE must be positive, got %s", shelfLife)
	}

	storage := StorageBackend(strings.ToLower(getEnv("STORAGE_BACKEND", string(StorageMongoDB))))
	switch storage {
	case StorageMongoDB, StorageSQLite, StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", storage)
	}

	cfg := &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
		Storage:     storage,
		MongoDB: &mongodb.Config{
			URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:         getEnv("MONGODB_DATABASE", "cssd"),
			ConnectTimeout:   10 * time.Second,
			MaxPoolSize:      100,
			MinPoolSize:      5,
			ReplicaSet:       getEnv("MONGODB_REPLICA_SET", ""),
			DirectConnection: getEnvBool("MONGODB_DIRECT", false),
		},
		SQLiteDSN:   getEnv("SQLITE_DSN", ""),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
		CSSDUnitID:       getEnv("CSSD_UNIT_ID", domain.DefaultCSSDUnitID),
		ShelfLife:        shelfLife,
		OverdueSweepCron: getEnv("OVERDUE_SWEEP_CRON", "0 * * * *"),
		PackExpiryCron:   getEnv("PACK_EXPIRY_CRON", "*/15 * * * *"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		k := kafka.DefaultConfig()
		k.Brokers = strings.Split(brokers, ",")
		k.ClientID = serviceName
		cfg.Kafka = k
	}

	cfg.Tracing = tracing.DefaultConfig(serviceName)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.Environment = cfg.Environment
	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", false)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

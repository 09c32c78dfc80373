// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevSessionSecret is the fallback session secret for local development. Refused when APP_ENV=production.
const DevSessionSecret = "dev-auth-secret-change-me"

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// SessionSecret is the HMAC secret used to sign session tokens.
	SessionSecret string `mapstructure:"AUTH_SESSION_SECRET"`
	// SessionTTLRaw is the session token lifetime (e.g. "168h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// StoreDriver selects the access store backend: "file" (JSON documents) or "postgres".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DataDir is the directory holding the JSON documents when StoreDriver is "file".
	DataDir string `mapstructure:"POOL_ACCESS_DB_DIR"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is "postgres".
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// ChainRPCURL is the EVM JSON-RPC endpoint. Empty disables chain reads (goal pools are then dropped from listings).
	ChainRPCURL string `mapstructure:"CHAIN_RPC_URL"`
	// ChainID is the expected chain id; 0 skips the check.
	ChainID int64 `mapstructure:"CHAIN_ID"`
	// PoolFactoryAddress is the pool factory contract address.
	PoolFactoryAddress string `mapstructure:"POOL_FACTORY_ADDRESS"`

	// StorageIndexerURL is the remote content-addressed store indexer. Empty disables backups.
	StorageIndexerURL string `mapstructure:"STORAGE_INDEXER_URL"`
	// StoragePrivateKey is the hex secp256k1 key (or path to a file holding it) that signs backup uploads.
	StoragePrivateKey string `mapstructure:"STORAGE_PRIVATE_KEY"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables the pool event stream.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsTopic is the Kafka topic for pool events.
	EventsTopic string `mapstructure:"POOL_EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// RateLimitRPS is the per-caller request rate; 0 disables rate limiting.
	RateLimitRPS float64 `mapstructure:"RATE_LIMIT_RPS"`
	// RateLimitBurst is the per-caller burst size.
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_SESSION_SECRET", DevSessionSecret)
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORE_DRIVER", StoreDriverFile)
	v.SetDefault("POOL_ACCESS_DB_DIR", ".data")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CHAIN_RPC_URL", "")
	v.SetDefault("CHAIN_ID", 16602)
	v.SetDefault("POOL_FACTORY_ADDRESS", "")
	v.SetDefault("STORAGE_INDEXER_URL", "")
	v.SetDefault("STORAGE_PRIVATE_KEY", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("POOL_EVENTS_KAFKA_TOPIC", "poolfi-events")
	v.SetDefault("KAFKA_GROUP_ID", "poolfi-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("config: AUTH_SESSION_SECRET must be set")
	}
	if cfg.Env == "production" && cfg.SessionSecret == DevSessionSecret {
		return nil, errors.New("config: AUTH_SESSION_SECRET must not be the development secret when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreDriverFile:
		if cfg.DataDir == "" {
			return nil, errors.New("config: POOL_ACCESS_DB_DIR must be set when STORE_DRIVER=file")
		}
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	default:
		return nil, errors.New("config: STORE_DRIVER must be file or postgres")
	}

	if cfg.StorageIndexerURL != "" && cfg.StoragePrivateKey == "" {
		return nil, errors.New("config: STORAGE_PRIVATE_KEY must be set when STORAGE_INDEXER_URL is set")
	}

	return &cfg, nil
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// DocumentPath returns the path of the named JSON document inside DataDir (e.g. "pool-access-db.json").
func (c *Config) DocumentPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the event stream is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BackupEnabled reports whether remote backups are configured.
func (c *Config) BackupEnabled() bool {
	return c != nil && c.StorageIndexerURL != "" && c.StoragePrivateKey != ""
}

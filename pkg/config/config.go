// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// WriteRateLimit caps write requests per client per minute; 0 disables it.
	WriteRateLimit int `yaml:"writeRateLimit"`
}

// Storage backends of the index directory.
const (
	StorageMemory   = "memory"
	StorageFS       = "fs"
	StoragePostgres = "postgres"
)

// IndexConfig controls where the index lives and how writer sessions are
// sized and committed.
type IndexConfig struct {
	Name        string `yaml:"name"`
	Storage     string `yaml:"storage"`
	Path        string `yaml:"path"`
	SchemaFile  string `yaml:"schemaFile"`
	HeapBudget  int    `yaml:"heapBudget"`
	Compression string `yaml:"compression"`
	// CommitEvery commits the ingestion session after this many operations;
	// 0 disables the count trigger.
	CommitEvery    int           `yaml:"commitEvery"`
	CommitInterval time.Duration `yaml:"commitInterval"`
}

// SearchConfig controls query defaults and limits.
type SearchConfig struct {
	DefaultLimit  int           `yaml:"defaultLimit"`
	MaxResults    int           `yaml:"maxResults"`
	DefaultFields []string      `yaml:"defaultFields"`
	SlowQuery     time.Duration `yaml:"slowQuery"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	SSLMode          string        `yaml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
	StatementTimeout time.Duration `yaml:"statementTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
	// Compression is the producer codec: none, gzip, snappy, lz4 or zstd.
	Compression string `yaml:"compression"`
	// HandlerAttempts bounds retries of a failing message before the
	// consumer stops.
	HandlerAttempts int `yaml:"handlerAttempts"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexCommitted string `yaml:"indexCommitted"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Index.Storage {
	case StorageMemory:
	case StorageFS:
		if c.Index.Path == "" {
			return fmt.Errorf("%w: index.path is required for fs storage", apperrors.ErrInvalidConfiguration)
		}
	case StoragePostgres:
		if c.Index.Name == "" {
			return fmt.Errorf("%w: index.name is required for postgres storage", apperrors.ErrInvalidConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown index.storage %q", apperrors.ErrInvalidConfiguration, c.Index.Storage)
	}
	if c.Index.HeapBudget < 0 || c.Index.CommitEvery < 0 || c.Index.CommitInterval < 0 {
		return fmt.Errorf("%w: index budgets and commit triggers must not be negative", apperrors.ErrInvalidConfiguration)
	}
	if c.Server.WriteRateLimit < 0 {
		return fmt.Errorf("%w: server.writeRateLimit must not be negative", apperrors.ErrInvalidConfiguration)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("%w: search.defaultLimit must be >= 0 and search.maxResults > 0", apperrors.ErrInvalidConfiguration)
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("%w: search.defaultLimit %d exceeds search.maxResults %d",
			apperrors.ErrInvalidConfiguration, c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topics.DocumentIngest == "") {
		return fmt.Errorf("%w: kafka needs brokers and a documentIngest topic", apperrors.ErrInvalidConfiguration)
	}
	return nil
}

// defaultConfig returns a Config with defaults suited to local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			WriteRateLimit:  600,
		},
		Index: IndexConfig{
			Name:           "default",
			Storage:        StorageFS,
			Path:           "./data/index",
			Compression:    "zstd",
			CommitEvery:    1000,
			CommitInterval: 5 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			SlowQuery:    500 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "textindex",
			User:             "textindex",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     25,
			MaxIdleConns:     5,
			ConnMaxLifetime:  5 * time.Minute,
			StatementTimeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			ConsumerGroup:   "textindex-group",
			Compression:     "lz4",
			HandlerAttempts: 5,
			Topics: KafkaTopics{
				DocumentIngest: "textindex.ingest",
				IndexCommitted: "textindex.committed",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TI_SERVER_WRITE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.WriteRateLimit = n
		}
	}
	if v := os.Getenv("TI_INDEX_NAME"); v != "" {
		cfg.Index.Name = v
	}
	if v := os.Getenv("TI_INDEX_STORAGE"); v != "" {
		cfg.Index.Storage = v
	}
	if v := os.Getenv("TI_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("TI_INDEX_SCHEMA_FILE"); v != "" {
		cfg.Index.SchemaFile = v
	}
	if v := os.Getenv("TI_INDEX_HEAP_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.HeapBudget = n
		}
	}
	if v := os.Getenv("TI_INDEX_COMPRESSION"); v != "" {
		cfg.Index.Compression = v
	}
	if v := os.Getenv("TI_INDEX_COMMIT_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.CommitEvery = n
		}
	}
	if v := os.Getenv("TI_INDEX_COMMIT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Index.CommitInterval = d
		}
	}
	if v := os.Getenv("TI_SEARCH_DEFAULT_FIELDS"); v != "" {
		cfg.Search.DefaultFields = strings.Split(v, ",")
	}
	if v := os.Getenv("TI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TI_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("TI_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("TI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TI_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("TI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

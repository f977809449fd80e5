package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	CatalogLocal  = "local"
	CatalogRemote = "remote"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	GRPCPort int `yaml:"grpc_port"`
	HTTPPort int `yaml:"http_port"`
	// Upstream is the shopd gRPC address the HTTP gateway dials.
	Upstream string `yaml:"upstream"`

	Store    string   `yaml:"store"`
	Database Database `yaml:"database"`
	Catalog  Catalog  `yaml:"catalog"`
	Currency string   `yaml:"currency"`
	SeedFile string   `yaml:"seed_file"`

	Kafka Kafka `yaml:"kafka"`
	Otel  Otel  `yaml:"otel"`
}

type Database struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

type Catalog struct {
	Source       string        `yaml:"source"`
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultStock int           `yaml:"default_stock"`
}

type Kafka struct {
	Brokers        string `yaml:"brokers"`
	Topic          string `yaml:"topic"`
	OutboxSchedule string `yaml:"outbox_schedule"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
}

func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: "info",
		HTTPPort: 8080,
		GRPCPort: 8081,
		Upstream: "localhost:8081",
		Store:    StorePostgres,
		Database: Database{MaxConns: 10},
		Catalog: Catalog{
			Source:       CatalogLocal,
			Timeout:      3 * time.Second,
			DefaultStock: 0,
		},
		Currency: "USD",
		Kafka: Kafka{
			Topic:          "minishop.checkouts",
			OutboxSchedule: "@every 5s",
		},
	}
}

// Load reads the configuration and validates the store and catalog settings.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, an optional YAML file, a .env file in
// the working directory and finally the process environment, in that order. It
// does not validate, for processes that never open the store.
func Read(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays the process environment. Malformed integers are collected and
// returned together rather than replaced by defaults.
func applyEnv(cfg *Config) error {
	var errs []error
	getEnvInt := func(key string, def int) int {
		n, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = getEnvInt("GRPC_PORT", cfg.GRPCPort)
	cfg.Upstream = getEnv("GATEWAY_UPSTREAM", cfg.Upstream)

	cfg.Store = strings.ToLower(getEnv("STORE", cfg.Store))
	cfg.Database.URL = getEnv("DB_URL", getEnv("DATABASE_URL", cfg.Database.URL))
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASS", getEnv("DB_PASSWORD", cfg.Database.Password))
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", cfg.Database.MaxConns)

	cfg.Catalog.Source = strings.ToLower(getEnv("CATALOG_SOURCE", cfg.Catalog.Source))
	cfg.Catalog.URL = strings.TrimRight(getEnv("CATALOG_URL", cfg.Catalog.URL), "/")
	if ms := getEnvInt("CATALOG_TIMEOUT_MS", 0); ms > 0 {
		cfg.Catalog.Timeout = time.Duration(ms) * time.Millisecond
	}
	cfg.Catalog.DefaultStock = getEnvInt("CATALOG_DEFAULT_STOCK", cfg.Catalog.DefaultStock)

	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", cfg.Currency))
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)

	cfg.Kafka.Brokers = getEnv("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.OutboxSchedule = getEnv("OUTBOX_SCHEDULE", cfg.Kafka.OutboxSchedule)

	cfg.Otel.Endpoint = getEnv("OTEL_ENDPOINT", cfg.Otel.Endpoint)
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("DB_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.Catalog.Source {
	case CatalogLocal:
	case CatalogRemote:
		if c.Catalog.URL == "" {
			return errors.New("CATALOG_URL is required when CATALOG_SOURCE=remote")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Catalog.Source)
	}

	if c.Catalog.DefaultStock < 0 {
		return fmt.Errorf("CATALOG_DEFAULT_STOCK must be >= 0, got %d", c.Catalog.DefaultStock)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt reads a base-10 integer. Leading zeros are plain decimal ("010" is 10);
// prefixes such as 0x and trailing garbage are errors.
func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	sign, digits := "", v
	if digits[0] == '-' || digits[0] == '+' {
		sign, digits = digits[:1], digits[1:]
	}
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return def, fmt.Errorf("%s: %q is not a decimal integer", key, v)
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}

	n, err := cast.ToIntE(sign + digits)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

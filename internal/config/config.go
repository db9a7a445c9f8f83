// Package config loads runtime settings: built-in defaults, then an optional
// YAML file named by STOREFRONT_CONFIG, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

const EnvConfigFile = "STOREFRONT_CONFIG"

type Config struct {
	ServiceName string         `yaml:"service_name"`
	HTTPAddr    string         `yaml:"http_addr"`
	LogLevel    string         `yaml:"log_level"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Orders      OrdersConfig   `yaml:"orders"`
	Admin       AdminConfig    `yaml:"admin"`
	Tracing     TracingConfig  `yaml:"tracing"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "mysql". For sqlite, DSN is a file path; for
	// mysql it must include multiStatements=true so migrations can run.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the catalog cache when Addr is set.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	RelayBatch    int           `yaml:"relay_batch"`
	RelayInterval time.Duration `yaml:"relay_interval"`
}

type OrdersConfig struct {
	AutoRecalculate bool `yaml:"auto_recalculate"`
	StrictStatus    bool `yaml:"strict_status"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// TracingConfig enables OTLP export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
}

func Default() Config {
	return Config{
		ServiceName: "storefront",
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/storefront.db",
		},
		Redis: RedisConfig{TTL: 5 * time.Minute},
		Kafka: KafkaConfig{
			Topic:         "storefront.order-events",
			RelayBatch:    100,
			RelayInterval: 2 * time.Second,
		},
		Admin: AdminConfig{
			Username: "admin",
			Email:    "admin@ecommerce.com",
			Password: "admin123",
		},
		Tracing: TracingConfig{Environment: "local"},
	}
}

// Load returns the effective configuration.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPAddr = getEnv("STOREFRONT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Database.Driver = getEnv("STOREFRONT_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("STOREFRONT_DB_DSN", cfg.Database.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Admin.Username = getEnv("STOREFRONT_ADMIN_USERNAME", cfg.Admin.Username)
	cfg.Admin.Email = getEnv("STOREFRONT_ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.Password = getEnv("STOREFRONT_ADMIN_PASSWORD", cfg.Admin.Password)
	cfg.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.Environment = getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", cfg.Tracing.Environment)

	var err error
	if cfg.Orders.AutoRecalculate, err = getEnvBool("STOREFRONT_AUTO_RECALCULATE", cfg.Orders.AutoRecalculate); err != nil {
		return err
	}
	if cfg.Orders.StrictStatus, err = getEnvBool("STOREFRONT_STRICT_STATUS", cfg.Orders.StrictStatus); err != nil {
		return err
	}
	if cfg.Redis.TTL, err = getEnvDuration("REDIS_TTL", cfg.Redis.TTL); err != nil {
		return err
	}
	if cfg.Kafka.RelayInterval, err = getEnvDuration("KAFKA_RELAY_INTERVAL", cfg.Kafka.RelayInterval); err != nil {
		return err
	}
	if cfg.Kafka.RelayBatch, err = getEnvInt("KAFKA_RELAY_BATCH", cfg.Kafka.RelayBatch); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// AdminSpec is the desired state of the privileged account.
func (c Config) AdminSpec() domain.AccountSpec {
	return domain.AccountSpec{
		Username:    c.Admin.Username,
		Email:       c.Admin.Email,
		Password:    c.Admin.Password,
		IsStaff:     true,
		IsSuperuser: true,
		IsActive:    true,
	}
}

// StatusPolicy returns the order status policy selected by Orders.StrictStatus.
func (c Config) StatusPolicy() domain.StatusPolicy {
	if c.Orders.StrictStatus {
		return domain.StrictTransitions{}
	}
	return domain.PermissivePolicy{}
}

func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level: %w", err)
	}
	return l, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Server      ServerConfig      `yaml:"server"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Restaurant  RestaurantConfig  `yaml:"restaurant"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type IdempotencyConfig struct {
	TTLSeconds           int `yaml:"ttl_seconds"`
	PurgeIntervalSeconds int `yaml:"purge_interval_seconds"`
}

func (c IdempotencyConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c IdempotencyConfig) PurgeInterval() time.Duration {
	return time.Duration(c.PurgeIntervalSeconds) * time.Second
}

type RestaurantConfig struct {
	DefaultDeliveryFee string        `yaml:"default_delivery_fee"`
	Tables             []TableConfig `yaml:"tables"`
}

// DeliveryFee parses DefaultDeliveryFee. Load has already validated it.
func (c RestaurantConfig) DeliveryFee() decimal.Decimal {
	fee, err := decimal.NewFromString(c.DefaultDeliveryFee)
	if err != nil {
		return decimal.Zero
	}
	return fee
}

type TableConfig struct {
	Label    string `yaml:"label"`
	Capacity int    `yaml:"capacity"`
	Zone     string `yaml:"zone"`
}

type AuthConfig struct {
	// JWTSecret signs admin tokens. Empty disables admin authentication.
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "restaurant_user",
			Password: "restaurant_pass",
			Database: "restaurant_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
		},
		Server:      ServerConfig{Port: 3000},
		Idempotency: IdempotencyConfig{TTLSeconds: 600, PurgeIntervalSeconds: 60},
		Restaurant:  RestaurantConfig{DefaultDeliveryFee: "5.00"},
		Log:         LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (a missing file yields defaults) and
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Idempotency.TTLSeconds <= 0 {
		return fmt.Errorf("idempotency.ttl_seconds must be positive")
	}
	if c.Idempotency.PurgeIntervalSeconds <= 0 {
		return fmt.Errorf("idempotency.purge_interval_seconds must be positive")
	}
	fee, err := decimal.NewFromString(c.Restaurant.DefaultDeliveryFee)
	if err != nil {
		return fmt.Errorf("restaurant.default_delivery_fee: %w", err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("restaurant.default_delivery_fee must not be negative")
	}
	for i, t := range c.Restaurant.Tables {
		if t.Label == "" {
			return fmt.Errorf("restaurant.tables[%d].label is required", i)
		}
		if t.Capacity < 1 {
			return fmt.Errorf("restaurant.tables[%d].capacity must be at least 1", i)
		}
	}
	return nil
}

func applyEnv(c *Config) {
	c.Database.Host = getEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = getEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("POSTGRES_DBNAME", c.Database.Database)

	c.RabbitMQ.Host = getEnv("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", c.RabbitMQ.Port)
	c.RabbitMQ.User = getEnv("RABBITMQ_USER", c.RabbitMQ.User)
	c.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", c.RabbitMQ.Password)
	c.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", c.RabbitMQ.VHost)

	c.Idempotency.TTLSeconds = getEnvInt("IDEMPOTENCY_TTL", c.Idempotency.TTLSeconds)
	c.Restaurant.DefaultDeliveryFee = getEnv("DEFAULT_DELIVERY_FEE", c.Restaurant.DefaultDeliveryFee)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"

	devSecret = "dev-only-secret"
)

// RateLimit - лимит изменяющих запросов на пользователя.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config хранит конфигурацию приложения.
type Config struct {
	Port            string        `yaml:"port"`
	Storage         string        `yaml:"storage"`
	DatabaseURL     string        `yaml:"database_url"`
	LogLevel        string        `yaml:"log_level"`
	JWTSecret       string        `yaml:"jwt_secret"`
	RedisAddr       string        `yaml:"redis_addr"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
	Seed            bool          `yaml:"seed"`
	Dev             bool          `yaml:"dev"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MintToken задаётся только флагом: "user:nick:role".
	MintToken string `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		Port:            "8080",
		Storage:         StorageInMemory,
		LogLevel:        "INFO",
		RateLimit:       RateLimit{RPS: 5, Burst: 10},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл,
// затем переменные окружения, затем флаги командной строки.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	storage := fs.String("storage", "", "storage type (in-memory or postgres)")
	port := fs.String("port", "", "HTTP port")
	seed := fs.Bool("seed", false, "fill the in-memory store with demo data")
	dev := fs.Bool("dev", false, "development mode: allows running without JWT_SECRET")
	mint := fs.String("mint-token", "", "print a signed token for user:nick:role and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "storage":
			cfg.Storage = *storage
		case "port":
			cfg.Port = *port
		case "seed":
			cfg.Seed = *seed
		case "dev":
			cfg.Dev = *dev
		}
	})
	cfg.MintToken = *mint

	if cfg.JWTSecret == "" && cfg.Dev {
		cfg.JWTSecret = devSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.Storage, "STORAGE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.RedisAddr, "REDIS_ADDR")

	if v, ok := os.LookupEnv("RATE_LIMIT_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = rps
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_BURST"); ok {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = burst
	}
	if v, ok := os.LookupEnv("SEED"); ok {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

// setString получает значение переменной окружения, если она задана.
func setString(dst *string, key string) {
	if value, exists := os.LookupEnv(key); exists {
		*dst = value
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageInMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set (or run with -dev)"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

// Level переводит LOG_LEVEL в уровень slog.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// RateLimited сообщает, включено ли ограничение частоты.
func (c *Config) RateLimited() bool { return c.RateLimit.RPS > 0 && c.RateLimit.Burst > 0 }

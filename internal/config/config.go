package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Хранилища и стратегии доставки событий
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierPostgres = "postgres"
	NotifierRedis    = "redis"
	NotifierMemory   = "memory"
)

type Config struct {
	Environment       string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	AllowedOrigins    []string      `mapstructure:"ALLOWED_ORIGINS"`
	Store             string        `mapstructure:"STORE"`
	DBDSN             string        `mapstructure:"DB_DSN"`
	Notifier          string        `mapstructure:"NOTIFIER"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	AccessIDKey       string        `mapstructure:"ACCESS_ID_KEY"`
	KeepaliveInterval time.Duration `mapstructure:"KEEPALIVE_INTERVAL"`
	PollInterval      time.Duration `mapstructure:"POLL_INTERVAL"`
	StatsInterval     time.Duration `mapstructure:"STATS_INTERVAL"`
	RunMigrations     bool          `mapstructure:"RUN_MIGRATIONS"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		Environment:    getenv("ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		Store:          strings.ToLower(getenv("STORE", StorePostgres)),
		DBDSN:          os.Getenv("DB_DSN"),
		Notifier:       strings.ToLower(os.Getenv("NOTIFIER")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessIDKey:    os.Getenv("ACCESS_ID_KEY"),
	}

	var err error
	if cfg.KeepaliveInterval, err = durationEnv("KEEPALIVE_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", 3000*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.StatsInterval, err = durationEnv("STATS_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RunMigrations, err = boolEnv("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}

	// По умолчанию события идут тем же путём, что и данные
	if cfg.Notifier == "" {
		cfg.Notifier = NotifierMemory
		if cfg.Store == StorePostgres {
			cfg.Notifier = NotifierPostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Config loaded: env=%s store=%s notifier=%s\n", cfg.Environment, cfg.Store, cfg.Notifier)
	return cfg, nil
}

// Validate проверяет обязательные поля и допустимые сочетания
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.Notifier {
	case NotifierPostgres:
		if c.Store != StorePostgres {
			return fmt.Errorf("NOTIFIER=postgres requires STORE=postgres")
		}
	case NotifierRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for NOTIFIER=redis")
		}
	case NotifierMemory:
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if c.AccessIDKey == "" {
		return fmt.Errorf("ACCESS_ID_KEY is required but not set")
	}
	if c.KeepaliveInterval <= 0 || c.PollInterval <= 0 || c.StatsInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// splitList разбирает список через запятую, пустые элементы пропускаются
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv принимает "30s", "3000ms" или целое число миллисекунд
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

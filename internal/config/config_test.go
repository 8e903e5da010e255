package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"ENV", "LOG_LEVEL", "HTTP_ADDR", "ALLOWED_ORIGINS", "STORE", "DB_DSN", "NOTIFIER", "REDIS_ADDR", "REDIS_PASSWORD",
	"JWT_SECRET", "ACCESS_ID_KEY", "KEEPALIVE_INTERVAL", "POLL_INTERVAL", "STATS_INTERVAL", "RUN_MIGRATIONS",
}

func setenv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, values[k])
	}
}

func TestLoadDefaults(t *testing.T) {
	setenv(t, map[string]string{
		"DB_DSN":        "postgres://localhost/scholium",
		"JWT_SECRET":    "secret",
		"ACCESS_ID_KEY": "key",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, NotifierPostgres, cfg.Notifier)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, 3000*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.RunMigrations)
}

func TestLoadMemoryStore(t *testing.T) {
	setenv(t, map[string]string{
		"STORE":           "memory",
		"JWT_SECRET":      "secret",
		"ACCESS_ID_KEY":   "key",
		"POLL_INTERVAL":   "1500",
		"RUN_MIGRATIONS":  "false",
		"ALLOWED_ORIGINS": "https://app.example.com, ,http://localhost:3000",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, NotifierMemory, cfg.Notifier)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadRejects(t *testing.T) {
	base := map[string]string{"STORE": "memory", "JWT_SECRET": "s", "ACCESS_ID_KEY": "k"}
	cases := map[string]map[string]string{
		"postgres notifier on memory store": {"NOTIFIER": "postgres"},
		"redis without address":             {"NOTIFIER": "redis"},
		"missing dsn":                       {"STORE": "postgres"},
		"missing jwt secret":                {"JWT_SECRET": ""},
		"unknown store":                     {"STORE": "sqlite"},
		"bad duration":                      {"KEEPALIVE_INTERVAL": "soon"},
		"bad bool":                          {"RUN_MIGRATIONS": "maybe"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			values := map[string]string{}
			for k, v := range base {
				values[k] = v
			}
			for k, v := range override {
				values[k] = v
			}
			setenv(t, values)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

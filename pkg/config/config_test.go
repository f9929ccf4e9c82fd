package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir equivale a t.Chdir (Go 1.24+): cambia de directorio y lo restaura al terminar.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	chdir(t, t.TempDir()) // sin .env

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.App.Store)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 0, cfg.Ledger.MaxAttempts, "sin límite de reintentos por defecto")
	assert.Equal(t, 200, cfg.Feed.Size)
	assert.True(t, cfg.Returns.RestockOnApproval)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())

	loc, err := cfg.Ledger.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("FEED_SIZE", "50")
	t.Setenv("LEDGER_TIMEZONE", "America/Bogota")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "7")
	t.Setenv("RETURNS_RESTOCK_ON_APPROVAL", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 50, cfg.Feed.Size)
	assert.Equal(t, 7, cfg.Ledger.MaxAttempts)
	assert.False(t, cfg.Returns.RestockOnApproval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled())

	loc, err := cfg.Ledger.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", loc.String())
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FEED_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FEED_SIZE", "10")
	t.Setenv("LEDGER_TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "storeflow", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/storeflow?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "CATALOG_PATH", "LOG_LEVEL", "LOG_FORMAT", "KAFKA_BROKERS", "KAFKA_TOPIC", "SEED_DEMO"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":9091", cfg.HTTPAddr)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, "clinic.orders", cfg.KafkaTopic)
	assert.True(t, cfg.SeedDemo)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("CATALOG_PATH", "/etc/clinic/catalog.toml")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("KAFKA_TOPIC", "orders")
	t.Setenv("SEED_DEMO", "false")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "/etc/clinic/catalog.toml", cfg.CatalogPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "orders", cfg.KafkaTopic)
	assert.False(t, cfg.SeedDemo)
}

func TestLoad_BadBoolKeepsDefault(t *testing.T) {
	t.Setenv("SEED_DEMO", "sometimes")
	assert.True(t, Load().SeedDemo)
}

package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	defaultHTTPAddr   = ":9091"
	defaultLogLevel   = "info"
	defaultLogFormat  = "json"
	defaultKafkaTopic = "clinic.orders"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	HTTPAddr     string
	CatalogPath  string
	LogLevel     string
	LogFormat    string
	KafkaBrokers []string
	KafkaTopic   string
	SeedDemo     bool
}

// Load reads environment variables and returns a populated Config.
// An empty CATALOG_PATH selects the built-in catalog; an empty
// KAFKA_BROKERS disables the Kafka sink.
func Load() Config {
	return Config{
		HTTPAddr:     getEnv("HTTP_ADDR", defaultHTTPAddr),
		CatalogPath:  os.Getenv("CATALOG_PATH"),
		LogLevel:     getEnv("LOG_LEVEL", defaultLogLevel),
		LogFormat:    getEnv("LOG_FORMAT", defaultLogFormat),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", defaultKafkaTopic),
		SeedDemo:     getBool("SEED_DEMO", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

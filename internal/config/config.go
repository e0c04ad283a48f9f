package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DataDir is the BadgerDB directory for objects, risk records, and the
	// chat log.
	DataDir string

	// NASA NeoWs feed configuration. NASACacheSize bounds the in-memory
	// cache of by-date feed lookups; past dates never change upstream.
	NASAAPIKey    string
	NASABaseURL   string
	NASATimeout   time.Duration
	NASACacheSize int

	// Kafka alert publishing configuration (feature-flagged via
	// KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaBrokers     []string
	KafkaAlertsTopic string
	KafkaEnabled     bool

	// ChatBufferSize is the per-member outbound queue depth. A member whose
	// queue is full is treated as disconnected.
	ChatBufferSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	nasaTimeout, err := parseDurationEnv("NASA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	nasaCacheSize, err := parsePositiveIntEnv("NASA_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	chatBufferSize, err := parsePositiveIntEnv("CHAT_BUFFER_SIZE", 64)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(envOrDefault("KAFKA_BROKERS", ""))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir: envOrDefault("DATA_DIR", "data"),

		NASAAPIKey:    envOrDefault("NASA_API_KEY", "DEMO_KEY"),
		NASABaseURL:   envOrDefault("NASA_BASE_URL", "https://api.nasa.gov/neo/rest/v1"),
		NASATimeout:   nasaTimeout,
		NASACacheSize: nasaCacheSize,

		KafkaBrokers:     brokers,
		KafkaAlertsTopic: envOrDefault("KAFKA_ALERTS_TOPIC", "neo-risk-alerts"),
		KafkaEnabled:     kafkaEnabled,

		ChatBufferSize: chatBufferSize,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.NASABaseURL == "" {
		return nil, errors.New("NASA_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertsTopic == "" {
		return nil, errors.New("KAFKA_ALERTS_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

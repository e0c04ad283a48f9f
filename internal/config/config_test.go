package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "DEMO_KEY", cfg.NASAAPIKey)
	assert.Equal(t, "https://api.nasa.gov/neo/rest/v1", cfg.NASABaseURL)
	assert.Equal(t, 10*time.Second, cfg.NASATimeout)
	assert.Equal(t, 256, cfg.NASACacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "neo-risk-alerts", cfg.KafkaAlertsTopic)
	assert.Equal(t, 64, cfg.ChatBufferSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/var/lib/neowatch")
	t.Setenv("NASA_API_KEY", "real-key")
	t.Setenv("NASA_BASE_URL", "http://localhost:9999/neo/rest/v1")
	t.Setenv("NASA_TIMEOUT", "3s")
	t.Setenv("NASA_CACHE_SIZE", "32")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ALERTS_TOPIC", "custom-alerts")
	t.Setenv("CHAT_BUFFER_SIZE", "128")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/neowatch", cfg.DataDir)
	assert.Equal(t, "real-key", cfg.NASAAPIKey)
	assert.Equal(t, "http://localhost:9999/neo/rest/v1", cfg.NASABaseURL)
	assert.Equal(t, 3*time.Second, cfg.NASATimeout)
	assert.Equal(t, 32, cfg.NASACacheSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-alerts", cfg.KafkaAlertsTopic)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, 128, cfg.ChatBufferSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidNASATimeout(t *testing.T) {
	t.Setenv("NASA_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NASA_TIMEOUT")
}

func TestLoad_InvalidNASACacheSize(t *testing.T) {
	t.Setenv("NASA_CACHE_SIZE", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NASA_CACHE_SIZE")
}

func TestLoad_InvalidChatBufferSize(t *testing.T) {
	t.Setenv("CHAT_BUFFER_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_BUFFER_SIZE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

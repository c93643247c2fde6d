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

	// Model backend configuration.
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ModelName        string
	ModelTemperature float64
	ModelMaxTokens   int64

	// KHOA ocean data configuration.
	KHOAServiceKey   string
	KHOABaseURL      string
	KHOATimeout      time.Duration
	StationCacheSize int

	// Kafka audit trail configuration.
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaEnabled     bool
}

// OceanEnabled reports whether the KHOA backend is configured. The ocean
// endpoints return 503 without it.
func (c *Config) OceanEnabled() bool {
	return c.KHOAServiceKey != ""
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	khoaTimeout, err := parseDuration("KHOA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	temperature, err := parseFloat("MODEL_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}

	maxTokens, err := parseInt("MODEL_MAX_TOKENS", 2048)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("STATION_CACHE_SIZE", 256)
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

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		ModelName:        envOrDefault("MODEL_NAME", "gpt-4-turbo-preview"),
		ModelTemperature: temperature,
		ModelMaxTokens:   maxTokens,

		KHOAServiceKey:   os.Getenv("KHOA_SERVICE_KEY"),
		KHOABaseURL:      envOrDefault("KHOA_BASE_URL", "http://www.khoa.go.kr/api/oceangrid"),
		KHOATimeout:      khoaTimeout,
		StationCacheSize: int(cacheSize),

		KafkaBrokers:     brokers,
		KafkaEventsTopic: envOrDefault("KAFKA_EVENTS_TOPIC", "disaster-sim-events"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	if cfg.ModelTemperature < 0 || cfg.ModelTemperature > 2 {
		return nil, errors.New("MODEL_TEMPERATURE must be between 0 and 2")
	}
	if cfg.ModelMaxTokens <= 0 {
		return nil, errors.New("MODEL_MAX_TOKENS must be positive")
	}
	if cfg.StationCacheSize <= 0 {
		return nil, errors.New("STATION_CACHE_SIZE must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseInt(key string, fallback int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

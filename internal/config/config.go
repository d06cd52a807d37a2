// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"clinical-scribe/internal/extract"
)

// Config aggregates all configuration for the scribe service.
type Config struct {
	Service       ServiceConfig
	Recog         RecogConfig
	Kafka         KafkaConfig
	Extract       extract.Config
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listen addresses.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// RecogConfig holds recognition engine settings.
type RecogConfig struct {
	// Provider selects the server-side engine for sessions that are not fed
	// by a browser: "mock" or "google".
	Provider       string
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
}

// KafkaConfig holds transcript event bus settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicInterim string
	TopicFinal   string
	TopicNote    string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from the environment, applying defaults. A .env
// file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-clinical-scribe"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Recog: RecogConfig{
			Provider:       envOrDefault("RECOG_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("RECOG_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   int32(envOrDefaultInt("RECOG_SAMPLE_RATE_HZ", 16000)),
			InterimResults: envOrDefaultBool("RECOG_INTERIM_RESULTS", true),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			TopicInterim: envOrDefault("KAFKA_TOPIC_INTERIM", "scribe.transcript.interim"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "scribe.transcript.final"),
			TopicNote:    envOrDefault("KAFKA_TOPIC_NOTE", "scribe.note.created"),
		},
		Extract: extract.Config{
			APIKey:  strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			Model:   strings.TrimSpace(os.Getenv("EXTRACT_MODEL")),
			BaseURL: envOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:  envOrDefault("ARK_REGION", "cn-beijing"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

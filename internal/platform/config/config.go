package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "bursary/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	PostgresDSN string
	Redis       RedisConfig
	Kafka       KafkaConfig
	OCR         OCRConfig

	// Eligibility policy applied to every request.
	MinGrade     float64
	MaxIncome    float64
	RequiredDocs []string
}

// RedisConfig holds connection settings for the shared history store. An
// empty URL means Redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the decision-event publisher settings. Empty brokers
// disable publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OCRConfig points at the external OCR sidecar.
type OCRConfig struct {
	Endpoint string
	Language string
	Timeout  time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envOr("BURSARY_ADDR", ":8080"),
		PostgresDSN: os.Getenv("BURSARY_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("BURSARY_REDIS_URL"),
			PoolSize:     envInt("BURSARY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BURSARY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BURSARY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BURSARY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BURSARY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("BURSARY_KAFKA_BROKERS")),
			Topic:   envOr("BURSARY_KAFKA_TOPIC", "bursary.verification.decisions"),
		},
		OCR: OCRConfig{
			Endpoint: envOr("BURSARY_OCR_ENDPOINT", "http://localhost:8884"),
			Language: envOr("BURSARY_OCR_LANGUAGE", "eng"),
			Timeout:  envDuration("BURSARY_OCR_TIMEOUT", 30*time.Second),
		},
		MinGrade:  envFloat("BURSARY_MIN_GRADE", 7.0),
		MaxIncome: envFloat("BURSARY_MAX_INCOME", 600000),
		RequiredDocs: splitListOr(os.Getenv("BURSARY_REQUIRED_DOCS"),
			[]string{"income_certificate", "grade_sheet", "bank_details", "id_proof"}),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strutil.DedupeAndTrimLower(strings.Split(raw, ","))
}

func splitListOr(raw string, fallback []string) []string {
	if list := splitList(raw); len(list) > 0 {
		return list
	}
	return fallback
}

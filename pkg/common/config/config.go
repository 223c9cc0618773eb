package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	PatientEventsTopic string
	RiskEventsTopic    string

	// Model
	ModelArtifactDir string
	ModelName        string

	// Risk policy
	RiskPolicyPath string
	RiskLowCutoff  float64
	RiskHighCutoff float64

	// Feature cache
	FeatureCachePrefix string
	FeatureCacheTTL    time.Duration

	// Batch recompute
	RecomputeWorkers   int
	RecomputeBatchSize int

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8089"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "strokecare"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "strokecare"),
		PostgresDB:       getEnv("POSTGRES_DB", "strokecare"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "strokecare-risk"),
		PatientEventsTopic: getEnv("PATIENT_EVENTS_TOPIC", "patient-events"),
		RiskEventsTopic:    getEnv("RISK_EVENTS_TOPIC", "risk-assessed"),

		ModelArtifactDir: getEnv("MODEL_ARTIFACT_DIR", "./artifacts"),
		ModelName:        getEnv("MODEL_NAME", "stroke"),

		RiskPolicyPath: getEnv("RISK_POLICY_PATH", ""),
		RiskLowCutoff:  getFloatEnv("RISK_LOW_CUTOFF", -1),
		RiskHighCutoff: getFloatEnv("RISK_HIGH_CUTOFF", -1),

		FeatureCachePrefix: getEnv("FEATURE_CACHE_PREFIX", "features"),
		FeatureCacheTTL:    getDuration("FEATURE_CACHE_TTL", 5*time.Minute),

		RecomputeWorkers:   getIntEnv("RECOMPUTE_WORKERS", 4),
		RecomputeBatchSize: getIntEnv("RECOMPUTE_BATCH_SIZE", 200),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	BedrockModelID          string
	BedrockFallbackModelID  string
	BedrockEmbeddingModelID string
	LLMTimeout              time.Duration
	KnowledgeTierTimeout    time.Duration

	TraceQueueURL   string
	TurnRecordTable string
	ArchiveBucket   string

	CallContextTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockFallbackModelID:  getEnv("BEDROCK_FALLBACK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", ""),
		LLMTimeout:              getEnvAsDuration("LLM_TIMEOUT", 12*time.Second),
		KnowledgeTierTimeout:    getEnvAsDuration("KNOWLEDGE_TIER_TIMEOUT", 8*time.Second),

		TraceQueueURL:   getEnv("TRACE_QUEUE_URL", ""),
		TurnRecordTable: getEnv("TURN_RECORD_TABLE", "turn_records"),
		ArchiveBucket:   getEnv("CALL_ARCHIVE_BUCKET", ""),

		CallContextTTL: getEnvAsDuration("CALL_CONTEXT_TTL", 4*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

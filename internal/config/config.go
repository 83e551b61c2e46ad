package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	// LLM provider selection: "gemini" or "bedrock".
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModelID  string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	BedrockModelID string
	LLMTimeout     time.Duration
	LLMMaxRetries  int

	TelnyxAPIKey      string
	TelnyxPhoneNumber string
	TelnyxTimeout     time.Duration
	TelnyxMaxRetries  int

	ClinicName         string
	ClinicPhoneDisplay string
	DefaultCountryCode string

	RateLimitPerMinute int
	RateLimitBurst     int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "gemini"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxRetries:  getEnvAsInt("LLM_MAX_RETRIES", 2),

		TelnyxAPIKey:      getEnv("TELNYX_API_KEY", ""),
		TelnyxPhoneNumber: getEnv("TELNYX_PHONE_NUMBER", ""),
		TelnyxTimeout:     getEnvAsDuration("TELNYX_TIMEOUT", 15*time.Second),
		TelnyxMaxRetries:  getEnvAsInt("TELNYX_MAX_RETRIES", 2),

		ClinicName:         getEnv("CLINIC_NAME", "Clinica San Miguel"),
		ClinicPhoneDisplay: getEnv("CLINIC_PHONE_DISPLAY", "(415) 555-1000"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "1"),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

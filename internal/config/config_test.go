package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LLMProvider != "gemini" {
		t.Errorf("expected default llm provider gemini, got %s", cfg.LLMProvider)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session ttl 24h, got %s", cfg.SessionTTL)
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("expected default rate limit 20, got %d", cfg.RateLimitPerMinute)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	t.Setenv("LLM_TIMEOUT", "10s")
	t.Setenv("LLM_MAX_RETRIES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example , https://b.example")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Errorf("expected normalized provider bedrock, got %s", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.LLMMaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.LLMMaxRetries)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("SESSION_TTL", "eventually")

	cfg := Load()

	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("expected fallback rate limit 20, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected fallback ttl 24h, got %s", cfg.SessionTTL)
	}
}

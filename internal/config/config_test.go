package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("AppEnv = %q, want development", cfg.AppEnv)
	}
	if cfg.Store.Backend != "memory" || cfg.Sessions.Backend != "memory" {
		t.Fatalf("backends = %q/%q", cfg.Store.Backend, cfg.Sessions.Backend)
	}
	if cfg.Auth.JWTExpiry != 480*time.Minute {
		t.Fatalf("JWTExpiry = %v", cfg.Auth.JWTExpiry)
	}
	if cfg.Auth.RateLimit != 15 || cfg.Auth.RateWindow != time.Minute {
		t.Fatalf("rate limit = %d per %v", cfg.Auth.RateLimit, cfg.Auth.RateWindow)
	}
	if !cfg.Monday.MockMode {
		t.Fatal("Monday mock mode should default on")
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Fatalf("Sessions.TTL = %v", cfg.Sessions.TTL)
	}
}

func TestLoadAdminSecretPrecedence(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "key-value")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.AdminSecret != "key-value" {
		t.Fatalf("AdminSecret = %q", cfg.Auth.AdminSecret)
	}

	t.Setenv("ADMIN_PASSWORD", "password-value")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.AdminSecret != "password-value" {
		t.Fatalf("AdminSecret = %q", cfg.Auth.AdminSecret)
	}
}

func TestLoadAIFallbacks(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("ANTHROPIC_MODEL", "claude-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Provider != "anthropic" || cfg.AI.APIKey != "sk-ant" || cfg.AI.Model != "claude-test" {
		t.Fatalf("AI = %+v", cfg.AI)
	}

	t.Setenv("AI_API_KEY", "explicit")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "explicit" {
		t.Fatalf("AI_API_KEY should win, got %q", cfg.AI.APIKey)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "90")
	if got := getEnvDuration("SESSION_TTL", time.Second); got != 90*time.Minute {
		t.Fatalf("bare minutes = %v", got)
	}
	t.Setenv("SESSION_TTL", "45s")
	if got := getEnvDuration("SESSION_TTL", time.Second); got != 45*time.Second {
		t.Fatalf("duration = %v", got)
	}
	t.Setenv("SESSION_TTL", "soon")
	if got := getEnvDuration("SESSION_TTL", time.Second); got != time.Second {
		t.Fatalf("invalid value should fall back, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown store", map[string]string{"STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"redis without url", map[string]string{"SESSION_STORE": "redis"}, "REDIS_URL"},
		{"default secret in production", map[string]string{"APP_ENV": "production"}, "JWT_SECRET"},
		{"unknown provider", map[string]string{"AI_PROVIDER": "llama"}, "AI_PROVIDER"},
		{"bad rate limit", map[string]string{"AUTH_RATE_LIMIT": "0"}, "AUTH_RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

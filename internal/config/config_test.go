package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("TURN_LOCK_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected bedrock provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.TurnLockTTL != 30*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.TurnLockTTL)
	}
	if cfg.LLMMaxHistory != 10 {
		t.Fatalf("expected history of 10, got %d", cfg.LLMMaxHistory)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("TWILIO_SKIP_SIGNATURE", "true")
	t.Setenv("INBOUND_DEDUPE_TTL", "not-a-duration")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" {
		t.Fatalf("unexpected core overrides: %+v", cfg)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected lowercased log format, got %s", cfg.LogFormat)
	}
	if !cfg.UseMemoryQueue || cfg.WorkerCount != 4 {
		t.Fatalf("unexpected queue settings: memory=%v workers=%d", cfg.UseMemoryQueue, cfg.WorkerCount)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.LLMTimeout)
	}
	if !cfg.TwilioSkipSignature {
		t.Fatalf("expected signature skip enabled")
	}
	if cfg.InboundDedupeTTL != 24*time.Hour {
		t.Fatalf("expected invalid duration to fall back, got %s", cfg.InboundDedupeTTL)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{BusinessTimezone: "Nowhere/Invalid"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	var nilCfg *Config
	if nilCfg.Location() != time.UTC {
		t.Fatalf("expected UTC for nil config")
	}
}

func TestLoadAdminOrigins(t *testing.T) {
	t.Setenv("ADMIN_ALLOWED_ORIGINS", " https://panel.neumaticosdelvalle.com.ar, ,http://localhost:3000 ")
	cfg := Load()
	if len(cfg.AdminAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %#v", cfg.AdminAllowedOrigins)
	}
	if cfg.AdminAllowedOrigins[0] != "https://panel.neumaticosdelvalle.com.ar" || cfg.AdminAllowedOrigins[1] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %#v", cfg.AdminAllowedOrigins)
	}
	if cfg.AdminRateLimitPerMin != 120 {
		t.Fatalf("expected default admin rate limit, got %d", cfg.AdminRateLimitPerMin)
	}
}

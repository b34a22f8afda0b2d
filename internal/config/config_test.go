package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STREAM_HEARTBEAT_MS", "STORE_ENABLED", "STORE_TYPE", "STORE_DSN",
		"GATEWAY_BASE_URL", "GATEWAY_TIMEOUT_MS", "DEMO_MODE",
		"COMPANION_LOCALE", "COMPANION_USER_ID", "COMPANION_TIMEZONE",
		"CULTURAL_PROBABILITY", "CULTURAL_MOOD_MATCH", "REPLY_DELAY_MS", "CRISIS_PROMPT_DELAY_MS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":4000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if !cfg.Store.Enabled || cfg.Store.Type != "sqlite" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Gateway.BaseURL != "http://localhost:4000/api" || cfg.Gateway.DemoMode {
		t.Fatalf("unexpected gateway config: %+v", cfg.Gateway)
	}
	if cfg.Companion.ReplyDelay != time.Second || cfg.Companion.CrisisPromptDelay != 2*time.Second {
		t.Fatalf("unexpected delays: %+v", cfg.Companion)
	}
	if cfg.Companion.CulturalProbability != 0.30 || cfg.Companion.Location != time.UTC {
		t.Fatalf("unexpected companion config: %+v", cfg.Companion)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("STORE_TYPE", "Postgres")
	t.Setenv("GATEWAY_BASE_URL", "http://wellness.internal/api/")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("COMPANION_TIMEZONE", "Asia/Kolkata")
	t.Setenv("CULTURAL_PROBABILITY", "0")
	t.Setenv("REPLY_DELAY_MS", "250")
	t.Setenv("CULTURAL_MOOD_MATCH", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.Store.Type != "postgres" {
		t.Fatalf("unexpected store type %s", cfg.Store.Type)
	}
	if cfg.Gateway.BaseURL != "http://wellness.internal/api" || !cfg.Gateway.DemoMode {
		t.Fatalf("unexpected gateway config: %+v", cfg.Gateway)
	}
	if cfg.Companion.Location.String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location %s", cfg.Companion.Location)
	}
	if cfg.Companion.CulturalProbability != 0 || cfg.Companion.ReplyDelay != 250*time.Millisecond || !cfg.Companion.CulturalMoodMatch {
		t.Fatalf("unexpected companion config: %+v", cfg.Companion)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"PORT", "80 80"},
		{"STORE_TYPE", "mongo"},
		{"DEMO_MODE", "maybe"},
		{"COMPANION_TIMEZONE", "Mars/Olympus"},
		{"CULTURAL_PROBABILITY", "1.5"},
		{"REPLY_DELAY_MS", "-1"},
		{"REPLY_DELAY_MS", "0"},
		{"CRISIS_PROMPT_DELAY_MS", "0"},
		{"GATEWAY_TIMEOUT_MS", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

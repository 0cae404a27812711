package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.UpstreamURL == "" {
		t.Fatalf("expected default upstream url")
	}
	if !cfg.UseMockData {
		t.Fatalf("expected mock data by default")
	}
	if cfg.MockLatencyMs == 0 {
		t.Fatalf("expected default mock latency")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("UPSTREAM_URL", "https://upstream.example")
	t.Setenv("UPSTREAM_API_KEY", "k-123")
	t.Setenv("USE_MOCK_DATA", "false")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("UPLOAD_TIMEOUT_MS", "5000")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.UpstreamURL != "https://upstream.example" {
		t.Fatalf("expected override upstream")
	}
	if cfg.UpstreamAPIKey != "k-123" {
		t.Fatalf("expected override api key")
	}
	if cfg.UseMockData {
		t.Fatalf("expected mock data disabled")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.UploadTimeoutMs != 5000 {
		t.Fatalf("expected override upload timeout")
	}
}
